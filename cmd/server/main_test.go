package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/config"
	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "development",
		Store:       config.StoreMemory,
		HTTPAddr:    freeAddr(t),
		JWTSecret:   "test-secret",
		JWTTTL:      time.Hour,
		Timezone:    "UTC",
	}
}

func TestServeBotFailureDoesNotStartHTTP(t *testing.T) {
	orig := newBot
	t.Cleanup(func() { newBot = orig })
	newBot = func(string) (*bot.Bot, error) {
		return nil, errors.New("unauthorized")
	}

	cfg := testConfig(t)
	cfg.TelegramToken = "bad-token"

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), cfg, zap.NewNop()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create telegram bot")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after bot creation failed")
	}

	// Порт свободен: сервер не запускался
	l, err := net.Listen("tcp", cfg.HTTPAddr)
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.HTTPAddr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
