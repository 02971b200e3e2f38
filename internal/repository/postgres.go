package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slot_swap/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres хранилище поверх пула pgx
type Postgres struct {
	pool   *pgxpool.Pool
	stores Stores
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool:   pool,
		stores: newStores(base.NewRepository(pool)),
	}
}

func newStores(repo *base.Repository) Stores {
	return Stores{
		Slots:    NewSlotRepository(repo),
		Requests: NewSwapRequestRepository(repo),
		Users:    NewUserRepository(repo),
	}
}

// Stores возвращает хранилища, работающие напрямую с пулом
func (p *Postgres) Stores() Stores {
	return p.stores
}

// WithinTx выполняет fn в транзакции. При временной ошибке
// (serialization failure, deadlock, обрыв соединения) транзакция повторяется целиком.
func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return base.Do(ctx, func(ctx context.Context) error {
		// Начинаем транзакцию
		tx, err := p.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(ctx, newStores(base.NewTxRepository(tx))); err != nil {
			return err
		}

		// Коммитим транзакцию
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}
