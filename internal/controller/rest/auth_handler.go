package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/service"
	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

func (s *Server) register(c echo.Context) error {
	req := new(registerRequest)
	if err := bind(c, req); err != nil {
		return s.fail(c, err)
	}

	user, err := s.users.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return s.fail(c, err)
	}

	return s.issueToken(c, http.StatusCreated, user)
}

func (s *Server) login(c echo.Context) error {
	req := new(loginRequest)
	if err := bind(c, req); err != nil {
		return s.fail(c, err)
	}

	user, err := s.users.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			return unauthorized(c, "invalid email or password")
		}
		return s.fail(c, err)
	}

	return s.issueToken(c, http.StatusOK, user)
}

func (s *Server) issueToken(c echo.Context, status int, user *model.User) error {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(status, authResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}
