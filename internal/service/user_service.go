package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Freeeeeet/slot_swap/internal/model"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// maxPasswordBytes предел bcrypt, считается в байтах, а не в символах
	maxPasswordBytes = 72
)

type UserService struct {
	store    repository.Store
	logger   *zap.Logger
	hashCost int
}

func NewUserService(store repository.Store, logger *zap.Logger) *UserService {
	return &UserService{
		store:    store,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

// Register создаёт пользователя с email и паролем
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, invalid("name", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email", "must be a valid email address")
	}
	if len(password) < minPasswordLength {
		return nil, invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return nil, invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, systemError("hash password", err)
	}

	user := &model.User{
		Name:         name,
		Email:        &email,
		PasswordHash: string(hash),
	}

	if err := s.store.Stores().Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("email", "is already registered")
		}
		return nil, systemError("create user", err)
	}

	s.logger.Info("New user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", email),
	)

	return user, nil
}

// Authenticate проверяет email и пароль
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.Stores().Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, systemError("get user by email", err)
	}

	if user == nil || user.PasswordHash == "" {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	return user, nil
}

// RegisterTelegramUser регистрирует или обновляет пользователя бота
func (s *UserService) RegisterTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	name := displayName(username, firstName, lastName)

	// Проверяем существует ли пользователь
	existingUser, err := s.store.Stores().Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, systemError("check existing user", err)
	}

	// Если пользователь уже существует, обновляем имя
	if existingUser != nil {
		if existingUser.Name == name {
			return existingUser, nil
		}

		existingUser.Name = name
		if err := s.store.Stores().Users.Update(ctx, existingUser); err != nil {
			return nil, systemError("update user", err)
		}

		s.logger.Info("User updated",
			zap.Int64("telegram_id", telegramID),
			zap.String("name", name),
		)

		return existingUser, nil
	}

	user := &model.User{
		Name:       name,
		TelegramID: &telegramID,
	}

	if err := s.store.Stores().Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Параллельный /start того же пользователя
			return s.GetByTelegramID(ctx, telegramID)
		}
		return nil, systemError("create user", err)
	}

	s.logger.Info("New user registered",
		zap.String("user_id", user.ID.String()),
		zap.Int64("telegram_id", telegramID),
		zap.String("name", name),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.store.Stores().Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, systemError("get user by telegram id", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: telegram user %d", ErrNotFound, telegramID)
	}
	return user, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.store.Stores().Users.GetByID(ctx, id)
	if err != nil {
		return nil, systemError("get user", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return user, nil
}

func displayName(username, firstName, lastName string) string {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if name != "" {
		return name
	}
	if username != "" {
		return "@" + username
	}
	return "Без имени"
}
