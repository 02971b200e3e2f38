package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	TelegramID   *int64    `json:"telegram_id,omitempty"` // указатель - пользователь может быть только из HTTP
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicProfile данные пользователя, которые видят другие участники обмена
type PublicProfile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// Profile возвращает публичный профиль пользователя
func (u *User) Profile() *PublicProfile {
	if u == nil {
		return nil
	}
	p := &PublicProfile{ID: u.ID, Name: u.Name}
	if u.Email != nil {
		p.Email = *u.Email
	}
	return p
}
