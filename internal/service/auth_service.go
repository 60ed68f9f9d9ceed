package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRegistration = errors.New("invalid registration input")
)

type AuthServiceInterface interface {
	Register(username, email, password string) (*domain.User, error)
	Login(email, password string) (*domain.User, error)
	GetUser(id uint) (*domain.User, error)
}

type AuthService struct {
	users repository.UserRepository
}

func NewAuthService(users repository.UserRepository) *AuthService {
	return &AuthService{users: users}
}

func (s *AuthService) Register(username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if l := utf8.RuneCountInString(username); l < 3 || l > 64 {
		return nil, fmt.Errorf("%w: username must be 3-64 characters", ErrInvalidRegistration)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidRegistration)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidRegistration)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(user); err != nil {
		observability.RecordAuthEvent(context.Background(), "register", "error")
		return nil, err
	}
	observability.RecordAuthEvent(context.Background(), "register", "success")
	return user, nil
}

// Login deliberately collapses "no such user" and "wrong password" into one
// error so the response does not disclose which accounts exist.
func (s *AuthService) Login(email, password string) (*domain.User, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthEvent(context.Background(), "login", "unknown_user")
			return nil, ErrInvalidCredentials
		}
		observability.RecordAuthEvent(context.Background(), "login", "error")
		return nil, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		observability.RecordAuthEvent(context.Background(), "login", "bad_password")
		return nil, ErrInvalidCredentials
	}
	observability.RecordAuthEvent(context.Background(), "login", "success")
	return user, nil
}

func (s *AuthService) GetUser(id uint) (*domain.User, error) {
	return s.users.FindByID(id)
}
