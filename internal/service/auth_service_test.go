package service

import (
	"errors"
	"testing"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
)

type stubUserRepository struct {
	createFn      func(user *domain.User) error
	findByEmailFn func(email string) (*domain.User, error)
	findByIDFn    func(id uint) (*domain.User, error)
}

func (s *stubUserRepository) Create(user *domain.User) error {
	if s.createFn == nil {
		return errors.New("not implemented")
	}
	return s.createFn(user)
}
func (s *stubUserRepository) FindByID(id uint) (*domain.User, error) {
	if s.findByIDFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.findByIDFn(id)
}
func (s *stubUserRepository) FindByEmail(email string) (*domain.User, error) {
	if s.findByEmailFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.findByEmailFn(email)
}
func (s *stubUserRepository) FindByUsername(string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc := NewAuthService(&stubUserRepository{})

	cases := []struct {
		name                string
		username, email, pw string
	}{
		{"short username", "ab", "a@example.com", "password123"},
		{"bad email", "reader", "not-an-email", "password123"},
		{"short password", "reader", "a@example.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(tc.username, tc.email, tc.pw); !errors.Is(err, ErrInvalidRegistration) {
				t.Fatalf("expected ErrInvalidRegistration, got %v", err)
			}
		})
	}
}

func TestAuthServiceRegisterHashesPassword(t *testing.T) {
	var created *domain.User
	repo := &stubUserRepository{
		createFn: func(user *domain.User) error {
			created = user
			return nil
		},
	}
	svc := NewAuthService(repo)

	user, err := svc.Register("reader", "Reader@Example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created == nil {
		t.Fatal("expected user to be created")
	}
	if user.Email != "reader@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "password123" || user.PasswordHash == "" {
		t.Fatal("expected password to be hashed")
	}
	if !security.CheckPassword(user.PasswordHash, "password123") {
		t.Fatal("expected hash to verify the original password")
	}
}

func TestAuthServiceLogin(t *testing.T) {
	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatal(err)
	}
	repo := &stubUserRepository{
		findByEmailFn: func(email string) (*domain.User, error) {
			if email != "reader@example.com" {
				return nil, repository.ErrUserNotFound
			}
			return &domain.User{ID: 1, Email: email, PasswordHash: hash}, nil
		},
	}
	svc := NewAuthService(repo)

	user, err := svc.Login("reader@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.Login("reader@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	// unknown user must be indistinguishable from a bad password
	if _, err := svc.Login("ghost@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthServiceLoginPropagatesRepoFailures(t *testing.T) {
	expected := errors.New("db down")
	repo := &stubUserRepository{
		findByEmailFn: func(string) (*domain.User, error) { return nil, expected },
	}
	svc := NewAuthService(repo)

	if _, err := svc.Login("reader@example.com", "pw"); !errors.Is(err, expected) {
		t.Fatalf("expected %v, got %v", expected, err)
	}
}
