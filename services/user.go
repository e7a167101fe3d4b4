package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-cartshop/apperrors"
	"go-cartshop/models"
	"go-cartshop/repository"
	"go-cartshop/validators"

	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenIssuer interface {
	GenerateJWT(user *models.User) (string, error)
}

// UserService registers users and issues bearer tokens.
type UserService struct {
	users  repository.UserRepository
	tokens tokenIssuer
	cost   int
}

type UserOption func(*UserService)

// WithPasswordCost overrides the bcrypt cost used when hashing passwords.
func WithPasswordCost(cost int) UserOption {
	return func(s *UserService) { s.cost = cost }
}

func NewUserService(users repository.UserRepository, tokens tokenIssuer, opts ...UserOption) *UserService {
	s := &UserService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validators.Struct(in); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "hash password")
	}
	user := &models.User{
		Name:      in.Name,
		Email:     in.Email,
		Password:  string(hashed),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("User already exists")
		}
		return nil, apperrors.Storage(err, "insert user")
	}
	return user, nil
}

// Login checks the credentials and returns a signed token for the user.
func (s *UserService) Login(ctx context.Context, in LoginInput) (string, *models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validators.Struct(in); err != nil {
		return "", nil, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, apperrors.Unauthorized("Invalid credentials")
		}
		return "", nil, apperrors.Storage(err, "find user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return "", nil, apperrors.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.GenerateJWT(user)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.CodeInternal, err, "generate token")
	}
	return token, user, nil
}

func (s *UserService) Profile(ctx context.Context, who models.Identity) (*models.User, error) {
	user, err := s.users.FindByID(ctx, who.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Storage(err, "find user")
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
