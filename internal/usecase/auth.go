package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	applogger "SmartEnergy/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrEmailExists   = errors.New("email already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
)

const (
	MsgSignupOK = "Signup successful"
	MsgLoginOK  = "Login successful"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type AuthUseCase struct {
	users  drepo.UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	logger *applogger.Logger
	now    func() time.Time
}

// NewAuthUseCase creates a new AuthUseCase.
func NewAuthUseCase(users drepo.UserStore, hasher PasswordHasher, tokens TokenIssuer, l *applogger.Logger) *AuthUseCase {
	return &AuthUseCase{users: users, hasher: hasher, tokens: tokens, logger: l, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *AuthUseCase) Signup(ctx context.Context, req *models.SignupRequest) error {
	email := normalizeEmail(req.Email)
	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, drepo.ErrNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := u.hasher.Hash(req.Password)
	if err != nil {
		return err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		CreatedAt:    u.now().UTC(),
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, drepo.ErrDuplicateEmail) {
			return ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	u.logger.Info("user signed up", applogger.String("user_id", user.ID))
	return nil
}

func (u *AuthUseCase) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, drepo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := u.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, ErrWrongPassword
	}

	token, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Message: MsgLoginOK, Token: token, User: user.Profile()}, nil
}

func (u *AuthUseCase) Me(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, drepo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	p := user.Profile()
	return &p, nil
}
