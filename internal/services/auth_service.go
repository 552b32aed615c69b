package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"friendnet/internal/auth"
	"friendnet/internal/config"
	"friendnet/internal/logger"
	"friendnet/internal/models"
	"friendnet/internal/storage"
)

// AuthService defines the signup/login surface.
type AuthService interface {
	Signup(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Logout revokes the caller's access token and, if given, their refresh token.
	Logout(ctx context.Context, caller auth.Identity, refreshToken string) error
}

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

const maxEmailLength = 254

type authService struct {
	userRepo storage.UserRepository
	tokens   *auth.TokenIssuer
	cfg      config.AuthConfig
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo storage.UserRepository, tokens *auth.TokenIssuer, cfg config.AuthConfig) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens, cfg: cfg}
}

func (s *authService) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := s.validateSignup(username, email, password); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// lost a race with a concurrent signup
			if _, lookupErr := s.userRepo.GetByEmail(ctx, email); lookupErr == nil {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user signed up")
	return user, nil
}

func (s *authService) validateSignup(username, email, password string) error {
	fields := map[string]string{}

	switch {
	case username == "":
		fields["username"] = "This field is required."
	case !usernamePattern.MatchString(username):
		fields["username"] = "Enter a valid username of at most 150 letters, digits and @/./+/-/_ characters."
	}

	switch {
	case email == "":
		fields["email"] = "This field is required."
	case len(email) > maxEmailLength || !isPlainAddress(email):
		fields["email"] = "Enter a valid email address."
	}

	switch {
	case password == "":
		fields["password"] = "This field is required."
	case len(password) < s.cfg.MinPasswordLength:
		fields["password"] = fmt.Sprintf("Ensure this field has at least %d characters.", s.cfg.MinPasswordLength)
	}

	if len(fields) > 0 {
		return FieldErrors(fields)
	}
	return nil
}

// isPlainAddress accepts bare addresses only, not "Name <addr>" forms.
func isPlainAddress(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func (s *authService) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return auth.TokenPair{}, ErrInvalidCredentials
	} else if err != nil {
		return auth.TokenPair{}, fmt.Errorf("look up user by email: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return auth.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	logger.Log.WithField("user_id", user.ID).Info("user logged in")
	return pair, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.validate(ctx, refreshToken, auth.RefreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrInvalidToken
	} else if err != nil {
		return "", fmt.Errorf("look up token subject: %w", err)
	}

	access, err := s.tokens.IssueAccess(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

func (s *authService) Logout(ctx context.Context, caller auth.Identity, refreshToken string) error {
	if refreshToken != "" {
		claims, err := s.validate(ctx, refreshToken, auth.RefreshToken)
		if err != nil {
			return err
		}
		if claims.UserID != caller.UserID {
			return ErrInvalidToken
		}
		if err := s.tokens.Revoke(ctx, claims); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}
	if err := s.tokens.Revoke(ctx, caller.Claims); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	logger.Log.WithField("user_id", caller.UserID).Info("user logged out")
	return nil
}

// validate maps token failures onto ErrInvalidToken and leaves
// infrastructure failures (blacklist unreachable) as internal errors.
func (s *authService) validate(ctx context.Context, token string, typ auth.TokenType) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(ctx, token, typ)
	if err == nil {
		return claims, nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrWrongTokenType) || errors.Is(err, auth.ErrTokenRevoked) {
		return nil, ErrInvalidToken
	}
	return nil, err
}
