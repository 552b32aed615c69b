package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"friendnet/internal/config"
)

// TokenType distinguishes the two halves of a TokenPair.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrInvalidToken   = errors.New("token is invalid or expired")
	ErrWrongTokenType = errors.New("token has the wrong type")
	ErrTokenRevoked   = errors.New("token has been revoked")
)

// Claims are the custom JWT claims, embedding jwt.RegisteredClaims.
type Claims struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenIssuer signs and validates HS256 tokens. A nil blacklist disables
// revocation checks.
type TokenIssuer struct {
	cfg       config.AuthConfig
	blacklist TokenBlacklist
	now       func() time.Time
}

// NewTokenIssuer creates a TokenIssuer from the auth configuration.
func NewTokenIssuer(cfg config.AuthConfig, blacklist TokenBlacklist) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, blacklist: blacklist, now: time.Now}
}

// IssuePair generates a fresh access and refresh token for the user.
func (i *TokenIssuer) IssuePair(userID uint, username string) (TokenPair, error) {
	access, err := i.generate(userID, username, AccessToken, i.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.generate(userID, username, RefreshToken, i.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess generates a new access token only.
func (i *TokenIssuer) IssueAccess(userID uint, username string) (string, error) {
	return i.generate(userID, username, AccessToken, i.cfg.AccessTokenTTL)
}

func (i *TokenIssuer) generate(userID uint, username string, typ TokenType, ttl time.Duration) (string, error) {
	jwtID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}

	now := i.now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jwtID.String(),
			Issuer:    i.cfg.JWTIssuer,
			Subject:   fmt.Sprint(userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(i.cfg.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Validate parses tokenString, checks signature, expiry, issuer, type and
// the blacklist, and returns its claims.
func (i *TokenIssuer) Validate(ctx context.Context, tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(i.cfg.JWTSecretKey), nil
	},
		jwt.WithIssuer(i.cfg.JWTIssuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != want {
		return nil, ErrWrongTokenType
	}

	if i.blacklist != nil {
		if claims.ID == "" {
			return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
		}
		revoked, err := i.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check token blacklist: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token's jti until its original expiry.
// Without a blacklist it is a no-op.
func (i *TokenIssuer) Revoke(ctx context.Context, claims *Claims) error {
	if i.blacklist == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return i.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}
