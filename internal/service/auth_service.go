package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/apperror"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	errInvalidCredentials = apperror.Unauthorized("Invalid credentials")
	errTokenRevoked       = errors.New("token revoked")
)

// Claims extends JWT registered claims with the caller identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID int          `json:"user_id"`
	Roles  []model.Role `json:"roles"`
}

// HasRole reports whether the token grants role.
func (c *Claims) HasRole(role model.Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenRevoker remembers logged-out token ids until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthConfig carries the signing parameters.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
}

// AuthService handles teacher login and JWT issuance.
type AuthService struct {
	cfg     AuthConfig
	users   UserStore
	hasher  PasswordHasher
	revoker TokenRevoker
	now     func() time.Time
	log     zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg AuthConfig, users UserStore, hasher PasswordHasher, revoker TokenRevoker, log zerolog.Logger) *AuthService {
	return &AuthService{cfg: cfg, users: users, hasher: hasher, revoker: revoker, now: time.Now, log: log}
}

// Login authenticates an active teacher by registry and password.
func (s *AuthService) Login(ctx context.Context, registry, password string) (*model.TeacherLoginResponse, error) {
	u, err := s.users.GetByRegistry(ctx, registry)
	if isNotFound(err) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load user for login")
		return nil, apperror.Wrap(err, "Failed to login")
	}
	if !u.IsActive || !u.HasRole(model.RoleTeacher) || u.PasswordHash == nil {
		return nil, errInvalidCredentials
	}
	if !s.hasher.Compare(*u.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	token, err := s.GenerateToken(u)
	if err != nil {
		s.log.Error().Err(err).Int("user_id", u.ID).Msg("Failed to sign token")
		return nil, apperror.BadRequest("Failed to login")
	}
	return &model.TeacherLoginResponse{AccessToken: token, User: *u}, nil
}

// GenerateToken signs an HS256 token for u.
func (s *AuthService) GenerateToken(u *model.User) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiry)),
		},
		UserID: u.ID,
		Roles:  u.Roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses tokenStr and rejects revoked tokens.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, errTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token id until the token would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		s.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Failed to revoke token")
		return apperror.BadRequest("Failed to logout")
	}
	return nil
}

// IsTokenExpired reports whether err came from an expired token.
func IsTokenExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
