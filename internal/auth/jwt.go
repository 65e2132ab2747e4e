package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/pkg/crypto"
)

// Operator roles
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

const issuer = "enodebd"

// ErrInvalidCredentials is returned for unknown operators and wrong passwords
var ErrInvalidCredentials = errors.New("invalid credentials")

// JWTManager manages JWT tokens for the configured operators
type JWTManager struct {
	config    *config.JWTConfig
	operators map[string]config.OperatorConfig
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *config.JWTConfig, operators []config.OperatorConfig) *JWTManager {
	m := &JWTManager{
		config:    cfg,
		operators: make(map[string]config.OperatorConfig, len(operators)),
	}
	for _, op := range operators {
		if op.Role == "" {
			op.Role = RoleViewer
		}
		m.operators[op.Username] = op
	}
	return m
}

// Enabled reports whether any operator can log in
func (m *JWTManager) Enabled() bool {
	return len(m.operators) > 0
}

// Claims represents JWT claims
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the token grants write access
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Login verifies the password of username and issues a token pair
func (m *JWTManager) Login(username, password string) (string, string, error) {
	op, ok := m.operators[username]
	if !ok || !crypto.VerifyPassword(password, op.PasswordHash) {
		return "", "", ErrInvalidCredentials
	}
	return m.GenerateTokenPair(op)
}

// GenerateTokenPair generates access and refresh tokens
func (m *JWTManager) GenerateTokenPair(op config.OperatorConfig) (string, string, error) {
	now := time.Now()

	// Access token
	accessClaims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		Username: op.Username,
		Role:     op.Role,
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	// Refresh token
	refreshClaims := jwt.RegisteredClaims{
		Subject:   op.Username,
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
		ID:        uuid.New().String(),
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}

	return accessTokenString, refreshTokenString, nil
}

func (m *JWTManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(m.config.Secret), nil
}

// ValidateToken validates an access token
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, m.keyFunc, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// RefreshToken issues a new token pair for a valid refresh token of an
// operator that is still configured
func (m *JWTManager) RefreshToken(refreshTokenString string) (string, string, error) {
	token, err := jwt.ParseWithClaims(refreshTokenString, &jwt.RegisteredClaims{}, m.keyFunc, jwt.WithIssuer(issuer))
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid refresh token")
	}

	op, ok := m.operators[claims.Subject]
	if !ok {
		return "", "", ErrInvalidCredentials
	}

	return m.GenerateTokenPair(op)
}
