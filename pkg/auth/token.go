package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/stashbot/pkg/config"
)

var (
	ErrNoSecret   = errors.New("jwt secret is required")
	ErrWrongAdmin = errors.New("token not issued to the configured admin")
)

const clockSkew = 30 * time.Second

// MintAdminToken signs an HS256 admin token for chatID valid for cfg.TokenTTL().
func MintAdminToken(cfg config.AdminConfig, now time.Time, chatID int64) (string, error) {
	switch {
	case cfg.JWTSecret == "":
		return "", ErrNoSecret
	case cfg.JWTIssuer == "":
		return "", errors.New("jwt issuer is required")
	case chatID == 0:
		return "", errors.New("admin chat id is required")
	}

	claims := AdminClaims{
		ChatID: chatID,
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.JWTIssuer,
			Subject:   strconv.FormatInt(chatID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// ParseAdminToken verifies signature, issuer and expiry, then checks the
// token belongs to the configured admin.
func ParseAdminToken(cfg config.AdminConfig, raw string) (*AdminClaims, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.JWTIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	claims := &AdminClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}); err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin {
		return nil, fmt.Errorf("unexpected role %q", claims.Role)
	}
	if cfg.ChatID != 0 && claims.ChatID != cfg.ChatID {
		return nil, ErrWrongAdmin
	}
	return claims, nil
}
