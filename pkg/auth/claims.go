package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role the admin API accepts.
const RoleAdmin = "admin"

// AdminClaims is the typed JWT carried by admin API requests.
type AdminClaims struct {
	ChatID int64  `json:"chat_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
