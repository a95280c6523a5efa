package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Role names. Keep these stable; they are part of the token contract.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Claims are the only supported JWT claims shape for this service.
// This is a single-operator dashboard: UserID identifies the login name and
// Role is admin or viewer; there is no tenancy dimension.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
