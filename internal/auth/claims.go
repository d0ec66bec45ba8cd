package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// ActorID is the reviewer or service identity threaded into audit entries;
// Role drives the RBAC checks on reviewer-only surfaces.
type Claims struct {
	jwt.RegisteredClaims

	ActorID   string    `json:"actor_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
