package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const TokenTypeAccess TokenType = "access"

// Claims are the only supported JWT claims shape for the dashboard.
// Every token is scoped to exactly one customer account.
type Claims struct {
	jwt.RegisteredClaims

	UserID     string    `json:"user_id"`
	CustomerID int64     `json:"customer_id"`
	Role       string    `json:"role"`
	TokenType  TokenType `json:"token_type"`
}
