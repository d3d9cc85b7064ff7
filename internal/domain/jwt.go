package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the custom JWT claims of an access token
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
