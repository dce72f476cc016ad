package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims is the verified identity issued by the auth service.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
