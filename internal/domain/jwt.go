package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// LiftlogClaims represents custom JWT claims for liftlog auth
type LiftlogClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
