package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are carried by bearer tokens presented to the guard API.
// Subject identifies the caller (an identity provider instance or an administrator).
type TokenClaims struct {
	Type   string   `json:"type"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// Token types
const (
	TokenTypeService = "service"
	TokenTypeAdmin   = "admin"
)
