package models

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims are the JWT claims issued to a logged-in operator of the
// card administration API.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}
