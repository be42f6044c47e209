// Package auth provides authentication mechanisms for artifact repositories.
package auth

import (
	"net/http"
)

// Authenticator is the interface for repository authentication.
type Authenticator interface {
	// Authenticate adds authentication to the request
	Authenticate(req *http.Request) error
}

// AuthType represents the type of authentication.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeAPIKey AuthType = "apikey"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeBasic  AuthType = "basic"
)
