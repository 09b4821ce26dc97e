package model

import "time"

// Identity is the signed-in user as asserted by the identity provider.
type Identity struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}
