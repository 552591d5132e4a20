package models

import "time"

// Holder is an account that borrows copies and authenticates to the server.
type Holder struct {
	ID          string
	Login       string
	DisplayName string
	Role        string
	SecretHash  string
	CreatedAt   time.Time
}
