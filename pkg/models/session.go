package models

import "github.com/google/uuid"

// Session identifies the authenticated caller. It is built from the hosted
// auth provider's token and passed explicitly into user-facing operations.
type Session struct {
	UserID uuid.UUID
	Email  string
}
