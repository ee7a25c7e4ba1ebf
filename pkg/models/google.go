package models

import (
	"time"

	"github.com/google/uuid"
)

// Google Docs connection states as seen by the client.
const (
	GoogleStateNotConnected = "not_connected"
	GoogleStateConnecting   = "connecting"
	GoogleStateConnected    = "connected"
	GoogleStateExported     = "exported"
)

// GoogleConnection stores a user's long-lived Google refresh token.
// RefreshToken is the encrypted form; it is never serialized.
type GoogleConnection struct {
	UserID       uuid.UUID `db:"user_id"       json:"user_id"`
	Email        string    `db:"email"         json:"email"`
	RefreshToken []byte    `db:"refresh_token" json:"-"`
	ConnectedAt  time.Time `db:"connected_at"  json:"connected_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}
