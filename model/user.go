package model

import (
	"database/sql"
	"time"
)

// User represents a registered listener.
type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"` // never exposed in API responses
	DateOfBirth  sql.NullTime   `json:"dateOfBirth,omitempty"`
	Phone        sql.NullString `json:"phone,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
