package model

import "time"

// User represents a registered account in the credential store. Passwords
// are stored as PHC-formatted argon2id hashes, never in plaintext.
type User struct {
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // argon2id hash, never expose
	Disabled     bool      `json:"disabled" db:"disabled"`
	Admin        bool      `json:"admin" db:"admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
