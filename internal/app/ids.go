package app

import "github.com/google/uuid"

// NewPlayerID returns a fresh player identifier for the seat cookie.
func NewPlayerID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed game or player identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newGameID() string {
	return uuid.NewString()
}
