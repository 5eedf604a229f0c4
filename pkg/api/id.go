package api

import (
	"regexp"

	"github.com/google/uuid"
)

const sessionIDPrefix = "sess_"

var sessionIDPattern = regexp.MustCompile(`^sess_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// NewSessionID generates a new session ID with the "sess_" prefix
// followed by a random UUID.
func NewSessionID() string {
	return sessionIDPrefix + uuid.NewString()
}

// ValidateSessionID checks whether the given string is a well-formed
// session ID ("sess_" + UUID).
func ValidateSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}
