// Package rand generates connection identifiers.
package rand

import "github.com/google/uuid"

// GenerateSessionID returns a new random (version 4) UUID in string form, used to tag every log line of a proxied connection.
func GenerateSessionID() string {
	return uuid.NewString()
}
