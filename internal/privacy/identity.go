// Package privacy holds the pure building blocks of the compliance service:
// anonymized-identifier generation, placeholder derivation, and the
// redact-by-default scrubbing applied to behavioral records.
package privacy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// anonymizedIDLen is the hex length of participant anonymized IDs.
	anonymizedIDLen = 12

	// PlaceholderEmailDomain is the domain of anonymized placeholder emails.
	PlaceholderEmailDomain = "anonymized.local"
)

// NewAnonymizedID generates a fixed-length hex identifier for a participant.
// It only needs to be collision-resistant, not cryptographically meaningful:
// a truncated digest over random bytes is sufficient.
func NewAnonymizedID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])[:anonymizedIDLen], nil
}

// PlaceholderEmail derives the deterministic anonymized email for a
// participant: {anonymized_id}@anonymized.local.
func PlaceholderEmail(anonymizedID string) string {
	return fmt.Sprintf("%s@%s", anonymizedID, PlaceholderEmailDomain)
}

// PlaceholderName derives the deterministic anonymized display name.
func PlaceholderName(anonymizedID string) string {
	return "Participant " + anonymizedID
}

// ContentHash returns a short hex digest of free-text content, used to
// deduplicate chat messages. Collision resistance at identifier strength is
// all that is required.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}
