package application

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// appendUnique appends id only when the slice does not already contain it.
// Recipient sets are small, linear scan beats allocating a map per call.
func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// randomHex returns a cryptographically random hex token. A read error must
// surface: a short or zeroed secret is worse than a failed issuance.
func randomHex(bytesLen int) (string, error) {
	raw := make([]byte, bytesLen)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
