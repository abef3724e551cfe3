package cv

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrEmptyText is returned for resumes whose extracted text is empty or
// whitespace only. Such uploads are rejected before ingestion.
var ErrEmptyText = errors.New("resume text is empty")

// NormalizeText collapses all whitespace runs to single spaces and trims
// the result, so that formatting differences between two extractions of
// the same document do not change the fingerprint.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// HashText returns the hex SHA-256 digest of the normalized text. The
// digest is the uniqueness key on resumes: identical text always yields
// the identical digest.
func HashText(text string) (string, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		return "", ErrEmptyText
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}
