// Package chain implements the tamper-evident hash chain over audit entries:
// a Writer that appends entries linked to the true store tail, a Verifier
// that replays the chain and reports the first broken link, and a Recorder
// that makes appends best-effort for business callers.
//
// Every entry's hash is computed as
//
//	SHA-256(previousHash | action | resourceId | canonicalJSON(details) | createdAt)
//
// rendered as lowercase hex. The first entry links to the literal sentinel
// "GENESIS". Actor, IP address and user agent are recorded but deliberately
// excluded from the digest.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/waxseal/waxseal/internal/domain"
)

// hashDelimiter joins the digest input fields. Values are not escaped; a
// pipe embedded in action or resourceId is hashed as-is. This matches the
// chains already persisted by earlier deployments, so changing the encoding
// would invalidate every stored entry.
const hashDelimiter = "|"

// timeLayout renders CreatedAt as ISO-8601 with millisecond precision.
// All timestamps are UTC, so the offset always prints as "Z".
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in the chain's canonical timestamp encoding.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// CanonicalDetails serializes a details payload to deterministic bytes.
// encoding/json sorts map keys at every nesting level, so two logically
// identical payloads always produce the same bytes regardless of the order
// the caller assembled them in. A nil payload canonicalizes to "{}".
func CanonicalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("chain.CanonicalDetails: %w", err)
	}
	return b, nil
}

// ComputeHash digests the chain-relevant fields of an entry. The result only
// depends on previousHash, action, resourceId, the canonical details bytes
// and the canonical createdAt rendering.
func ComputeHash(previousHash, action, resourceID string, canonicalDetails []byte, createdAt time.Time) string {
	input := strings.Join([]string{
		previousHash,
		action,
		resourceID,
		string(canonicalDetails),
		FormatTime(createdAt),
	}, hashDelimiter)

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// EntryHash recomputes the digest of an entry from its own stored fields.
func EntryHash(e *domain.AuditEntry) (string, error) {
	canonical, err := CanonicalDetails(e.Details)
	if err != nil {
		return "", err
	}
	return ComputeHash(e.PreviousHash, e.Action, e.ResourceID, canonical, e.CreatedAt), nil
}
