package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxseal/waxseal/internal/domain"
)

func TestComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("genesis_entry_digests_exact_input", func(t *testing.T) {
		t.Parallel()

		createdAt := time.Date(2026, 1, 2, 3, 4, 5, 123_000_000, time.UTC)

		// The digest input is the pipe-joined fields, with empty resource id
		// and nil details rendered as "" and "{}".
		sum := sha256.Sum256([]byte("GENESIS|LOGIN||{}|2026-01-02T03:04:05.123Z"))
		want := hex.EncodeToString(sum[:])

		got := ComputeHash(domain.GenesisHash, "LOGIN", "", []byte("{}"), createdAt)
		assert.Equal(t, want, got)
		assert.Len(t, got, 64)
	})

	t.Run("actor_ip_and_user_agent_do_not_affect_digest", func(t *testing.T) {
		t.Parallel()

		base := domain.AuditEntry{
			ID:           uuid.New(),
			Actor:        "alice",
			Action:       "DOCUMENT_DELETED",
			ResourceID:   "doc-7",
			IPAddress:    "10.0.0.1",
			UserAgent:    "curl/8.5",
			CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			PreviousHash: domain.GenesisHash,
		}
		other := base
		other.ID = uuid.New()
		other.Actor = "bob"
		other.IPAddress = "192.168.1.9"
		other.UserAgent = "Mozilla/5.0"

		h1, err := EntryHash(&base)
		require.NoError(t, err)
		h2, err := EntryHash(&other)
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	})

	t.Run("every_chained_field_affects_digest", func(t *testing.T) {
		t.Parallel()

		createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		base := ComputeHash("prev", "LOGIN", "res", []byte("{}"), createdAt)

		assert.NotEqual(t, base, ComputeHash("other", "LOGIN", "res", []byte("{}"), createdAt))
		assert.NotEqual(t, base, ComputeHash("prev", "LOGOUT", "res", []byte("{}"), createdAt))
		assert.NotEqual(t, base, ComputeHash("prev", "LOGIN", "res2", []byte("{}"), createdAt))
		assert.NotEqual(t, base, ComputeHash("prev", "LOGIN", "res", []byte(`{"k":1}`), createdAt))
		assert.NotEqual(t, base, ComputeHash("prev", "LOGIN", "res", []byte("{}"), createdAt.Add(time.Millisecond)))
	})
}

func TestCanonicalDetails(t *testing.T) {
	t.Parallel()

	t.Run("nil_canonicalizes_to_empty_object", func(t *testing.T) {
		t.Parallel()

		b, err := CanonicalDetails(nil)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(b))
	})

	t.Run("keys_are_sorted_at_every_level", func(t *testing.T) {
		t.Parallel()

		b, err := CanonicalDetails(map[string]any{
			"zebra": 1,
			"alpha": map[string]any{"delta": true, "charlie": "x"},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"alpha":{"charlie":"x","delta":true},"zebra":1}`, string(b))
	})

	t.Run("unencodable_payload_fails", func(t *testing.T) {
		t.Parallel()

		_, err := CanonicalDetails(map[string]any{"fn": func() {}})
		assert.Error(t, err)
	})
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	t.Run("renders_utc_with_millisecond_padding", func(t *testing.T) {
		t.Parallel()

		loc := time.FixedZone("CET", 2*60*60)
		ts := time.Date(2026, 1, 2, 3, 4, 5, 7_000_000, loc)
		assert.Equal(t, "2026-01-02T01:04:05.007Z", FormatTime(ts))
	})

	t.Run("truncates_below_millisecond", func(t *testing.T) {
		t.Parallel()

		ts := time.Date(2026, 1, 2, 3, 4, 5, 123_999_999, time.UTC)
		assert.Equal(t, "2026-01-02T03:04:05.123Z", FormatTime(ts))
	})
}
