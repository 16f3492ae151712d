package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waxseal/waxseal/internal/domain"
)

func TestSeverityValid(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.SeverityInfo.Valid())
	assert.True(t, domain.SeverityWarning.Valid())
	assert.True(t, domain.SeverityCritical.Valid())

	assert.False(t, domain.Severity("").Valid())
	assert.False(t, domain.Severity("FATAL").Valid())
	assert.False(t, domain.Severity("info").Valid(), "severities are case sensitive")
}

func TestGenesisHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GENESIS", domain.GenesisHash)
}
