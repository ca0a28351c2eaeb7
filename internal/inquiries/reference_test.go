package inquiries

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReference(t *testing.T) {
	at := time.UnixMilli(1712345678901)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref, err := NewReference(at)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(ref, "TG-1712345678901-"), ref)
		require.True(t, ValidReference(ref), ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 45)

	assert.False(t, ValidReference("TG-1712345678901-abc"))
	assert.False(t, ValidReference("XX-1712345678901-ABCDEFGHI"))
}

func TestParseQueryEnums(t *testing.T) {
	assert.Equal(t, SortQuoteAmount, ParseSortField("quoteAmount"))
	assert.Equal(t, SortUrgency, ParseSortField("urgency"))
	assert.Equal(t, SortCreatedAt, ParseSortField("id; DROP TABLE inquiries"))

	assert.Equal(t, Period90d, ParseDashboardPeriod("90d"))
	assert.Equal(t, Period30d, ParseDashboardPeriod(""))
	assert.Equal(t, 7*24*time.Hour, Period7d.Duration())
}
