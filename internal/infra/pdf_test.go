package infra

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateDescriptionShortUnchanged(t *testing.T) {
	assert.Equal(t, "courier fee", truncateDescription("courier fee"))
	exact := strings.Repeat("x", 48)
	assert.Equal(t, exact, truncateDescription(exact))
}

func TestTruncateDescriptionLong(t *testing.T) {
	long := strings.Repeat("x", 60)
	got := truncateDescription(long)
	assert.Equal(t, 48, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestTruncateDescriptionMultibyte(t *testing.T) {
	// 60 two-byte runes; a byte-indexed cut would split one in half.
	long := strings.Repeat("é", 60)
	got := truncateDescription(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 48, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("é", 47)+"…", got)
}
