package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"database", "timeout"}, Tokenize("  Database   TIMEOUT "))
	assert.Empty(t, Tokenize("   "))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "hi", TruncateRunes("hi", 10))
	assert.Equal(t, "", TruncateRunes("hi", 0))
	assert.Equal(t, 5, RuneLen("héllo"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, EscapeLike("50% off_now"))
}
