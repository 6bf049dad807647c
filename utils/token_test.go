package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken_URLSafe(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	// 16 bytes -> 22 unpadded base64url characters.
	assert.Len(t, token, 22)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_-]+$`), token)
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}
