package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", HashString(""))
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", HashString("hello"))
	assert.Len(t, HashString("anything at all"), 32)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, HashString("hello_3"), Fingerprint("hello", "3"))
	assert.NotEqual(t, Fingerprint("hello", "3"), Fingerprint("hello", "4"))
}
