package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}

// Fingerprint joins parts with "_" and hashes the result.
func Fingerprint(parts ...string) string {
	return HashString(strings.Join(parts, "_"))
}
