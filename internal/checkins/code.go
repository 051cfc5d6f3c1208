package checkins

import (
	"crypto/rand"
	"strings"
)

// codeAlphabet omits easily confused characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the length of a check-in code.
const CodeLength = 6

// GenerateCode returns a new random check-in code. Codes are short and human
// typable; rotating the code invalidates the previous one.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// CodeMatches compares a submitted code against the current one, ignoring case.
func CodeMatches(current, submitted string) bool {
	return current != "" && strings.EqualFold(current, submitted)
}
