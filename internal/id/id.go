// Package id generates the prefixed identifiers used across the service.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// The alphabet drops NanoID's default '-' and '_' so the prefix separator
// stays unambiguous when IDs end up inside composite store keys.
const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	length   = 20
)

// Generate returns a new ID of the form "<prefix>-<random>", e.g.
// "ps-hK93RzXq0bT2mWcAdLn4". The prefix names the entity kind so IDs stay
// recognizable in logs and store keys.
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate id suffix: %w", err)
	}
	return prefix + "-" + suffix, nil
}
