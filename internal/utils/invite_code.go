package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/yukikurage/org-task-api/internal/constants"
)

const inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateInviteCode generates a random uppercase alphanumeric invite code,
// e.g. X7K2Q9.
func GenerateInviteCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(inviteCodeAlphabet)))
	code := make([]byte, constants.InviteCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// NormalizeInviteCode trims and upper-cases user supplied codes.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
