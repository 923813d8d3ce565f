package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const surveyTokenBytes = 16

// TokenGenerator produces opaque survey form tokens.
type TokenGenerator func() (string, error)

// NewSurveyToken returns 128 random bits, hex encoded.
func NewSurveyToken() (string, error) {
	buf := make([]byte, surveyTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate survey token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
