package services

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// codeAlphabet keeps room codes easy to read out loud and retype.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrCodeSpaceExhausted is returned when the generator cannot find a free
// code within its retry budget. Safe to retry later; fatal to the attempt.
var ErrCodeSpaceExhausted = errors.New("room code space exhausted")

// CodeGenerator produces fixed-length room codes, rejecting collisions
// against the caller-supplied live set.
type CodeGenerator struct {
	length      int
	maxAttempts int
}

func NewCodeGenerator(length, maxAttempts int) *CodeGenerator {
	if length <= 0 {
		length = 4
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &CodeGenerator{length: length, maxAttempts: maxAttempts}
}

// Generate returns a code for which taken reports false. After maxAttempts
// collisions it gives up with ErrCodeSpaceExhausted rather than looping.
func (g *CodeGenerator) Generate(taken func(string) bool) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.randomCode()
		if err != nil {
			return "", err
		}
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func (g *CodeGenerator) randomCode() (string, error) {
	buf := make([]byte, g.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
