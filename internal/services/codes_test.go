package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeGenerator_Generate_LengthAndAlphabet(t *testing.T) {
	req := require.New(t)
	gen := NewCodeGenerator(4, 10)

	code, err := gen.Generate(func(string) bool { return false })
	req.NoError(err)
	req.Len(code, 4)
	for _, r := range code {
		req.True(strings.ContainsRune(codeAlphabet, r), "unexpected rune %q in code %q", r, code)
	}
}

func TestCodeGenerator_Generate_RetriesOnCollision(t *testing.T) {
	req := require.New(t)
	gen := NewCodeGenerator(4, 10)

	rejected := 0
	code, err := gen.Generate(func(string) bool {
		if rejected < 3 {
			rejected++
			return true
		}
		return false
	})
	req.NoError(err)
	req.NotEmpty(code)
	req.Equal(3, rejected)
}

func TestCodeGenerator_Generate_Exhaustion(t *testing.T) {
	req := require.New(t)
	gen := NewCodeGenerator(4, 10)

	attempts := 0
	_, err := gen.Generate(func(string) bool {
		attempts++
		return true
	})
	req.ErrorIs(err, ErrCodeSpaceExhausted)
	req.Equal(10, attempts)
}

func TestCodeGenerator_Defaults(t *testing.T) {
	req := require.New(t)
	gen := NewCodeGenerator(0, 0)

	code, err := gen.Generate(func(string) bool { return false })
	req.NoError(err)
	req.Len(code, 4)
}
