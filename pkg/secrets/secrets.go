package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// StaticToken is a TokenSource for a token that was provided directly.
type StaticToken string

// Token is an implementation of the TokenSource interface.
func (s StaticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// FileToken reads the token from a file every time it is requested, so
// that the file can be rotated without restarting.
type FileToken struct {
	path string
}

// NewFileToken creates and returns a FileToken that reads from path.
func NewFileToken(path string) *FileToken {
	return &FileToken{path: path}
}

// Token is an implementation of the TokenSource interface.
//
// Leading and trailing whitespace is removed.
func (f FileToken) Token(ctx context.Context) (string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("error reading token file %s: %w", f.path, err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", fmt.Errorf("token file invalid, %s is empty", f.path)
	}
	return token, nil
}

// New returns a TokenSource for a token, or a token file.
//
// If both are provided, the file takes precedence.
func New(token, tokenFile string) (TokenSource, error) {
	if tokenFile != "" {
		return NewFileToken(tokenFile), nil
	}
	if token != "" {
		return StaticToken(token), nil
	}
	return nil, errors.New("no token or token file configured")
}
