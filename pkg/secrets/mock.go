package secrets

import (
	"context"
)

var _ TokenSource = (*MockToken)(nil)

// NewMock returns a simple token source.
func NewMock(token string) *MockToken {
	return &MockToken{token: token}
}

// MockToken implements the TokenSource interface.
type MockToken struct {
	token string
	err   error
}

// Token implements the TokenSource interface.
func (k MockToken) Token(ctx context.Context) (string, error) {
	if k.err != nil {
		return "", k.err
	}
	return k.token, nil
}

// FailWithError configures the token source to return errors.
func (k *MockToken) FailWithError(err error) {
	k.err = err
}
