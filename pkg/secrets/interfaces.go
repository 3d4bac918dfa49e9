package secrets

import "context"

// TokenSource returns the token used to authenticate with the repository
// host, or an error.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
