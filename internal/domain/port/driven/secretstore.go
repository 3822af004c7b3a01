package driven

import (
	"context"
	"errors"
)

// ErrSecretStoreNotConfigured is returned by SecretStore implementations that
// were constructed without an authorization token or target repository.
var ErrSecretStoreNotConfigured = errors.New("secret store not configured: set REPO_TOKEN and GITHUB_REPOSITORY")

// SecretStore persists a rotated credential for the next run. The adapter is
// responsible for any transport encryption; values cross this port in plaintext.
type SecretStore interface {
	Put(ctx context.Context, name, value string) error
}
