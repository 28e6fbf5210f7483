package managed

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// CredentialsEnv overrides the configured credentials path
const CredentialsEnv = "DOCWATCH_ADMIN_CREDENTIALS"

// typeServiceAccount is the only accepted credential file type
const typeServiceAccount = "service_account"

// Credentials is the subset of a service account key file that is validated
type Credentials struct {
	Path        string `json:"-"`
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

// ResolveCredentials locates elevated credentials from an explicit path or
// the CredentialsEnv override. Ambient discovery (well-known files, metadata
// server) is never used.
func ResolveCredentials(explicitPath string) (*Credentials, error) {
	path := explicitPath
	if env := os.Getenv(CredentialsEnv); env != "" {
		path = env
	}
	if path == "" {
		return nil, fmt.Errorf("%w: set watch.managed.credentials_path or %s", watch.ErrNoCredentials, CredentialsEnv)
	}
	return parseCredentials(path)
}

func parseCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- Reading explicitly configured credential file
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %w", watch.ErrNoCredentials, path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in %s: %w", watch.ErrNoCredentials, path, err)
	}
	if creds.Type != typeServiceAccount {
		return nil, fmt.Errorf("%w: %s has type %q, want %q", watch.ErrNoCredentials, path, creds.Type, typeServiceAccount)
	}

	creds.Path = path
	return &creds, nil
}
