package managed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const serviceAccount = `{"type":"service_account","project_id":"tracker","client_email":"svc@tracker.iam.gserviceaccount.com"}`

func TestResolveCredentials_ExplicitPath(t *testing.T) {
	t.Setenv(CredentialsEnv, "")
	path := writeFile(t, "sa.json", serviceAccount)

	creds, err := ResolveCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, path, creds.Path)
	assert.Equal(t, "tracker", creds.ProjectID)
	assert.Equal(t, "svc@tracker.iam.gserviceaccount.com", creds.ClientEmail)
}

func TestResolveCredentials_EnvOverridesPath(t *testing.T) {
	envPath := writeFile(t, "env.json", `{"type":"service_account","project_id":"from-env"}`)
	t.Setenv(CredentialsEnv, envPath)

	creds, err := ResolveCredentials(writeFile(t, "sa.json", serviceAccount))
	require.NoError(t, err)
	assert.Equal(t, "from-env", creds.ProjectID)
}

func TestResolveCredentials_Rejected(t *testing.T) {
	t.Setenv(CredentialsEnv, "")

	tests := []struct {
		name string
		path string
	}{
		{"no path", ""},
		{"missing file", filepath.Join(t.TempDir(), "absent.json")},
		{"invalid json", writeFile(t, "bad.json", "{not json")},
		{"user credentials", writeFile(t, "user.json", `{"type":"authorized_user"}`)},
		{"no type", writeFile(t, "empty.json", `{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := ResolveCredentials(tt.path)
			assert.Nil(t, creds)
			assert.ErrorIs(t, err, watch.ErrNoCredentials)
		})
	}
}
