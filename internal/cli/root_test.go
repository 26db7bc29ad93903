package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_storefront/internal/auth"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestConfigFlagDefaultsToEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/etc/storefront.yaml")
	flag := NewRootCommand().PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "/etc/storefront.yaml", flag.DefValue)
}

func runToken(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"token"}, args...))
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestTokenCommand_IssuesAdminToken(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "cli-secret")

	token, err := runToken(t, "--user", "u-42", "--name", "Root", "--admin")
	require.NoError(t, err)

	id, err := auth.NewGate("cli-secret", time.Hour).Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-42", id.UserID)
	assert.Equal(t, "Root", id.Name)
	assert.True(t, id.IsAdmin())
}

func TestTokenCommand_ReadsSecretFromConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "")

	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt_secret: from-file\ntoken_ttl: 2h\n"), 0o600))

	token, err := runToken(t, "--config", path, "--user", "u-1")
	require.NoError(t, err)

	id, err := auth.NewGate("from-file", time.Hour).Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, id.IsAdmin())
}

func TestTokenCommand_RequiresUser(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	_, err := runToken(t)
	assert.Error(t, err)
}
