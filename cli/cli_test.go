package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conference.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	path := useTempSQLite(t)

	output, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, output, "schema up to date (sqlite)")
	assert.FileExists(t, path)
}

func TestMigrateRejectsUnknownDriver(t *testing.T) {
	useTempSQLite(t)
	t.Setenv("DB_DRIVER", "oracle")

	_, err := execute(t, "migrate")
	assert.ErrorContains(t, err, "unknown DB_DRIVER")
}

func TestCreateAdmin(t *testing.T) {
	useTempSQLite(t)

	output, err := execute(t, "create-admin", "--username", "root", "--email", "root@example.com", "--password", "changeme")
	require.NoError(t, err)
	assert.Contains(t, output, "created admin root")

	_, err = execute(t, "create-admin", "--username", "root", "--email", "other@example.com", "--password", "changeme")
	assert.ErrorContains(t, err, "Username already exists")

	_, err = execute(t, "create-admin", "--username", "root2", "--email", "root2@example.com")
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	useTempSQLite(t)
	seedPath := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`users:
  - username: ada
    email: ada@example.com
    password: lovelace
    full_name: Ada Lovelace
    role: coordinator
  - username: alan
    email: alan@example.com
    password: enigma1
    full_name: Alan Turing
`), 0o600))

	output, err := execute(t, "seed", "--file", seedPath)
	require.NoError(t, err)
	assert.Contains(t, output, "created 2 user(s), skipped 0")

	output, err = execute(t, "seed", "-f", seedPath)
	require.NoError(t, err)
	assert.Contains(t, output, "created 0 user(s), skipped 2")
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		description string
		content     string
		expectedErr bool
	}{
		{"default role", "users:\n  - username: ada\n", false},
		{"unknown role", "users:\n  - username: ada\n    role: speaker\n", true},
		{"not yaml", "users: [", true},
	}
	for i, test := range tests {
		path := filepath.Join(dir, "seed"+string(rune('a'+i))+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(test.content), 0o600))

		seed, err := LoadSeedFile(path)
		if test.expectedErr {
			assert.Errorf(t, err, test.description)
			continue
		}
		require.NoErrorf(t, err, test.description)
		assert.Equalf(t, "USER", seed.Users[0].Role, test.description)
	}

	_, err := LoadSeedFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestServeRequiresSigningKey(t *testing.T) {
	useTempSQLite(t)
	t.Setenv("SIGN", "short")

	_, err := execute(t, "serve")
	assert.ErrorContains(t, err, "SIGN must be at least")
}
