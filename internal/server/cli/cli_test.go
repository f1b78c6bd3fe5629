package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server/auth"
	"github.com/dmitrijs2005/idverifier/internal/server/config"
	"github.com/dmitrijs2005/idverifier/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/idverifier/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func stubServer(t *testing.T) **config.Config {
	t.Helper()
	var got *config.Config
	orig := runServer
	t.Cleanup(func() { runServer = orig })
	runServer = func(ctx context.Context, c *config.Config, l logging.Logger) error {
		got = c
		return nil
	}
	return &got
}

func TestRoot_DefaultsToServe(t *testing.T) {
	got := stubServer(t)

	_, err := execute(t, "")
	require.NoError(t, err)
	require.NotNil(t, *got)
	assert.Equal(t, ":8080", (*got).HTTPAddr)
	assert.Equal(t, config.BackendMemory, (*got).StoreBackend)
}

func TestServe_FlagsOverrideEnv(t *testing.T) {
	got := stubServer(t)
	t.Setenv("IDV_HTTP_ADDR", ":7000")
	t.Setenv("IDV_LOG_LEVEL", "debug")

	_, err := execute(t, "", "serve", "--http-addr", "127.0.0.1:9999")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", (*got).HTTPAddr)
	assert.Equal(t, "debug", (*got).LogLevel)
}

func TestServe_ConfigFile(t *testing.T) {
	got := stubServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":6060\"\njwt_ttl: 1h\n"), 0o600))

	_, err := execute(t, "", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", (*got).HTTPAddr)
	assert.Equal(t, "1h0m0s", (*got).JWTTTL.String())
}

func TestServe_InvalidConfig(t *testing.T) {
	stubServer(t)

	_, err := execute(t, "", "--store-backend", "bogus")
	assert.Error(t, err)
}

func TestServe_PropagatesRunError(t *testing.T) {
	orig := runServer
	t.Cleanup(func() { runServer = orig })
	runServer = func(context.Context, *config.Config, logging.Logger) error {
		return errors.New("listen failed")
	}

	_, err := execute(t, "")
	assert.EqualError(t, err, "listen failed")
}

type fakeManager struct {
	migrated bool
	closed   bool
	err      error
}

func (m *fakeManager) RunMigrations(context.Context) error { m.migrated = true; return m.err }
func (m *fakeManager) Users() users.Repository             { return users.NewMemoryRepository() }
func (m *fakeManager) Close() error                        { m.closed = true; return nil }

func stubRepos(t *testing.T, m *fakeManager, openErr error) {
	t.Helper()
	orig := openRepositories
	t.Cleanup(func() { openRepositories = orig })
	openRepositories = func(context.Context, *config.Config, logging.Logger) (repomanager.RepositoryManager, error) {
		if openErr != nil {
			return nil, openErr
		}
		return m, nil
	}
}

func TestMigrate_RunsAndCloses(t *testing.T) {
	m := &fakeManager{}
	stubRepos(t, m, nil)

	_, err := execute(t, "", "migrate")
	require.NoError(t, err)
	assert.True(t, m.migrated)
	assert.True(t, m.closed)
}

func TestMigrate_Errors(t *testing.T) {
	m := &fakeManager{err: errors.New("bad sql")}
	stubRepos(t, m, nil)

	_, err := execute(t, "", "migrate")
	assert.ErrorContains(t, err, "bad sql")
	assert.True(t, m.closed)

	stubRepos(t, nil, errors.New("unreachable"))
	_, err = execute(t, "", "migrate")
	assert.ErrorContains(t, err, "store init error: unreachable")
}

func TestMigrate_MemoryBackend(t *testing.T) {
	_, err := execute(t, "", "migrate", "--store-backend", "memory")
	assert.NoError(t, err)
}

func TestHashPassword_FromStdin(t *testing.T) {
	out, err := execute(t, "Secret123\n", "hash-password")
	require.NoError(t, err)

	digest := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(digest, "$2a$"), digest)

	h, err := auth.NewPasswordHasher("bcrypt", 0)
	require.NoError(t, err)
	assert.True(t, h.Verify("Secret123", digest))
}

func TestHashPassword_Argon2id(t *testing.T) {
	t.Setenv("IDV_PASSWORD_ALGORITHM", "argon2id")

	out, err := execute(t, "Secret123", "hash-password")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "$argon2id$"), out)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := execute(t, "\n", "hash-password")
	assert.ErrorIs(t, err, errEmptyPassword)
}

func TestReadSecret_Terminal(t *testing.T) {
	origRead, origTerm := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = origRead, origTerm })
	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("hunter22"), nil }

	var prompt bytes.Buffer
	pw, err := readSecret(os.Stdin, &prompt)
	require.NoError(t, err)
	assert.Equal(t, "hunter22", pw)
	assert.Contains(t, prompt.String(), "Enter password: ")

	readPassword = func(int) ([]byte, error) { return nil, errors.New("tty closed") }
	_, err = readSecret(os.Stdin, &prompt)
	assert.EqualError(t, err, "tty closed")
}
