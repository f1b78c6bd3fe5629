package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server/config"
	"github.com/dmitrijs2005/idverifier/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/idverifier/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManager struct {
	migrateErr error
	closed     bool
	repo       users.Repository
}

func (m *fakeManager) RunMigrations(context.Context) error { return m.migrateErr }
func (m *fakeManager) Users() users.Repository             { return m.repo }
func (m *fakeManager) Close() error                        { m.closed = true; return nil }

func stubRepos(t *testing.T, m *fakeManager, err error) {
	t.Helper()
	orig := openRepositories
	t.Cleanup(func() { openRepositories = orig })
	openRepositories = func(ctx context.Context, c *config.Config, l logging.Logger) (repomanager.RepositoryManager, error) {
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.PasswordCost = 4
	return c
}

func TestNewApp_ServesAuth(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(), logging.Discard())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin","password":"admin123"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"ADMIN"`)
}

func TestNewApp_StoreError(t *testing.T) {
	stubRepos(t, nil, errors.New("unreachable"))

	_, err := NewApp(context.Background(), testConfig(), logging.Discard())
	assert.ErrorContains(t, err, "store init error: unreachable")
}

func TestNewApp_MigrationErrorClosesStore(t *testing.T) {
	m := &fakeManager{migrateErr: errors.New("bad sql")}
	stubRepos(t, m, nil)

	_, err := NewApp(context.Background(), testConfig(), logging.Discard())
	assert.ErrorContains(t, err, "schema bootstrap error: bad sql")
	assert.True(t, m.closed)
}

func TestNewApp_UnknownPasswordAlgorithm(t *testing.T) {
	m := &fakeManager{repo: users.NewMemoryRepository()}
	stubRepos(t, m, nil)

	c := testConfig()
	c.PasswordAlgorithm = "md5"
	_, err := NewApp(context.Background(), c, logging.Discard())
	assert.Error(t, err)
	assert.True(t, m.closed)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	m := &fakeManager{repo: users.NewMemoryRepository()}
	stubRepos(t, m, nil)

	app, err := NewApp(context.Background(), testConfig(), logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, m.closed)
}
