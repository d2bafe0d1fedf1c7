package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/civil"
	"github.com/gmsas95/medreminder/internal/config"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medform"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/store"
)

func setupTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	application, err := New(cfg, st, zap.NewNop(), "test")
	require.NoError(t, err)
	return application
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{JWTSecret: "test-secret", TokenTTL: 1},
		Form:     config.FormConfig{InteractionModel: "immediate", Timezone: "UTC"},
		Notify:   config.NotifyConfig{PermissionGranted: true, Tick: "@every 1h", Deliverers: []string{"log"}},
	}
}

func TestNew(t *testing.T) {
	application := setupTestApp(t, testConfig())
	assert.Equal(t, "test", application.Version)
	assert.Len(t, application.Catalog.Get().Types, 8)
	assert.NotNil(t, application.Accounts)
	assert.NotNil(t, application.Outbox)
}

func TestNew_CatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  - name: Patch\n"), 0o644))

	cfg := testConfig()
	cfg.Form.CatalogPath = path
	application := setupTestApp(t, cfg)
	require.Len(t, application.Catalog.Get().Types, 1)
	assert.Equal(t, "Patch", application.Catalog.Get().Types[0].Name)

	cfg.Form.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	defer st.Close()
	_, err = New(cfg, st, zap.NewNop(), "test")
	assert.Error(t, err)
}

func TestNewSession(t *testing.T) {
	application := setupTestApp(t, testConfig())
	s := application.NewSession(context.Background(), "alice")

	assert.Equal(t, "alice", s.UserID())
	assert.Equal(t, medform.ImmediateCommit, s.Model())
	assert.Equal(t, reminder.PermissionGranted, s.Permission())

	trigger := s.NextTrigger(civil.TimeOfDay{Hour: 9})
	assert.Equal(t, time.UTC, trigger.Location())
	assert.True(t, trigger.After(time.Now()))
}

func TestRunForm_RequiresUser(t *testing.T) {
	application := setupTestApp(t, testConfig())
	assert.ErrorIs(t, application.RunForm(), apperrors.ErrNoCurrentUser)
}

func TestStartDispatcher(t *testing.T) {
	application := setupTestApp(t, testConfig())
	require.NoError(t, application.StartDispatcher())
	defer application.dispatcher.Stop()
	assert.True(t, application.dispatcher.IsRunning())

	cfg := testConfig()
	cfg.Notify.Deliverers = []string{"pager"}
	assert.Error(t, setupTestApp(t, cfg).StartDispatcher())
}
