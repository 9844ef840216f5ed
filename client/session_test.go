package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin", "session.json")
	store := NewFileTokenStore(path)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	creds := Credentials{Token: "abc", User: json.RawMessage(`{"id":1,"name":"Ada"}`)}
	require.NoError(t, store.Save(creds))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", got.Token)
	assert.JSONEq(t, `{"id":1,"name":"Ada"}`, string(got.User))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	_, ok, err = store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileTokenStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, _, err := NewFileTokenStore(path).Load()
	assert.Error(t, err)

	_, err = NewSession(NewFileTokenStore(path), NewMemoryTokenStore(), zap.NewNop())
	assert.Error(t, err)
}

func TestSessionRestorePrefersDurableToken(t *testing.T) {
	durable, ephemeral := NewMemoryTokenStore(), NewMemoryTokenStore()
	require.NoError(t, durable.Save(Credentials{Token: "durable", User: json.RawMessage(`{"id":2}`)}))
	require.NoError(t, ephemeral.Save(Credentials{Token: "ephemeral"}))

	s, err := NewSession(durable, ephemeral, nil)
	require.NoError(t, err)
	assert.Equal(t, "durable", s.Token())
	assert.JSONEq(t, `{"id":2}`, string(s.User()))
}

func TestSessionRestoreFromEphemeral(t *testing.T) {
	durable, ephemeral := NewMemoryTokenStore(), NewMemoryTokenStore()
	require.NoError(t, durable.Save(Credentials{User: json.RawMessage(`{"id":3}`)}))
	require.NoError(t, ephemeral.Save(Credentials{Token: "ephemeral"}))

	s, err := NewSession(durable, ephemeral, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
	assert.Equal(t, "ephemeral", s.Token())
}

func TestSessionInvalidate(t *testing.T) {
	s, durable, ephemeral := newTestSession(t)
	require.NoError(t, s.Store(Credentials{Token: "t", User: json.RawMessage(`{}`)}, false))
	assert.True(t, s.Authenticated())

	require.NoError(t, s.Invalidate())
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.User())
	_, ok, _ := durable.Load()
	assert.False(t, ok)
	_, ok, _ = ephemeral.Load()
	assert.False(t, ok)

	fresh, err := NewSession(durable, ephemeral, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, fresh.Authenticated(), "an invalidated session stays signed out after restart")
}
