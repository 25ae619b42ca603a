package sessionstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lapmarkt/lapcli/internal/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), nil)
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	s := newStore(t)
	user := &model.User{ID: 7, Username: "maria", Email: "m@x.com"}

	require.NoError(t, s.Save(user, "tok123"))

	sess, err := s.Load()
	require.NoError(t, err)
	require.True(t, sess.IsAuthenticated())
	require.Equal(t, int64(7), sess.User.ID)
	require.Equal(t, "maria", sess.User.Username)
	require.Equal(t, "tok123", sess.Token)
}

func TestStore_SaveRequiresBoth(t *testing.T) {
	s := newStore(t)
	require.Error(t, s.Save(nil, "tok"))
	require.Error(t, s.Save(&model.User{ID: 1}, ""))

	sess, err := s.Load()
	require.NoError(t, err)
	require.False(t, sess.IsAuthenticated())
}

func TestStore_LoadMissing(t *testing.T) {
	s := newStore(t)
	sess, err := s.Load()
	require.NoError(t, err)
	require.False(t, sess.IsAuthenticated())
	require.Nil(t, sess.User)
}

func TestStore_LoadCorruptFailsOpen(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, sessionFile), []byte("{not json"), 0o600))

	sess, err := s.Load()
	require.NoError(t, err, "corrupt data must not surface as an error")
	require.False(t, sess.IsAuthenticated())
}

func TestStore_LoadPartialRecordIsLoggedOut(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	// token without user must not count as a session
	b, _ := json.Marshal(sessionRecord{Token: "tok"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, sessionFile), b, 0o600))

	sess, err := s.Load()
	require.NoError(t, err)
	require.False(t, sess.IsAuthenticated())
}

func TestStore_LegacyFilesStillLoad(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	tok, _ := json.Marshal(map[string]any{
		"access_token": "legacy-tok",
		"expires_at":   time.Now().Add(time.Hour),
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyTokenFile), tok, 0o600))
	usr, _ := json.Marshal(model.User{ID: 3, Username: "old", Email: "old@x.com"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, legacyUserFile), usr, 0o600))

	sess, err := s.Load()
	require.NoError(t, err)
	require.True(t, sess.IsAuthenticated())
	require.Equal(t, "legacy-tok", sess.Token)
	require.Equal(t, "old", sess.User.Username)
}

func TestStore_ClearRemovesCurrentAndLegacy(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	require.NoError(t, s.Save(&model.User{ID: 1, Username: "u"}, "tok"))
	for _, name := range []string{legacyTokenFile, legacyUserFile, legacyFlagFile} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	require.NoError(t, s.Clear())

	for _, name := range []string{sessionFile, legacyTokenFile, legacyUserFile, legacyFlagFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.True(t, os.IsNotExist(err), "%s should be gone", name)
	}

	// clearing again is a no-op
	require.NoError(t, s.Clear())
}

func TestStore_SaveIsAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	require.NoError(t, s.Save(&model.User{ID: 1, Username: "a"}, "t1"))
	require.NoError(t, s.Save(&model.User{ID: 2, Username: "b"}, "t2"))

	sess, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "b", sess.User.Username)
	require.Equal(t, "t2", sess.Token)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
