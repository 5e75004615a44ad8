package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore opens a Store backed only by the file secret backend so tests
// never touch the real OS keyring.
func testStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(Options{
		DataDir: dir,
		Secrets: []SecretStore{&FileStore{Dir: dir}},
	})
	require.NoError(t, err)
	return s
}

func TestUnlockFirstRun(t *testing.T) {
	s := testStore(t, t.TempDir())

	require.NoError(t, s.Unlock("anything goes on first run"))
	assert.False(t, s.Locked())
	assert.Empty(t, s.Records())

	// No vault file until the first save.
	_, err := os.Stat(s.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEndToEndScenario(t *testing.T) {
	dir := t.TempDir()

	s := testStore(t, dir)
	require.NoError(t, s.Unlock("hunter2"))
	require.NoError(t, s.Add("github.com", "alice", "s3cr3t", ""))
	require.NoError(t, s.Save())
	s.Lock()
	assert.True(t, s.Locked())

	// New process.
	s2 := testStore(t, dir)
	require.NoError(t, s2.Unlock("hunter2"))
	records := s2.Records()
	require.Len(t, records, 1)
	assert.Equal(t, Record{Service: "github.com", Username: "alice", Password: "s3cr3t", Notes: ""}, records[0])

	// Same file, wrong password.
	s3 := testStore(t, dir)
	err := s3.Unlock("wrongpw")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrongPassword) || errors.Is(err, ErrCorruptVault),
		"wrong password must surface as ErrWrongPassword or ErrCorruptVault, got %v", err)
	assert.True(t, s3.Locked())
}

func TestUnsavedMutationsDoNotPersist(t *testing.T) {
	dir := t.TempDir()

	s := testStore(t, dir)
	require.NoError(t, s.Unlock("pw"))
	require.NoError(t, s.Add("saved.example", "u", "p", ""))
	require.NoError(t, s.Save())
	require.NoError(t, s.Add("unsaved.example", "u", "p", ""))
	s.Lock()

	s2 := testStore(t, dir)
	require.NoError(t, s2.Unlock("pw"))
	_, ok := s2.Get("saved.example")
	assert.True(t, ok)
	_, ok = s2.Get("unsaved.example")
	assert.False(t, ok, "unsaved mutation must not survive a restart")
}

func TestAddDuplicateService(t *testing.T) {
	s := testStore(t, t.TempDir())
	require.NoError(t, s.Unlock("pw"))

	require.NoError(t, s.Add("github.com", "alice", "one", ""))
	err := s.Add("github.com", "bob", "two", "")
	assert.ErrorIs(t, err, ErrDuplicateService)

	// The original record is untouched.
	rec, ok := s.Get("github.com")
	require.True(t, ok)
	assert.Equal(t, "alice", rec.Username)
}

func TestUpdateRecord(t *testing.T) {
	s := testStore(t, t.TempDir())
	require.NoError(t, s.Unlock("pw"))

	assert.ErrorIs(t, s.Update("missing", "u", "p", ""), ErrNotFound)

	require.NoError(t, s.Add("github.com", "alice", "old", ""))
	require.NoError(t, s.Update("github.com", "alice", "new", "rotated"))

	rec, ok := s.Get("github.com")
	require.True(t, ok)
	assert.Equal(t, "new", rec.Password)
	assert.Equal(t, "rotated", rec.Notes)
}

func TestDeleteRecord(t *testing.T) {
	s := testStore(t, t.TempDir())
	require.NoError(t, s.Unlock("pw"))

	assert.ErrorIs(t, s.Delete("missing"), ErrNotFound)

	require.NoError(t, s.Add("github.com", "alice", "p", ""))
	require.NoError(t, s.Delete("github.com"))
	_, ok := s.Get("github.com")
	assert.False(t, ok)
}

func TestRecordsSortedByService(t *testing.T) {
	s := testStore(t, t.TempDir())
	require.NoError(t, s.Unlock("pw"))

	for _, svc := range []string{"zeta.example", "alpha.example", "mid.example"} {
		require.NoError(t, s.Add(svc, "u", "p", ""))
	}

	records := s.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "alpha.example", records[0].Service)
	assert.Equal(t, "mid.example", records[1].Service)
	assert.Equal(t, "zeta.example", records[2].Service)
}

func TestOperationsWhileLocked(t *testing.T) {
	s := testStore(t, t.TempDir())

	assert.ErrorIs(t, s.Add("svc", "u", "p", ""), ErrLocked)
	assert.ErrorIs(t, s.Update("svc", "u", "p", ""), ErrLocked)
	assert.ErrorIs(t, s.Delete("svc"), ErrLocked)
	assert.ErrorIs(t, s.Save(), ErrLocked)
}

func TestLockDiscardsSession(t *testing.T) {
	s := testStore(t, t.TempDir())
	require.NoError(t, s.Unlock("pw"))
	require.NoError(t, s.Add("svc", "u", "p", ""))

	s.Lock()
	assert.True(t, s.Locked())
	assert.Empty(t, s.Records())
	assert.ErrorIs(t, s.Add("svc", "u", "p", ""), ErrLocked)
}

func TestUnlockEmptyFileIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := testStore(t, dir)
	require.NoError(t, os.WriteFile(s.Path(), nil, 0o600))

	err := s.Unlock("pw")
	assert.ErrorIs(t, err, ErrCorruptVault)
	assert.True(t, s.Locked())
}

func TestUnlockTruncatedFileIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := testStore(t, dir)
	require.NoError(t, os.WriteFile(s.Path(), []byte("too short"), 0o600))

	err := s.Unlock("pw")
	assert.ErrorIs(t, err, ErrCorruptVault)
}

func TestSaltStableAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	s := testStore(t, dir)
	require.NoError(t, s.Unlock("pw"))
	require.NoError(t, s.Add("svc", "u", "p", ""))
	require.NoError(t, s.Save())
	s.Lock()

	salt1, err := os.ReadFile(filepath.Join(dir, "."+KeyringAccount))
	require.NoError(t, err)

	s2 := testStore(t, dir)
	require.NoError(t, s2.Unlock("pw"))

	salt2, err := os.ReadFile(filepath.Join(dir, "."+KeyringAccount))
	require.NoError(t, err)
	assert.Equal(t, salt1, salt2, "salt must never be regenerated once established")
}

func TestSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()

	s := testStore(t, dir)
	require.NoError(t, s.Unlock("pw"))
	require.NoError(t, s.Add("github.com", "alice", "p", ""))
	require.NoError(t, s.Save())
	s.Lock()

	// Simulate a crash between writing the temp file and the rename: a
	// stray temp file full of garbage sits next to the vault.
	stray := filepath.Join(dir, "keyfold-12345678")
	require.NoError(t, os.WriteFile(stray, []byte("partial write garbage"), 0o600))

	s2 := testStore(t, dir)
	require.NoError(t, s2.Unlock("pw"))
	_, ok := s2.Get("github.com")
	assert.True(t, ok, "original vault must stay intact and loadable")
}

func TestSaveOverwritesFully(t *testing.T) {
	dir := t.TempDir()

	s := testStore(t, dir)
	require.NoError(t, s.Unlock("pw"))
	require.NoError(t, s.Add("a.example", "u", "p", ""))
	require.NoError(t, s.Add("b.example", "u", "p", ""))
	require.NoError(t, s.Save())
	require.NoError(t, s.Delete("a.example"))
	require.NoError(t, s.Save())
	s.Lock()

	s2 := testStore(t, dir)
	require.NoError(t, s2.Unlock("pw"))
	_, ok := s2.Get("a.example")
	assert.False(t, ok)
	_, ok = s2.Get("b.example")
	assert.True(t, ok)
}

func TestVaultFilePermissions(t *testing.T) {
	dir := t.TempDir()

	s := testStore(t, dir)
	require.NoError(t, s.Unlock("pw"))
	require.NoError(t, s.Save())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestOpenRequiresDataDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}
