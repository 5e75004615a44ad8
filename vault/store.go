package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Options configures a Store.
type Options struct {
	// DataDir is where the vault file and the fallback salt file live.
	DataDir string
	// Secrets is the backend resolution order for the KDF salt. When
	// empty, the OS keyring is tried first with the data-directory file
	// store as fallback.
	Secrets []SecretStore
}

// DefaultOptions places the data directory at ~/.keyfold.
func DefaultOptions() (Options, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Options{}, fmt.Errorf("resolve home dir: %w", err)
	}
	return Options{DataDir: filepath.Join(home, ".keyfold")}, nil
}

// session holds the derived master key while the vault is unlocked. It is
// the only place key material lives; destroy zeroes it so the lifetime of
// the key is auditable in one spot.
type session struct {
	key []byte
}

func (s *session) destroy() {
	zero(s.key)
	s.key = nil
}

// Store owns the encrypted vault file and the in-memory record set.
// Mutations (Add, Update, Delete) only touch memory; an explicit Save
// persists them, so unsaved changes do not survive a restart.
//
// Store is not safe for concurrent use. One process, one interactive user.
type Store struct {
	dir     string
	path    string
	secrets []SecretStore
	sess    *session
	records map[string]Record
}

// Open prepares a Store rooted at opts.DataDir. It creates the directory but
// touches neither the vault file nor the salt; those appear on Unlock/Save.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, errors.New("keyfold: data directory not set")
	}
	if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	secrets := opts.Secrets
	if len(secrets) == 0 {
		secrets = []SecretStore{NewKeyringStore(), &FileStore{Dir: opts.DataDir}}
	}
	return &Store{
		dir:     opts.DataDir,
		path:    filepath.Join(opts.DataDir, VaultFileName),
		secrets: secrets,
	}, nil
}

// Path returns the vault file location.
func (s *Store) Path() string { return s.path }

// Locked reports whether no master session is active.
func (s *Store) Locked() bool { return s.sess == nil }

// Unlock derives the master key and loads the vault file. When the file does
// not exist yet (first run) any password succeeds and yields an empty vault;
// the password is committed by the first Save. A present-but-empty file is
// ErrCorruptVault. Decrypt and parse failures both surface as
// ErrWrongPassword: there is no stored verifier, failing to decrypt is the
// only wrong-password signal.
func (s *Store) Unlock(password string) error {
	s.Lock()
	salt, err := LoadOrCreateSalt(s.secrets...)
	if err != nil {
		return err
	}
	key := DeriveKey(password, salt)

	container, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.sess = &session{key: key}
		s.records = map[string]Record{}
		return nil
	}
	if err != nil {
		zero(key)
		return fmt.Errorf("read vault file: %w", err)
	}
	if len(container) == 0 {
		zero(key)
		return ErrCorruptVault
	}

	plaintext, err := Decrypt(key, container)
	if err != nil {
		zero(key)
		return err
	}
	records, err := Unmarshal(plaintext)
	zero(plaintext)
	if err != nil {
		zero(key)
		return err
	}

	s.sess = &session{key: key}
	s.records = records
	return nil
}

// Lock destroys the master session and drops the decrypted records.
func (s *Store) Lock() {
	if s.sess != nil {
		s.sess.destroy()
		s.sess = nil
	}
	s.records = nil
}

// Save re-encrypts the full record set and atomically replaces the vault
// file. Each save is a full rewrite; there is no incremental persistence.
func (s *Store) Save() error {
	if s.sess == nil {
		return ErrLocked
	}
	plaintext, err := Marshal(s.records)
	if err != nil {
		return err
	}
	container, err := Encrypt(s.sess.key, plaintext)
	zero(plaintext)
	if err != nil {
		return err
	}
	return atomicWriteFile(s.path, container, 0o600)
}

// Records returns the decrypted records sorted by service name.
func (s *Store) Records() []Record {
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}

// Get looks up a record by service name.
func (s *Store) Get(service string) (Record, bool) {
	rec, ok := s.records[service]
	return rec, ok
}

// Add inserts a new record. The service name must be unused.
func (s *Store) Add(service, username, password, notes string) error {
	if s.sess == nil {
		return ErrLocked
	}
	if _, ok := s.records[service]; ok {
		return ErrDuplicateService
	}
	s.records[service] = Record{Service: service, Username: username, Password: password, Notes: notes}
	return nil
}

// Update replaces the record stored under service.
func (s *Store) Update(service, username, password, notes string) error {
	if s.sess == nil {
		return ErrLocked
	}
	if _, ok := s.records[service]; !ok {
		return ErrNotFound
	}
	s.records[service] = Record{Service: service, Username: username, Password: password, Notes: notes}
	return nil
}

// Delete removes the record stored under service.
func (s *Store) Delete(service string) error {
	if s.sess == nil {
		return ErrLocked
	}
	if _, ok := s.records[service]; !ok {
		return ErrNotFound
	}
	delete(s.records, service)
	return nil
}

// atomicWriteFile writes data to a temp file in the target directory, syncs
// it, and renames it over path. A crash mid-write leaves the previous file
// untouched.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "keyfold-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace vault file: %w", err)
	}
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
