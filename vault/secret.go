package vault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// errCorruptSecret marks an entry that exists but cannot be decoded. This is
// fatal for the salt: regenerating over it would orphan the vault.
var errCorruptSecret = errors.New("keyfold: secret entry is corrupt")

// SecretStore is a single backend for small secret values such as the KDF
// salt. Get returns ErrNoSecret when the entry does not exist yet, which is
// distinct from the backend being unreachable or the entry being corrupt.
type SecretStore interface {
	Get(name string) ([]byte, error)
	Put(name string, value []byte) error
}

// KeyringStore keeps secrets in the OS keyring. Values are base64-encoded
// because keyring backends store strings.
type KeyringStore struct {
	Service string
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: KeyringService}
}

func (k *KeyringStore) Get(name string) ([]byte, error) {
	s, err := keyring.Get(k.Service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoSecret
	}
	if err != nil {
		// One retry: the keyring daemon may not be up yet early in a
		// desktop session.
		s, err = keyring.Get(k.Service, name)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoSecret
		}
		if err != nil {
			return nil, fmt.Errorf("keyring get %q: %w", name, err)
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: keyring entry %q is not valid base64", errCorruptSecret, name)
	}
	return b, nil
}

func (k *KeyringStore) Put(name string, value []byte) error {
	enc := base64.StdEncoding.EncodeToString(value)
	if err := keyring.Set(k.Service, name, enc); err != nil {
		if err = keyring.Set(k.Service, name, enc); err != nil {
			return fmt.Errorf("keyring set %q: %w", name, err)
		}
	}
	return nil
}

// FileStore keeps secrets as dot-files in the data directory, owner-readable
// only. It is the fallback when no OS keyring is reachable.
type FileStore struct {
	Dir string
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.Dir, "."+name)
}

func (f *FileStore) Get(name string) ([]byte, error) {
	b, err := os.ReadFile(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSecret
	}
	if err != nil {
		// The entry exists but cannot be read. That is corruption, not
		// absence: minting a fresh salt over it would orphan the vault.
		return nil, fmt.Errorf("%w: read secret file: %v", errCorruptSecret, err)
	}
	return b, nil
}

func (f *FileStore) Put(name string, value []byte) error {
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return fmt.Errorf("create secret dir: %w", err)
	}
	if err := os.WriteFile(f.path(name), value, 0o600); err != nil {
		return fmt.Errorf("write secret file: %w", err)
	}
	return nil
}

// LoadOrCreateSalt resolves the per-installation salt through the given
// backends in order. The first backend that holds a salt wins; a backend
// that is merely unreachable is skipped, but a salt that exists and is
// unreadable or has the wrong length aborts with ErrSaltUnavailable —
// generating a fresh salt over a damaged one would permanently orphan the
// existing vault.
//
// When no backend holds a salt yet, a new random one is generated and
// written to every backend. Write failures on earlier backends (the keyring)
// are tolerated, but the last backend is the recovery fallback and its write
// must succeed, so a later run can still find the salt even when the keyring
// is gone. The function is idempotent once a salt exists.
func LoadOrCreateSalt(stores ...SecretStore) ([]byte, error) {
	for _, st := range stores {
		salt, err := st.Get(KeyringAccount)
		switch {
		case err == nil:
			if len(salt) != SaltLen {
				return nil, fmt.Errorf("%w: stored salt is %d bytes, want %d", ErrSaltUnavailable, len(salt), SaltLen)
			}
			return salt, nil
		case errors.Is(err, ErrNoSecret):
			continue
		case errors.Is(err, errCorruptSecret):
			return nil, fmt.Errorf("%w: %v", ErrSaltUnavailable, err)
		default:
			// Backend unreachable; the next one may still hold the salt.
			continue
		}
	}

	salt, err := randBytes(SaltLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSaltUnavailable, err)
	}
	for i, st := range stores {
		if err := st.Put(KeyringAccount, salt); err != nil && i == len(stores)-1 {
			return nil, fmt.Errorf("%w: fallback store rejected the new salt: %v", ErrSaltUnavailable, err)
		}
	}
	return salt, nil
}
