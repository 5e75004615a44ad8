package vault

import "errors"

const (
	// SaltLen is the length of the per-installation KDF salt.
	SaltLen = 16
	// KeyLen is the length of the derived AES-256 key.
	KeyLen = 32
	// IVLen is the AES block size; every container starts with an IV of
	// this length.
	IVLen = 16
	// KDFIterations is the PBKDF2 iteration count. It is deliberately high
	// and fixed: lowering it weakens every vault, raising it orphans
	// existing ones.
	KDFIterations = 100000

	// KeyringService and KeyringAccount identify the salt entry in OS
	// secret storage. Changing either orphans existing installations.
	KeyringService = "keyfold"
	KeyringAccount = "salt"

	// VaultFileName is the encrypted vault file inside the data directory.
	VaultFileName = "passwords.enc"
)

var (
	ErrSaltUnavailable  = errors.New("keyfold: salt unavailable")
	ErrWrongPassword    = errors.New("keyfold: wrong master password or corrupted vault")
	ErrCorruptVault     = errors.New("keyfold: corrupt vault file")
	ErrDuplicateService = errors.New("keyfold: service already exists")
	ErrNotFound         = errors.New("keyfold: service not found")
	ErrLocked           = errors.New("keyfold: vault is locked")
	ErrNoSecret         = errors.New("keyfold: no such secret")
)

// Record is a single stored credential. Service is the unique lookup key;
// on disk it is the JSON object key, so it is not serialized as a field.
type Record struct {
	Service  string `json:"-"`
	Username string `json:"username"`
	Password string `json:"password"`
	Notes    string `json:"notes"`
}
