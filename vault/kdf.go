package vault

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// DeriveKey stretches the master password into the AES key using
// PBKDF2-SHA256. The result is deterministic for a given (password, salt)
// pair; that determinism is what lets a later run decrypt the vault. The
// caller owns the returned key and should zero it when the session ends.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, KDFIterations, KeyLen, sha256.New)
}
