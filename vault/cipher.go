package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Encrypt seals plaintext under key with AES-256-CBC. A fresh random IV is
// drawn for every call and prefixed to the ciphertext, so encrypting the
// same plaintext twice never yields the same container.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	iv, err := randBytes(IVLen)
	if err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, IVLen+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[IVLen:], padded)
	return out, nil
}

// Decrypt opens a container produced by Encrypt. It returns ErrCorruptVault
// when the container cannot hold an IV plus one block, and ErrWrongPassword
// when the padding does not check out after decryption. A wrong key and
// flipped ciphertext bits are indistinguishable here; both land on the same
// error so the message cannot leak which one happened.
func Decrypt(key, container []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(container) < IVLen+aes.BlockSize {
		return nil, ErrCorruptVault
	}
	iv, ct := container[:IVLen], container[IVLen:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, ErrCorruptVault
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)
	return unpad(pt, aes.BlockSize)
}

// pad appends PKCS#7 padding. Plaintext that is already block-aligned gets a
// full block of padding so unpad is always unambiguous.
func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrWrongPassword
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, ErrWrongPassword
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrWrongPassword
		}
	}
	return b[:len(b)-n], nil
}
