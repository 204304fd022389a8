// Package envelope seals short secret blobs with an X25519 sealed box so
// that checkpoint files never carry plaintext credentials. Anyone holding
// the public key can seal; only the private-key holder can unseal.
//
// Tag format: "x25519sb:b64:<base64 payload>". The prefix is checked before
// any cryptographic work so unsupported schemes are rejected cheaply.
package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/vietddude/prospector/internal/core/domain"
)

const (
	// Scheme identifies the sealed-box construction used in tags.
	Scheme = "x25519sb"

	// Encoding identifies the payload encoding used in tags.
	Encoding = "b64"

	// KeySize is the required key length in bytes.
	KeySize = 32
)

var tagPrefix = Scheme + ":" + Encoding + ":"

// IsSealed reports whether s looks like a tag produced by Seal.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, tagPrefix)
}

// Seal encrypts plaintext to the holder of the private key matching
// publicKeyB64 (a base64-encoded 32-byte X25519 public key) and returns a
// self-describing tag.
func Seal(publicKeyB64, plaintext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", fmt.Errorf("envelope: decode public key: %w", err)
	}
	if len(raw) != KeySize {
		return "", fmt.Errorf("envelope: public key must be %d bytes, got %d", KeySize, len(raw))
	}

	var pub [KeySize]byte
	copy(pub[:], raw)

	sealed, err := box.SealAnonymous(nil, []byte(plaintext), &pub, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("envelope: seal: %w", err)
	}

	return tagPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal opens a tag produced by Seal using the private key stored at
// privateKeyPath (base64-encoded 32 bytes). Every malformed input (wrong
// prefix, bad base64, wrong key length, corrupt ciphertext) yields
// domain.ErrDecryptFailed; key and plaintext material never appear in the
// returned error.
func Unseal(privateKeyPath, tag string) (string, error) {
	if !IsSealed(tag) {
		return "", fmt.Errorf("%w: unsupported envelope scheme", domain.ErrDecryptFailed)
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(tag, tagPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: malformed payload", domain.ErrDecryptFailed)
	}

	priv, err := readPrivateKey(privateKeyPath)
	if err != nil {
		return "", err
	}

	// OpenAnonymous needs the recipient public key; derive it.
	var pub [KeySize]byte
	curve25519.ScalarBaseMult(&pub, priv)

	plaintext, ok := box.OpenAnonymous(nil, payload, &pub, priv)
	if !ok {
		return "", fmt.Errorf("%w: ciphertext did not open", domain.ErrDecryptFailed)
	}

	return string(plaintext), nil
}

func readPrivateKey(path string) (*[KeySize]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: private key unreadable", domain.ErrDecryptFailed)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: private key not base64", domain.ErrDecryptFailed)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", domain.ErrDecryptFailed, KeySize)
	}

	var priv [KeySize]byte
	copy(priv[:], raw)
	return &priv, nil
}

// GenerateKeyPair returns a fresh base64-encoded X25519 keypair. Used by
// the keygen CLI and tests.
func GenerateKeyPair() (publicKeyB64, privateKeyB64 string, err error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("envelope: generate keypair: %w", err)
	}
	return base64.StdEncoding.EncodeToString(pub[:]),
		base64.StdEncoding.EncodeToString(priv[:]), nil
}
