package capability

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// Signer signs canonical capability bytes. Injected into the Issuer so
// key material is never process-global state.
type Signer interface {
	Sign(message []byte) []byte
}

// VerifyKey checks a signature over canonical capability bytes and
// exposes its raw public-key form for distribution to controllers.
type VerifyKey interface {
	Verify(message, signature []byte) bool
	Bytes() []byte
}

type ed25519Signer struct {
	key ed25519.PrivateKey
}

func (s ed25519Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.key, message)
}

type ed25519VerifyKey struct {
	key ed25519.PublicKey
}

func (v ed25519VerifyKey) Verify(message, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(v.key, message, signature)
}

func (v ed25519VerifyKey) Bytes() []byte {
	out := make([]byte, len(v.key))
	copy(out, v.key)
	return out
}

// NewSigner wraps an Ed25519 private key as a Signer.
func NewSigner(key ed25519.PrivateKey) Signer {
	return ed25519Signer{key: key}
}

// NewVerifyKey wraps an Ed25519 public key as a VerifyKey.
func NewVerifyKey(key ed25519.PublicKey) VerifyKey {
	return ed25519VerifyKey{key: key}
}

const (
	privateKeyFile = "capability-signing-key"
	publicKeyFile  = "capability-signing-key.pub"
)

// GenerateKeypair creates a fresh Ed25519 keypair for token signing.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating Ed25519 keypair: %w", err)
	}
	return public, private, nil
}

// SaveKeypair writes the keypair under stateDir. The private key file
// gets 0600 permissions; the public key 0644.
func SaveKeypair(stateDir string, public ed25519.PublicKey, private ed25519.PrivateKey) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("mkdir key dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, privateKeyFile), private, 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, publicKeyFile), public, 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}
	return nil
}

// LoadKeypair reads a keypair from stateDir, rejecting files of
// unexpected size.
func LoadKeypair(stateDir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	privateBytes, err := os.ReadFile(filepath.Join(stateDir, privateKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("reading private key: %w", err)
	}
	if len(privateBytes) != ed25519.PrivateKeySize {
		return nil, nil, fmt.Errorf("private key has %d bytes, want %d", len(privateBytes), ed25519.PrivateKeySize)
	}

	publicBytes, err := os.ReadFile(filepath.Join(stateDir, publicKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("reading public key: %w", err)
	}
	if len(publicBytes) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("public key has %d bytes, want %d", len(publicBytes), ed25519.PublicKeySize)
	}

	return ed25519.PublicKey(publicBytes), ed25519.PrivateKey(privateBytes), nil
}

// LoadOrGenerateKeypair loads the keypair from stateDir, generating and
// saving a new one when the files are absent. The bool reports whether
// the keypair was newly generated.
func LoadOrGenerateKeypair(stateDir string) (ed25519.PublicKey, ed25519.PrivateKey, bool, error) {
	public, private, err := LoadKeypair(stateDir)
	if err == nil {
		return public, private, false, nil
	}

	// A present-but-unreadable private key means corruption or bad
	// permissions, not first boot.
	if _, statErr := os.Stat(filepath.Join(stateDir, privateKeyFile)); statErr == nil {
		return nil, nil, false, err
	}

	public, private, err = GenerateKeypair()
	if err != nil {
		return nil, nil, false, err
	}
	if err := SaveKeypair(stateDir, public, private); err != nil {
		return nil, nil, false, err
	}
	return public, private, true, nil
}
