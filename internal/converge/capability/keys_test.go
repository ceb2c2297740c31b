package capability

import (
	"bytes"
	"testing"
)

func TestLoadOrGenerateKeypair_FirstBoot(t *testing.T) {
	dir := t.TempDir()

	public, private, generated, err := LoadOrGenerateKeypair(dir)
	if err != nil {
		t.Fatalf("LoadOrGenerateKeypair: %v", err)
	}
	if !generated {
		t.Error("expected generated=true on first boot")
	}

	reloadedPub, reloadedPriv, generated, err := LoadOrGenerateKeypair(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if generated {
		t.Error("expected generated=false on reload")
	}
	if !bytes.Equal(public, reloadedPub) || !bytes.Equal(private, reloadedPriv) {
		t.Error("reloaded keypair differs from generated one")
	}
}

func TestSignerVerifyKey_RoundTrip(t *testing.T) {
	public, private, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	signer := NewSigner(private)
	key := NewVerifyKey(public)

	message := []byte("canonical capability bytes")
	sig := signer.Sign(message)

	if !key.Verify(message, sig) {
		t.Error("signature did not verify")
	}
	if key.Verify([]byte("different message"), sig) {
		t.Error("signature verified against a different message")
	}
	if key.Verify(message, sig[:len(sig)-1]) {
		t.Error("truncated signature verified")
	}
}

func TestVerifyKey_BytesIsCopy(t *testing.T) {
	public, _, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	key := NewVerifyKey(public)
	raw := key.Bytes()
	raw[0] ^= 0xFF

	if bytes.Equal(raw, key.Bytes()) {
		t.Error("Bytes returned a view of the underlying key")
	}
}
