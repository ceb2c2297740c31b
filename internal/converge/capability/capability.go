// Package capability implements signed, time-bounded, self-contained
// authorization grants for lock controllers, verified locally without a
// round-trip to the policy engine.
//
// A token is the deterministic CBOR encoding of a Capability, with the
// Ed25519 signature embedded as the final field, transported as
// unpadded standard base64. The signature covers the canonical encoding
// of every field except itself, so any post-signing mutation of any
// field invalidates the token.
package capability

import (
	"encoding/base64"
	"fmt"

	"github.com/converge-access/converge/server/internal/codec"
)

// Capability is an authorization grant issued out-of-band and consumed
// read-only by the verifier. Integer CBOR keys keep the wire form
// compact and the field order fixed.
type Capability struct {
	// Subject identifies the bearer.
	Subject string `cbor:"1,keyasint"`

	// Audience binds the token to a specific enforcement point
	// (the controller/lock identity).
	Audience string `cbor:"2,keyasint"`

	// Resource binds the token to a specific lock id or its area id.
	Resource string `cbor:"3,keyasint"`

	// Action is the single permitted action, e.g. "open".
	Action string `cbor:"4,keyasint"`

	// NotBefore and Expires bound the validity window in epoch
	// seconds, inclusive on both ends.
	NotBefore int64 `cbor:"5,keyasint"`
	Expires   int64 `cbor:"6,keyasint"`

	// BookingID ties the grant to the reservation it was minted for.
	BookingID string `cbor:"7,keyasint,omitempty"`

	// Modifiers are capability flags granted to the bearer.
	Modifiers []string `cbor:"8,keyasint,omitempty"`

	// Nonce (jti) uniquely identifies this token for replay detection.
	Nonce string `cbor:"9,keyasint"`

	// Signature is the Ed25519 signature over SigningMessage of the
	// other fields. Empty until issued.
	Signature []byte `cbor:"10,keyasint,omitempty"`
}

// SigningMessage returns the canonical byte encoding of every field
// except Signature. Issuance and verification both call this; it is the
// single point where the signing input is defined.
func SigningMessage(c Capability) ([]byte, error) {
	c.Signature = nil
	message, err := codec.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("capability: encoding signing message: %w", err)
	}
	return message, nil
}

// EncodeToken serializes a (signed) capability into its opaque
// transport form: deterministic CBOR, then unpadded standard base64.
func EncodeToken(c Capability) (string, error) {
	raw, err := codec.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("capability: encoding token: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(raw), nil
}

// DecodeToken parses the transport form back into a Capability. Any
// decode failure collapses into ErrMalformedToken so callers cannot
// distinguish transport corruption from structural corruption.
func DecodeToken(token string) (Capability, error) {
	raw, err := base64.RawStdEncoding.DecodeString(token)
	if err != nil {
		return Capability{}, ErrMalformedToken
	}

	var c Capability
	if err := codec.Unmarshal(raw, &c); err != nil {
		return Capability{}, ErrMalformedToken
	}
	return c, nil
}
