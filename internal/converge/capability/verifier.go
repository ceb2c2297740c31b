package capability

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Check failures. These name the failing step for server-side logging
// and tests; callers answering an external request must collapse them
// into an undifferentiated Deny so a prober cannot use the response as
// an oracle for forging tokens field by field.
var (
	ErrMalformedToken   = errors.New("capability: malformed token")
	ErrSignatureMissing = errors.New("capability: signature missing")
	ErrSignatureInvalid = errors.New("capability: signature invalid")
	ErrOutsideWindow    = errors.New("capability: outside validity window")
	ErrAudienceMismatch = errors.New("capability: audience mismatch")
	ErrResourceMismatch = errors.New("capability: resource mismatch")
	ErrActionMismatch   = errors.New("capability: action mismatch")
	ErrModifierMissing  = errors.New("capability: required modifier missing")
	ErrReplayed         = errors.New("capability: nonce already used")
)

// CheckRequest carries the request-side inputs the token must bind to.
type CheckRequest struct {
	// ResourceID is the specific lock being actuated. It is also the
	// enforcement-point identity the token's audience must match.
	ResourceID string

	// AreaID is the lock's area; a token may bind to the area instead
	// of the individual lock.
	AreaID string

	// Action is the requested action.
	Action string

	// RequiredModifier, when non-empty, must appear in the token's
	// modifier list.
	RequiredModifier string
}

// ReplayStore tracks consumed token nonces. MarkSeen reports true on
// first use. Optional; a nil store disables replay enforcement.
type ReplayStore interface {
	MarkSeen(ctx context.Context, nonce string, expiresAt time.Time) (bool, error)
}

// Verifier validates capability tokens against an injected public key.
// Safe for concurrent use; the key material is read-only.
type Verifier struct {
	key    VerifyKey
	replay ReplayStore
	now    func() time.Time
}

// VerifierOptions groups Verifier dependencies. Replay and Now are
// optional; Now defaults to time.Now.
type VerifierOptions struct {
	Key    VerifyKey
	Replay ReplayStore
	Now    func() time.Time
}

func NewVerifier(opts VerifierOptions) *Verifier {
	if opts.Key == nil {
		panic("capability: Verifier requires a VerifyKey")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{key: opts.Key, replay: opts.Replay, now: now}
}

// Verify runs the ordered, fail-closed check sequence over a transport
// token. The first failing check terminates verification; a nil error
// means every check passed. The returned Capability is only meaningful
// on success.
//
// Signature verification precedes every semantic check: no field value
// is trusted before the signature over it is confirmed.
func (v *Verifier) Verify(ctx context.Context, token string, req CheckRequest) (Capability, error) {
	c, err := DecodeToken(token)
	if err != nil {
		return Capability{}, err
	}

	if len(c.Signature) == 0 {
		return Capability{}, ErrSignatureMissing
	}
	message, err := SigningMessage(c)
	if err != nil {
		return Capability{}, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	if !v.key.Verify(message, c.Signature) {
		return Capability{}, ErrSignatureInvalid
	}

	now := v.now().Unix()
	if now < c.NotBefore || now > c.Expires {
		return Capability{}, ErrOutsideWindow
	}

	if c.Audience != req.ResourceID {
		return Capability{}, ErrAudienceMismatch
	}
	if c.Resource != req.ResourceID && c.Resource != req.AreaID {
		return Capability{}, ErrResourceMismatch
	}
	if c.Action != req.Action {
		return Capability{}, ErrActionMismatch
	}
	if req.RequiredModifier != "" && !containsString(c.Modifiers, req.RequiredModifier) {
		return Capability{}, ErrModifierMissing
	}

	// Replay enforcement is optional. When configured, a store error
	// fails closed: an unreachable store never converts into Allow.
	if v.replay != nil {
		first, err := v.replay.MarkSeen(ctx, c.Nonce, time.Unix(c.Expires, 0))
		if err != nil {
			return Capability{}, fmt.Errorf("%w: %w", ErrReplayed, err)
		}
		if !first {
			return Capability{}, ErrReplayed
		}
	}

	return c, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
