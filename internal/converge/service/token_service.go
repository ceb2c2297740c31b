package service

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/converge-access/converge/server/internal/converge/capability"
	"github.com/converge-access/converge/server/internal/converge/types"
)

var (
	ErrInvalidSubject  = errors.New("sub is required")
	ErrInvalidAudience = errors.New("aud is required")
	ErrInvalidResource = errors.New("res is required")
	ErrInvalidAction   = errors.New("act is required")
)

// TokenService mints capability tokens and publishes the verification
// key. Issuance is privileged; the HTTP layer decides who may call it.
type TokenService struct {
	issuer    *capability.Issuer
	verifyKey capability.VerifyKey
}

func NewTokenService(issuer *capability.Issuer, verifyKey capability.VerifyKey) *TokenService {
	return &TokenService{issuer: issuer, verifyKey: verifyKey}
}

// Issue validates the identity fields, fills in a generated nonce when
// the caller did not supply one, and returns the signed transport
// token. The validity window is taken as-is; an inverted window mints a
// token that every verification rejects.
func (s *TokenService) Issue(req types.IssueRequest) (types.IssueResponse, error) {
	sub := strings.TrimSpace(req.Sub)
	aud := strings.TrimSpace(req.Aud)
	res := strings.TrimSpace(req.Res)
	act := strings.TrimSpace(req.Act)

	if sub == "" {
		return types.IssueResponse{}, ErrInvalidSubject
	}
	if aud == "" {
		return types.IssueResponse{}, ErrInvalidAudience
	}
	if res == "" {
		return types.IssueResponse{}, ErrInvalidResource
	}
	if act == "" {
		return types.IssueResponse{}, ErrInvalidAction
	}

	nonce := strings.TrimSpace(req.JTI)
	if nonce == "" {
		nonce = uuid.NewString()
	}

	token, err := s.issuer.Issue(capability.Capability{
		Subject:   sub,
		Audience:  aud,
		Resource:  res,
		Action:    act,
		NotBefore: req.NbfEpoch,
		Expires:   req.ExpEpoch,
		BookingID: strings.TrimSpace(req.BookingID),
		Modifiers: req.Modifiers,
		Nonce:     nonce,
	})
	if err != nil {
		return types.IssueResponse{}, err
	}

	return types.IssueResponse{
		Capability: token,
		PublicKey:  s.PublicKey(),
	}, nil
}

// PublicKey returns the verification key in the same transport encoding
// tokens use, ready to hand to controllers.
func (s *TokenService) PublicKey() string {
	return base64.RawStdEncoding.EncodeToString(s.verifyKey.Bytes())
}
