package types

// IssueRequest is the privileged request to mint a capability token.
// The window is absolute epoch seconds, inclusive on both ends.
type IssueRequest struct {
	Sub       string   `json:"sub"`
	Aud       string   `json:"aud"`
	Res       string   `json:"res"`
	Act       string   `json:"act"`
	NbfEpoch  int64    `json:"nbf_epoch"`
	ExpEpoch  int64    `json:"exp_epoch"`
	BookingID string   `json:"booking_id,omitempty"`
	Modifiers []string `json:"modifiers"`
	JTI       string   `json:"jti,omitempty"`
}

type IssueResponse struct {
	Capability string `json:"capability"`
	PublicKey  string `json:"public_key"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}
