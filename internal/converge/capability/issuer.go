package capability

// Issuer mints signed capability tokens. It is a privileged component:
// whoever holds the Issuer effectively holds the signing key.
type Issuer struct {
	signer Signer
}

func NewIssuer(signer Signer) *Issuer {
	if signer == nil {
		panic("capability: Issuer requires a Signer")
	}
	return &Issuer{signer: signer}
}

// Issue signs the capability's canonical encoding, attaches the
// signature, and returns the opaque transport token.
//
// Issue does not validate the validity window; an inverted or empty
// window produces a token that every verification rejects.
func (i *Issuer) Issue(c Capability) (string, error) {
	c.Signature = nil

	message, err := SigningMessage(c)
	if err != nil {
		return "", err
	}
	c.Signature = i.signer.Sign(message)

	return EncodeToken(c)
}
