package models

// CredentialPair holds the opaque bearer tokens of one session.
type CredentialPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Valid reports whether both tokens are present.
func (p CredentialPair) Valid() bool {
	return p.Access != "" && p.Refresh != ""
}
