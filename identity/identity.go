package identity

import (
	"github.com/golang-jwt/jwt/v5"
)

// Institution is an organizational context a user may operate within.
// Exactly one institution is active per session.
type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identity is the read-only projection of the access token's claims. It is
// recomputed every time the token set changes and never stored on its own.
type Identity struct {
	Authenticated       bool
	InstitutionUserID   string
	Forename            string
	Surname             string
	Privileges          []string
	SelectedInstitution *Institution
	Institutions        []Institution
}

type accessClaims struct {
	InstitutionUserID   string        `json:"institution_user_id"`
	Forename            string        `json:"forename"`
	Surname             string        `json:"surname"`
	Privileges          []string      `json:"privileges"`
	SelectedInstitution *Institution  `json:"selected_institution"`
	Institutions        []Institution `json:"institutions"`
	jwt.RegisteredClaims
}

// FromAccessToken projects an Identity from a raw access token. The
// projection is total: malformed or empty tokens yield an unauthenticated
// zero identity, never an error. Signature verification is the identity
// provider's business; the gateway only reads claims out of tokens it
// received over the confidential token endpoint channel.
func FromAccessToken(raw string) Identity {
	if raw == "" {
		return Identity{}
	}
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Identity{}
	}
	return Identity{
		Authenticated:       true,
		InstitutionUserID:   claims.InstitutionUserID,
		Forename:            claims.Forename,
		Surname:             claims.Surname,
		Privileges:          claims.Privileges,
		SelectedInstitution: claims.SelectedInstitution,
		Institutions:        claims.Institutions,
	}
}

// MemberOf reports whether the identity belongs to the given institution.
func (id Identity) MemberOf(institutionID string) bool {
	for _, inst := range id.Institutions {
		if inst.ID == institutionID {
			return true
		}
	}
	return false
}
