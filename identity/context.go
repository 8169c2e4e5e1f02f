package identity

// SessionContext is the wire shape of the gateway's /context endpoint.
// An anonymous session serializes to an empty JSON object.
type SessionContext struct {
	Authenticated bool  `json:"authenticated,omitempty"`
	SessionExpiry int64 `json:"sessionExpiry,omitempty"`
	User          *User `json:"user,omitempty"`
}

// User is the client-facing identity projection.
type User struct {
	InstitutionUserID   string        `json:"institutionUserId"`
	Forename            string        `json:"forename"`
	Surname             string        `json:"surname"`
	Privileges          []string      `json:"privileges"`
	SelectedInstitution *Institution  `json:"selectedInstitution,omitempty"`
	Institutions        []Institution `json:"institutions"`
}

// ContextUser converts an identity into its /context representation.
// Returns nil for anonymous identities.
func ContextUser(id Identity) *User {
	if !id.Authenticated {
		return nil
	}
	return &User{
		InstitutionUserID:   id.InstitutionUserID,
		Forename:            id.Forename,
		Surname:             id.Surname,
		Privileges:          id.Privileges,
		SelectedInstitution: id.SelectedInstitution,
		Institutions:        id.Institutions,
	}
}
