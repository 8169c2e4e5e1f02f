// Package flowstate stores in-flight login flows between /login and the
// OIDC callback, keyed by the opaque state parameter.
package flowstate

import "time"

type FlowState struct {
	Nonce        string
	CodeVerifier string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, flow *FlowState) error
	Get(state string) (*FlowState, error)
	Delete(state string) error
	Prune(maxAge time.Duration)
}
