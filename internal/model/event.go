package model

import "context"

// EventKind identifies a credential lifecycle event. Kinds outside this set
// are ignored by the policy engine.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindPreUpdateCredential
	KindPostUpdateCredential
	KindPostUpdateCredentialByAdmin
)

// Wire identifiers used by the identity event bus.
const (
	eventNamePreUpdate         = "PRE_UPDATE_CREDENTIAL"
	eventNamePostUpdate        = "POST_UPDATE_CREDENTIAL"
	eventNamePostUpdateByAdmin = "POST_UPDATE_CREDENTIAL_BY_ADMIN"
)

func (k EventKind) String() string {
	switch k {
	case KindPreUpdateCredential:
		return eventNamePreUpdate
	case KindPostUpdateCredential:
		return eventNamePostUpdate
	case KindPostUpdateCredentialByAdmin:
		return eventNamePostUpdateByAdmin
	default:
		return "UNKNOWN"
	}
}

// ParseEventKind maps a wire identifier to its kind. Unrecognized names map
// to KindUnknown rather than an error; the engine treats them as no-ops.
func ParseEventKind(name string) EventKind {
	switch name {
	case eventNamePreUpdate:
		return KindPreUpdateCredential
	case eventNamePostUpdate:
		return KindPostUpdateCredential
	case eventNamePostUpdateByAdmin:
		return KindPostUpdateCredentialByAdmin
	default:
		return KindUnknown
	}
}

// ClaimStore is the per-account handle a lifecycle event carries into the
// engine. Implementations persist string-valued claims keyed by account
// name; the store itself is tenant-scoped.
type ClaimStore interface {
	// GetClaimValues returns a name to value mapping for the requested
	// claim URIs. URIs with no stored value are simply absent from the map.
	GetClaimValues(ctx context.Context, username string, claimURIs []string, profile string) (map[string]string, error)

	// SetClaimValues persists every entry of the given mapping for the
	// account, overwriting existing values.
	SetClaimValues(ctx context.Context, username string, claims map[string]string, profile string) error
}

// LifecycleEvent is the read-only input delivered for each credential
// lifecycle transition. Handlers must not retain it beyond the call.
type LifecycleEvent struct {
	Kind         EventKind
	Username     string
	TenantDomain string
	Claims       ClaimStore
}
