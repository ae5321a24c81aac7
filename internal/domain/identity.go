package domain

import "github.com/google/uuid"

// RemoteIdentityID identifies a remote identity by the pair of (provider
// name, provider-local id) that uniquely names it at that provider.
type RemoteIdentityID struct {
	Provider   string
	RemoteID   string
}

// RemoteIdentityDetails carries the optional profile fields a provider may
// report about an identity. Any field may be absent (empty string).
type RemoteIdentityDetails struct {
	Username    string
	FullName    string
	Email       string
}

// RemoteIdentity is an identity as reported by a provider: its id plus
// whatever details the provider returned.
type RemoteIdentity struct {
	ID      RemoteIdentityID
	Details RemoteIdentityDetails
}

// RemoteIdentityWithLocalID is a RemoteIdentity tagged with the UUID this
// engine assigned it locally, used to reference a specific candidate
// identity within a TemporaryToken without leaking provider-local ids to
// the client.
type RemoteIdentityWithLocalID struct {
	RemoteIdentity
	LocalID uuid.UUID
}

// NewRemoteIdentityWithLocalID mints a fresh local UUID for identity.
func NewRemoteIdentityWithLocalID(identity RemoteIdentity) RemoteIdentityWithLocalID {
	return RemoteIdentityWithLocalID{RemoteIdentity: identity, LocalID: uuid.New()}
}
