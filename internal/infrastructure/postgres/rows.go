package postgres

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

// The JSON-in-TEXT columns below (roles, custom_roles, policy_ids,
// identities, providers, token_lifetimes_millis) trade normalized rows
// for a single scan/assign per aggregate field; auth_remote_identities
// is the one place identity data gets its own table, since it's also
// looked up by (provider, remote_id) independent of the owning user.

func encodeRoleSet(s domain.RoleSet) (string, error) {
	b, err := json.Marshal(s.Slice())
	return string(b), err
}

func decodeRoleSet(raw string) (domain.RoleSet, error) {
	var roles []domain.Role
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, err
	}
	return domain.NewRoleSet(roles...), nil
}

func encodeCustomRoles(m map[domain.CustomRole]bool) (string, error) {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func decodeCustomRoles(raw string) (map[domain.CustomRole]bool, error) {
	var m map[string]bool
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	out := make(map[domain.CustomRole]bool, len(m))
	for k, v := range m {
		out[domain.CustomRole(k)] = v
	}
	return out, nil
}

func encodeStringBoolMap(m map[string]bool) (string, error) {
	b, err := json.Marshal(m)
	return string(b), err
}

func decodeStringBoolMap(raw string) (map[string]bool, error) {
	var m map[string]bool
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

type identityRow struct {
	LocalID  uuid.UUID `json:"local_id"`
	Provider string    `json:"provider"`
	RemoteID string    `json:"remote_id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
}

func toIdentityRow(ri domain.RemoteIdentityWithLocalID) identityRow {
	return identityRow{
		LocalID:  ri.LocalID,
		Provider: ri.ID.Provider,
		RemoteID: ri.ID.RemoteID,
		Username: ri.Details.Username,
		FullName: ri.Details.FullName,
		Email:    ri.Details.Email,
	}
}

func (r identityRow) toDomain() domain.RemoteIdentityWithLocalID {
	return domain.RemoteIdentityWithLocalID{
		RemoteIdentity: domain.RemoteIdentity{
			ID:      domain.RemoteIdentityID{Provider: r.Provider, RemoteID: r.RemoteID},
			Details: domain.RemoteIdentityDetails{Username: r.Username, FullName: r.FullName, Email: r.Email},
		},
		LocalID: r.LocalID,
	}
}

func encodeIdentities(identities []domain.RemoteIdentityWithLocalID) (string, error) {
	rows := make([]identityRow, 0, len(identities))
	for _, ri := range identities {
		rows = append(rows, toIdentityRow(ri))
	}
	b, err := json.Marshal(rows)
	return string(b), err
}

func decodeIdentities(raw string) ([]domain.RemoteIdentityWithLocalID, error) {
	var rows []identityRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, err
	}
	out := make([]domain.RemoteIdentityWithLocalID, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

type providerConfigRow struct {
	Enabled          bool `json:"enabled"`
	ForceLoginChoice bool `json:"force_login_choice"`
	ForceLinkChoice  bool `json:"force_link_choice"`
}

func encodeProviders(m map[string]domain.ProviderConfig) (string, error) {
	out := make(map[string]providerConfigRow, len(m))
	for k, v := range m {
		out[k] = providerConfigRow{Enabled: v.Enabled, ForceLoginChoice: v.ForceLoginChoice, ForceLinkChoice: v.ForceLinkChoice}
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func decodeProviders(raw string) (map[string]domain.ProviderConfig, error) {
	var m map[string]providerConfigRow
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	out := make(map[string]domain.ProviderConfig, len(m))
	for k, v := range m {
		out[k] = domain.ProviderConfig{Enabled: v.Enabled, ForceLoginChoice: v.ForceLoginChoice, ForceLinkChoice: v.ForceLinkChoice}
	}
	return out, nil
}

func encodeLifetimes(m map[domain.TokenLifetimeType]int64) (string, error) {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func decodeLifetimes(raw string) (map[domain.TokenLifetimeType]int64, error) {
	var m map[string]int64
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	out := make(map[domain.TokenLifetimeType]int64, len(m))
	for k, v := range m {
		out[domain.TokenLifetimeType(k)] = v
	}
	return out, nil
}
