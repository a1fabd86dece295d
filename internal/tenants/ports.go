package tenants

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrTenantNotFound is returned when no active tenant/binding resolves for
// the given (provider, provider_account_id).
var ErrTenantNotFound = errors.New("tenant not found")

// TenantContext is the resolved, ready-to-use per-request tenant view:
// identity, config, and decrypted per-provider credentials.
type TenantContext struct {
	TenantID uuid.UUID
	Config   TenantConfig
	Creds    map[string]any
}

// TenantConfig is the subset of a tenant's JSON config the core reads. Any
// unrecognized keys are ignored deliberately — the engine must not read
// unknown keys out of a dynamic bag.
type TenantConfig struct {
	DispatchCrewFallbackEnabled *bool  `json:"dispatch_crew_fallback_enabled,omitempty"`
	EstimateDisplayEnabled      *bool  `json:"estimate_display_enabled,omitempty"`
	DefaultLanguage             string `json:"default_language,omitempty"`
}

// ParseTenantConfig decodes the tenant's raw JSON config column.
func ParseTenantConfig(raw json.RawMessage) (TenantConfig, error) {
	var cfg TenantConfig
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return TenantConfig{}, err
	}
	return cfg, nil
}
