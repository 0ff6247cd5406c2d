package testutil

import (
	"fmt"

	"github.com/HerbHall/aciclean/pkg/models"
)

// NewScope returns a Scope with sensible defaults, suitable for test fixtures.
// Override individual fields with the option helpers.
func NewScope(opts ...func(*models.Scope)) models.Scope {
	s := models.Scope{
		Tenant:     "prod",
		AppProfile: "web",
		EPG:        "frontend",
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithTenant sets the scope tenant.
func WithTenant(name string) func(*models.Scope) {
	return func(s *models.Scope) { s.Tenant = name }
}

// WithAppProfile sets the scope application profile.
func WithAppProfile(name string) func(*models.Scope) {
	return func(s *models.Scope) { s.AppProfile = name }
}

// WithEPG sets the scope endpoint group.
func WithEPG(name string) func(*models.Scope) {
	return func(s *models.Scope) { s.EPG = name }
}

// EndpointDN returns the DN of a learned endpoint with the given MAC inside scope.
func EndpointDN(scope models.Scope, mac string) models.DN {
	return models.DN(fmt.Sprintf("uni/tn-%s/ap-%s/epg-%s/cep-%s", scope.Tenant, scope.AppProfile, scope.EPG, mac))
}

// EndpointDNs returns n endpoint DNs inside scope with distinct MACs.
func EndpointDNs(scope models.Scope, n int) []models.DN {
	dns := make([]models.DN, 0, n)
	for i := 1; i <= n; i++ {
		dns = append(dns, EndpointDN(scope, fmt.Sprintf("00:11:22:33:44:%02X", i)))
	}
	return dns
}
