package apic

import (
	"fmt"
	"regexp"

	"github.com/HerbHall/aciclean/pkg/models"
)

// EndpointClass is the APIC class of learned concrete endpoints.
const EndpointClass = "fvCEp"

// maxNameLen is the APIC limit for tenant, application profile and EPG names.
const maxNameLen = 64

// namePattern matches the characters APIC accepts in object names.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// ResolveDN returns the distinguished name of the endpoint group selected by scope.
func ResolveDN(scope models.Scope) models.DN {
	return models.DN(fmt.Sprintf("uni/tn-%s/ap-%s/epg-%s", scope.Tenant, scope.AppProfile, scope.EPG))
}

// ValidateScope rejects scope components that APIC would not accept as
// object names. Anything that passes is safe to interpolate into a DN or
// a query filter without further escaping.
func ValidateScope(scope models.Scope) error {
	fields := []struct {
		name  string
		value string
	}{
		{"tenant", scope.Tenant},
		{"app_profile", scope.AppProfile},
		{"epg", scope.EPG},
	}
	for _, f := range fields {
		if err := validateName(f.value); err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}
	return nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("must not be empty")
	case len(name) > maxNameLen:
		return fmt.Errorf("%q exceeds %d characters", name, maxNameLen)
	case !namePattern.MatchString(name):
		return fmt.Errorf("%q contains characters outside [A-Za-z0-9_.:-]", name)
	}
	return nil
}

// EndpointFilter builds the query-target-filter selecting every fvCEp
// learned in the given endpoint group.
func EndpointFilter(epgDN models.DN) string {
	return fmt.Sprintf(`eq(%s.epgDn,"%s")`, EndpointClass, epgDN)
}
