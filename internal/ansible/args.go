// Package ansible implements the Ansible binary-module protocol for the
// purge workflow: arguments arrive as a JSON file, the result is a single
// JSON object on stdout.
package ansible

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/HerbHall/aciclean/internal/apic"
	"github.com/HerbHall/aciclean/pkg/models"
)

// Params are the module arguments.
type Params struct {
	APIC          string `json:"apic"`
	Username      string `json:"username"`
	Password      string `json:"password"` //nolint:gosec // G117: no_log module argument
	Tenant        string `json:"tenant"`
	AppProfile    string `json:"app_profile"`
	EPG           string `json:"epg"`
	ValidateCerts *bool  `json:"validate_certs"`
	CAFile        string `json:"ca_file"`
	Timeout       int    `json:"timeout"` // seconds
	CheckMode     bool   `json:"_ansible_check_mode"`
}

// ParseArgs decodes module arguments and checks the required ones.
func ParseArgs(r io.Reader) (Params, error) {
	var p Params
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Params{}, fmt.Errorf("decode module arguments: %w", err)
	}

	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"apic", p.APIC},
		{"username", p.Username},
		{"password", p.Password},
		{"tenant", p.Tenant},
		{"app_profile", p.AppProfile},
		{"epg", p.EPG},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Params{}, fmt.Errorf("missing required arguments: %s", strings.Join(missing, ", "))
	}
	if p.Timeout < 0 {
		return Params{}, fmt.Errorf("timeout must not be negative")
	}
	return p, nil
}

// ClientConfig returns the controller settings. Certificates are verified
// unless validate_certs is explicitly false.
func (p Params) ClientConfig() apic.Config {
	cfg := apic.DefaultConfig()
	cfg.URL = p.APIC
	cfg.CAFile = p.CAFile
	cfg.InsecureSkipVerify = p.ValidateCerts != nil && !*p.ValidateCerts
	if p.Timeout > 0 {
		cfg.Timeout = time.Duration(p.Timeout) * time.Second
	}
	return cfg
}

// Credentials returns the login pair.
func (p Params) Credentials() models.Credentials {
	return models.Credentials{Username: p.Username, Password: p.Password}
}

// Scope returns the target endpoint group.
func (p Params) Scope() models.Scope {
	return models.Scope{Tenant: p.Tenant, AppProfile: p.AppProfile, EPG: p.EPG}
}
