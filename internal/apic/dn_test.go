package apic

import (
	"strings"
	"testing"

	"github.com/HerbHall/aciclean/pkg/models"
)

func TestResolveDN(t *testing.T) {
	tests := []struct {
		scope models.Scope
		want  models.DN
	}{
		{models.Scope{Tenant: "prod", AppProfile: "web", EPG: "frontend"}, "uni/tn-prod/ap-web/epg-frontend"},
		{models.Scope{Tenant: "t1", AppProfile: "a-b", EPG: "e.1"}, "uni/tn-t1/ap-a-b/epg-e.1"},
	}
	for _, tt := range tests {
		if got := ResolveDN(tt.scope); got != tt.want {
			t.Errorf("ResolveDN(%+v) = %q, want %q", tt.scope, got, tt.want)
		}
		// Pure: same input, same output.
		if again := ResolveDN(tt.scope); again != ResolveDN(tt.scope) {
			t.Errorf("ResolveDN not deterministic for %+v", tt.scope)
		}
	}
}

func TestValidateScope(t *testing.T) {
	valid := models.Scope{Tenant: "prod", AppProfile: "web_01", EPG: "vlan:100.a-b"}
	if err := ValidateScope(valid); err != nil {
		t.Fatalf("ValidateScope(valid) = %v", err)
	}

	tests := []struct {
		name    string
		scope   models.Scope
		wantErr string
	}{
		{"empty tenant", models.Scope{AppProfile: "a", EPG: "e"}, "tenant"},
		{"empty app profile", models.Scope{Tenant: "t", EPG: "e"}, "app_profile"},
		{"empty epg", models.Scope{Tenant: "t", AppProfile: "a"}, "epg"},
		{"quote injection", models.Scope{Tenant: "t", AppProfile: "a", EPG: `e"),or(`}, "epg"},
		{"slash", models.Scope{Tenant: "t/x", AppProfile: "a", EPG: "e"}, "tenant"},
		{"space", models.Scope{Tenant: "t", AppProfile: "my app", EPG: "e"}, "app_profile"},
		{"too long", models.Scope{Tenant: strings.Repeat("x", 65), AppProfile: "a", EPG: "e"}, "tenant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScope(tt.scope)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEndpointFilter(t *testing.T) {
	got := EndpointFilter("uni/tn-prod/ap-web/epg-frontend")
	want := `eq(fvCEp.epgDn,"uni/tn-prod/ap-web/epg-frontend")`
	if got != want {
		t.Errorf("EndpointFilter = %q, want %q", got, want)
	}
}
