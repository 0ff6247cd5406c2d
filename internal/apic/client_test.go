package apic

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/aciclean/internal/testutil"
	"github.com/HerbHall/aciclean/pkg/models"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{URL: baseURL, Timeout: 5 * time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func goodCreds() models.Credentials {
	return models.Credentials{Username: testutil.FakeUser, Password: testutil.FakePassword}
}

func login(t *testing.T, c *Client) *Session {
	t.Helper()
	s, err := c.Login(context.Background(), goodCreds())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestNewClient_RejectsBadURLs(t *testing.T) {
	tests := []string{
		"",
		"apic.example.net",
		"ftp://apic.example.net",
		"https://",
		"https://apic.example.net/?x=1",
	}
	for _, raw := range tests {
		if _, err := NewClient(Config{URL: raw}, nil); err == nil {
			t.Errorf("NewClient(%q) expected error, got nil", raw)
		}
	}
}

func TestNewClient_BadCAFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatalf("write CA file: %v", err)
	}
	if _, err := NewClient(Config{URL: "https://apic.example.net", CAFile: path}, nil); err == nil {
		t.Error("expected error for CA file without certificates")
	}
	if _, err := NewClient(Config{URL: "https://apic.example.net", CAFile: filepath.Join(dir, "missing.pem")}, nil); err == nil {
		t.Error("expected error for missing CA file")
	}
}

func TestNewClient_TLSVerificationOnByDefault(t *testing.T) {
	c, err := NewClient(Config{URL: "https://apic.example.net"}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should default to false")
	}
	if c.timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s default", c.timeout)
	}

	c, err = NewClient(Config{URL: "https://apic.example.net", InsecureSkipVerify: true}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if !c.transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("InsecureSkipVerify opt-in was not applied")
	}
}

func TestLogin_Success(t *testing.T) {
	fake := testutil.NewFakeAPIC(t)
	c := newTestClient(t, fake.URL())

	s := login(t, c)
	if s == nil {
		t.Fatal("expected session")
	}
	if got := fake.Calls(testutil.CallLogin); got != 1 {
		t.Errorf("login calls = %d, want 1", got)
	}
}

func TestLogin_Rejected(t *testing.T) {
	fake := testutil.NewFakeAPIC(t)
	c := newTestClient(t, fake.URL())

	_, err := c.Login(context.Background(), models.Credentials{Username: "admin", Password: "wrong"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login error = %v, want *AuthError", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", authErr.StatusCode)
	}
	if !strings.Contains(authErr.Body, "FAILED local authentication") {
		t.Errorf("Body = %q, want controller error text", authErr.Body)
	}
	if strings.Contains(err.Error(), "wrong") {
		t.Error("error message leaked the password")
	}
	if got := fake.Calls(testutil.CallLogin); got != 1 {
		t.Errorf("login calls = %d, want exactly 1 (no retry)", got)
	}
}

func TestLogin_MissingCredentials(t *testing.T) {
	fake := testutil.NewFakeAPIC(t)
	c := newTestClient(t, fake.URL())

	_, err := c.Login(context.Background(), models.Credentials{Username: "admin"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login error = %v, want *AuthError", err)
	}
	if fake.Calls(testutil.CallLogin) != 0 {
		t.Error("login must not be attempted without a password")
	}
}

func TestLogin_Unreachable(t *testing.T) {
	fake := testutil.NewFakeAPIC(t)
	url := fake.URL()
	fake.Server.Close()

	c := newTestClient(t, url)
	_, err := c.Login(context.Background(), goodCreds())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login error = %v, want *AuthError", err)
	}
	if authErr.StatusCode != 0 || authErr.Err == nil {
		t.Errorf("AuthError = %+v, want transport failure with status 0", authErr)
	}
}

func TestListEndpoints(t *testing.T) {
	scope := testutil.NewScope()
	dns := testutil.EndpointDNs(scope, 3)
	fake := testutil.NewFakeAPIC(t, testutil.WithEndpoints(ResolveDN(scope), dns...))
	s := login(t, newTestClient(t, fake.URL()))

	got, err := s.ListEndpoints(context.Background(), scope)
	if err != nil {
		t.Fatalf("ListEndpoints: %v", err)
	}
	if len(got) != len(dns) {
		t.Fatalf("got %d endpoints, want %d", len(got), len(dns))
	}
	for i := range dns {
		if got[i] != dns[i] {
			t.Errorf("endpoint[%d] = %q, want %q (response order)", i, got[i], dns[i])
		}
	}

	filters := fake.Filters()
	want := `eq(fvCEp.epgDn,"uni/tn-prod/ap-web/epg-frontend")`
	if len(filters) != 1 || filters[0] != want {
		t.Errorf("filters = %v, want [%s]", filters, want)
	}
}

func TestListEndpoints_Empty(t *testing.T) {
	fake := testutil.NewFakeAPIC(t)
	s := login(t, newTestClient(t, fake.URL()))

	got, err := s.ListEndpoints(context.Background(), testutil.NewScope())
	if err != nil {
		t.Fatalf("ListEndpoints on empty EPG: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d endpoints, want 0", len(got))
	}
}

func TestListEndpoints_Failures(t *testing.T) {
	tests := []struct {
		name       string
		opt        testutil.FakeOption
		wantStatus int
	}{
		{"server error", testutil.WithQueryStatus(http.StatusInternalServerError), http.StatusInternalServerError},
		{"malformed json", testutil.WithQueryBody(`{"imdata": [`), http.StatusOK},
		{"missing imdata", testutil.WithQueryBody(`{"totalCount": "0"}`), http.StatusOK},
		{"missing dn", testutil.WithQueryBody(`{"imdata": [{"fvCEp": {"attributes": {}}}]}`), http.StatusOK},
		{"wrong class", testutil.WithQueryBody(`{"imdata": [{"fvIp": {"attributes": {"dn": "x"}}}]}`), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeAPIC(t, tt.opt)
			s := login(t, newTestClient(t, fake.URL()))

			_, err := s.ListEndpoints(context.Background(), testutil.NewScope())
			var qErr *QueryError
			if !errors.As(err, &qErr) {
				t.Fatalf("error = %v, want *QueryError", err)
			}
			if qErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", qErr.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestListEndpoints_TotalCountShapes(t *testing.T) {
	dn := testutil.EndpointDN(testutil.NewScope(), "00:11:22:33:44:01")
	item := `{"fvCEp": {"attributes": {"dn": "` + dn.String() + `", "mac": "00:11:22:33:44:01"}}}`
	tests := []struct {
		name string
		body string
	}{
		{"string count", `{"totalCount": "1", "imdata": [` + item + `]}`},
		{"numeric count", `{"totalCount": 1, "imdata": [` + item + `]}`},
		{"absent count", `{"imdata": [` + item + `]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeAPIC(t, testutil.WithQueryBody(tt.body))
			s := login(t, newTestClient(t, fake.URL()))

			got, err := s.ListEndpoints(context.Background(), testutil.NewScope())
			if err != nil {
				t.Fatalf("ListEndpoints: %v", err)
			}
			if len(got) != 1 || got[0] != dn {
				t.Errorf("got %v, want [%s]", got, dn)
			}
		})
	}
}

func TestListEndpoints_InvalidScopeMakesNoRequest(t *testing.T) {
	fake := testutil.NewFakeAPIC(t)
	s := login(t, newTestClient(t, fake.URL()))

	_, err := s.ListEndpoints(context.Background(), testutil.NewScope(testutil.WithEPG(`x")`)))
	var qErr *QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("error = %v, want *QueryError", err)
	}
	if fake.Calls(testutil.CallQuery) != 0 {
		t.Error("invalid scope must not reach the controller")
	}
}

func TestDeleteEndpoint(t *testing.T) {
	scope := testutil.NewScope()
	dns := testutil.EndpointDNs(scope, 2)
	fake := testutil.NewFakeAPIC(t,
		testutil.WithEndpoints(ResolveDN(scope), dns...),
		testutil.WithDeleteStatus(dns[1], http.StatusNotFound),
	)
	s := login(t, newTestClient(t, fake.URL()))

	ok := s.DeleteEndpoint(context.Background(), dns[0])
	if !ok.Success || ok.Detail != "" || ok.DN != dns[0] {
		t.Errorf("delete ok = %+v, want success with empty detail", ok)
	}

	failed := s.DeleteEndpoint(context.Background(), dns[1])
	if failed.Success {
		t.Fatal("expected failure for 404")
	}
	if !strings.HasPrefix(failed.Detail, "404 - ") {
		t.Errorf("Detail = %q, want prefix %q", failed.Detail, "404 - ")
	}

	deleted := fake.Deleted()
	if len(deleted) != 2 || deleted[0] != dns[0] || deleted[1] != dns[1] {
		t.Errorf("deleted = %v, want %v", deleted, dns)
	}
}

func TestSessionClose_LogsOutOnce(t *testing.T) {
	fake := testutil.NewFakeAPIC(t)
	c := newTestClient(t, fake.URL())

	s, err := c.Login(context.Background(), goodCreds())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := fake.Calls(testutil.CallLogout); got != 1 {
		t.Errorf("logout calls = %d, want 1", got)
	}
}

func TestEndpointURL_EscapesPath(t *testing.T) {
	c := newTestClient(t, "https://apic.example.net/")
	got := c.endpointURL("/api/node/mo/uni/tn-a/ap-b/epg-c/cep-00:11:22:33:44:55.json", nil)
	want := "https://apic.example.net/api/node/mo/uni/tn-a/ap-b/epg-c/cep-00:11:22:33:44:55.json"
	if got != want {
		t.Errorf("endpointURL = %q, want %q", got, want)
	}
}
