package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/HerbHall/aciclean/pkg/models"
)

// Fake controller credentials accepted by FakeAPIC.
const (
	FakeUser     = "admin"
	FakePassword = "s3cret"
	fakeToken    = "fake-apic-token"
)

// Call kinds counted by FakeAPIC.
const (
	CallLogin  = "login"
	CallQuery  = "query"
	CallDelete = "delete"
	CallLogout = "logout"
)

// FakeAPIC is an httptest server that mimics the APIC endpoints used by
// the purge workflow and records every call it receives.
type FakeAPIC struct {
	Server *httptest.Server

	mu           sync.Mutex
	loginStatus  int
	queryStatus  int
	queryBody    string
	endpoints    map[models.DN][]models.DN // epg DN -> endpoint DNs, in response order
	deleteStatus map[models.DN]int
	calls        map[string]int
	deleted      []models.DN
	filters      []string
}

// FakeOption configures a FakeAPIC.
type FakeOption func(*FakeAPIC)

// WithEndpoints registers endpoints learned in the given EPG.
func WithEndpoints(epgDN models.DN, dns ...models.DN) FakeOption {
	return func(f *FakeAPIC) { f.endpoints[epgDN] = append(f.endpoints[epgDN], dns...) }
}

// WithDeleteStatus makes deletion of dn answer with status.
func WithDeleteStatus(dn models.DN, status int) FakeOption {
	return func(f *FakeAPIC) { f.deleteStatus[dn] = status }
}

// WithLoginStatus forces every login to answer with status.
func WithLoginStatus(status int) FakeOption {
	return func(f *FakeAPIC) { f.loginStatus = status }
}

// WithQueryStatus forces every endpoint query to answer with status.
func WithQueryStatus(status int) FakeOption {
	return func(f *FakeAPIC) { f.queryStatus = status }
}

// WithQueryBody replaces the endpoint query reply with a raw body.
func WithQueryBody(body string) FakeOption {
	return func(f *FakeAPIC) { f.queryBody = body }
}

// NewFakeAPIC starts a fake controller that is closed when the test ends.
func NewFakeAPIC(t *testing.T, opts ...FakeOption) *FakeAPIC {
	t.Helper()
	f := &FakeAPIC{
		endpoints:    make(map[models.DN][]models.DN),
		deleteStatus: make(map[models.DN]int),
		calls:        make(map[string]int),
	}
	for _, opt := range opts {
		opt(f)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/aaaLogin.json", f.handleLogin)
	mux.HandleFunc("POST /api/aaaLogout.json", f.handleLogout)
	mux.HandleFunc("GET /api/node/class/fvCEp.json", f.handleQuery)
	mux.HandleFunc("DELETE /api/node/mo/", f.handleDelete)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the fake controller base URL.
func (f *FakeAPIC) URL() string { return f.Server.URL }

// Calls returns how many requests of the given kind were received.
func (f *FakeAPIC) Calls(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

// Deleted returns the DNs whose deletion was requested, in request order.
func (f *FakeAPIC) Deleted() []models.DN {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DN(nil), f.deleted...)
}

// Filters returns the decoded query-target-filter of every endpoint query.
func (f *FakeAPIC) Filters() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.filters...)
}

func (f *FakeAPIC) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.count(CallLogin)

	var req struct {
		AaaUser struct {
			Attributes struct {
				Name string `json:"name"`
				Pwd  string `json:"pwd"`
			} `json:"attributes"`
		} `json:"aaaUser"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPICError(w, http.StatusBadRequest, "malformed login body")
		return
	}

	f.mu.Lock()
	status := f.loginStatus
	f.mu.Unlock()
	if status == 0 && (req.AaaUser.Attributes.Name != FakeUser || req.AaaUser.Attributes.Pwd != FakePassword) {
		status = http.StatusUnauthorized
	}
	if status != 0 && status != http.StatusOK {
		writeAPICError(w, status, "Username or password is incorrect - FAILED local authentication")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "APIC-cookie", Value: fakeToken, Path: "/"})
	writeFakeJSON(w, http.StatusOK, map[string]any{
		"totalCount": "1",
		"imdata": []any{map[string]any{
			"aaaLogin": map[string]any{"attributes": map[string]string{
				"token":                 fakeToken,
				"refreshTimeoutSeconds": "600",
			}},
		}},
	})
}

func (f *FakeAPIC) handleLogout(w http.ResponseWriter, _ *http.Request) {
	f.count(CallLogout)
	writeFakeJSON(w, http.StatusOK, map[string]any{"totalCount": "0", "imdata": []any{}})
}

func (f *FakeAPIC) handleQuery(w http.ResponseWriter, r *http.Request) {
	f.count(CallQuery)
	if !authorized(r) {
		writeAPICError(w, http.StatusForbidden, "Token was invalid (Error: Token timeout)")
		return
	}

	filter := r.URL.Query().Get("query-target-filter")

	f.mu.Lock()
	f.filters = append(f.filters, filter)
	status, raw := f.queryStatus, f.queryBody
	var dns []models.DN
	for epgDN, eps := range f.endpoints {
		if filter == `eq(fvCEp.epgDn,"`+epgDN.String()+`")` {
			dns = append(dns, eps...)
		}
	}
	f.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		writeAPICError(w, status, "query failed")
		return
	}
	if raw != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(raw))
		return
	}

	imdata := make([]any, 0, len(dns))
	for _, dn := range dns {
		imdata = append(imdata, map[string]any{
			"fvCEp": map[string]any{"attributes": map[string]string{"dn": dn.String()}},
		})
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{"totalCount": strconv.Itoa(len(imdata)), "imdata": imdata})
}

func (f *FakeAPIC) handleDelete(w http.ResponseWriter, r *http.Request) {
	f.count(CallDelete)
	if !authorized(r) {
		writeAPICError(w, http.StatusForbidden, "Token was invalid (Error: Token timeout)")
		return
	}
	dn := models.DN(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/node/mo/"), ".json"))

	f.mu.Lock()
	f.deleted = append(f.deleted, dn)
	status := f.deleteStatus[dn]
	if status == 0 || status == http.StatusOK {
		f.removeLocked(dn)
	}
	f.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		writeAPICError(w, status, "Unable to delete "+dn.String())
		return
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{"totalCount": "0", "imdata": []any{}})
}

func (f *FakeAPIC) removeLocked(dn models.DN) {
	for epgDN, eps := range f.endpoints {
		kept := eps[:0]
		for _, ep := range eps {
			if ep != dn {
				kept = append(kept, ep)
			}
		}
		f.endpoints[epgDN] = kept
	}
}

func (f *FakeAPIC) count(kind string) {
	f.mu.Lock()
	f.calls[kind]++
	f.mu.Unlock()
}

func authorized(r *http.Request) bool {
	c, err := r.Cookie("APIC-cookie")
	return err == nil && c.Value == fakeToken
}

func writeAPICError(w http.ResponseWriter, status int, text string) {
	writeFakeJSON(w, status, map[string]any{
		"totalCount": "1",
		"imdata": []any{map[string]any{
			"error": map[string]any{"attributes": map[string]string{"text": text}},
		}},
	})
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
