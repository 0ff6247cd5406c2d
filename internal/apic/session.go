package apic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/HerbHall/aciclean/internal/version"
	"github.com/HerbHall/aciclean/pkg/models"
	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of any controller reply is read.
const maxResponseBytes = 32 << 20

// cookieName is the session cookie set by aaaLogin.
const cookieName = "APIC-cookie"

// Session is an authenticated handle on one controller. It is read-only
// after Login and must be released with Close.
type Session struct {
	client   *Client
	http     *http.Client
	username string
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// ListEndpoints returns the DNs of every concrete endpoint learned in the
// endpoint group selected by scope, in controller response order. An empty
// group is not an error.
func (s *Session) ListEndpoints(ctx context.Context, scope models.Scope) ([]models.DN, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, &QueryError{Err: err}
	}
	epgDN := ResolveDN(scope)

	query := url.Values{}
	query.Set("query-target-filter", EndpointFilter(epgDN))
	status, body, err := s.do(ctx, http.MethodGet, "/api/node/class/"+EndpointClass+".json", query, nil)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	if status != http.StatusOK {
		return nil, &QueryError{StatusCode: status, Body: snippet(body)}
	}

	var resp endpointClassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &QueryError{StatusCode: status, Body: snippet(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.Imdata == nil {
		return nil, &QueryError{StatusCode: status, Body: snippet(body), Err: errors.New("response has no imdata field")}
	}

	dns := make([]models.DN, 0, len(*resp.Imdata))
	for i, obj := range *resp.Imdata {
		if obj.FvCEp == nil || obj.FvCEp.Attributes.DN == "" {
			return nil, &QueryError{StatusCode: status, Body: snippet(body), Err: fmt.Errorf("imdata[%d] has no %s dn", i, EndpointClass)}
		}
		dns = append(dns, models.DN(obj.FvCEp.Attributes.DN))
	}

	s.logger.Debug("endpoints listed",
		zap.String("epg_dn", epgDN.String()),
		zap.Int("count", len(dns)),
	)
	return dns, nil
}

// DeleteEndpoint removes one managed object. The outcome is always
// reported through the result; a failure never affects other deletions.
func (s *Session) DeleteEndpoint(ctx context.Context, dn models.DN) models.OperationResult {
	status, body, err := s.do(ctx, http.MethodDelete, "/api/node/mo/"+dn.String()+".json", nil, nil)
	if err != nil {
		return models.OperationResult{DN: dn, Detail: err.Error()}
	}
	if status != http.StatusOK {
		return models.OperationResult{DN: dn, Detail: statusDetail(status, body)}
	}
	return models.OperationResult{DN: dn, Success: true}
}

// Close logs the session out and drops idle connections. It is safe to
// call more than once; only the first call contacts the controller.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		defer s.http.CloseIdleConnections()

		body := aaaUserRequest{AaaUser: aaaUser{Attributes: aaaUserAttributes{Name: s.username}}}
		status, respBody, err := s.do(ctx, http.MethodPost, "/api/aaaLogout.json", nil, body)
		switch {
		case err != nil:
			s.closeErr = fmt.Errorf("logout: %w", err)
		case status != http.StatusOK:
			s.closeErr = fmt.Errorf("logout: %s", statusDetail(status, respBody))
		default:
			s.logger.Debug("logged out", zap.String("user", s.username))
		}
	})
	return s.closeErr
}

// adoptToken seeds the cookie jar from the login body when the controller
// did not already set the session cookie.
func (s *Session) adoptToken(body []byte) {
	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.logger.Debug("login response not decoded", zap.Error(err))
		return
	}
	if len(resp.Imdata) == 0 || resp.Imdata[0].AaaLogin == nil {
		return
	}
	token := resp.Imdata[0].AaaLogin.Attributes.Token
	if token == "" {
		return
	}
	for _, c := range s.http.Jar.Cookies(s.client.base) {
		if c.Name == cookieName {
			return
		}
	}
	s.http.Jar.SetCookies(s.client.base, []*http.Cookie{{Name: cookieName, Value: token, Path: "/"}})
}

// do performs one request and returns the status and body. A non-nil
// error means no usable response was received.
func (s *Session) do(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.endpointURL(path, query), reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	s.logger.Debug("apic request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.StatusCode, respBody, nil
}
