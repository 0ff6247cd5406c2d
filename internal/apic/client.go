package apic

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/HerbHall/aciclean/pkg/models"
	"go.uber.org/zap"
)

// Client talks to one APIC controller. It holds no credentials; every
// Login yields an independent Session with its own cookie jar.
type Client struct {
	base      *url.URL
	timeout   time.Duration
	transport *http.Transport
	logger    *zap.Logger
}

// NewClient validates cfg and prepares the shared HTTP transport.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := parseBaseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	tlsCfg, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg

	if cfg.InsecureSkipVerify {
		logger.Warn("TLS certificate verification disabled",
			zap.String("controller", base.Host),
		)
	}

	return &Client{
		base:      base,
		timeout:   cfg.Timeout,
		transport: transport,
		logger:    logger,
	}, nil
}

// BaseURL returns the controller origin the client was configured with.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Login exchanges creds for an authenticated session. Any response other
// than 200 yields an *AuthError; there is no retry.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, &AuthError{Err: fmt.Errorf("username and password are required")}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	s := &Session{
		client:   c,
		username: creds.Username,
		http: &http.Client{
			Transport: c.transport,
			Jar:       jar,
			Timeout:   c.timeout,
		},
		logger: c.logger,
	}

	body := aaaUserRequest{AaaUser: aaaUser{Attributes: aaaUserAttributes{
		Name: creds.Username,
		Pwd:  creds.Password,
	}}}
	status, respBody, err := s.do(ctx, http.MethodPost, "/api/aaaLogin.json", nil, body)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	if status != http.StatusOK {
		c.logger.Warn("login rejected",
			zap.String("user", creds.Username),
			zap.Int("status", status),
		)
		return nil, &AuthError{StatusCode: status, Body: snippet(respBody)}
	}

	s.adoptToken(respBody)
	c.logger.Info("logged in",
		zap.String("controller", c.base.Host),
		zap.String("user", creds.Username),
	)
	return s, nil
}

// endpointURL joins path onto the controller base. The path is escaped by
// net/url, so DNs containing reserved characters stay in the path.
func (c *Client) endpointURL(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("controller URL is required")
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse controller URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("controller URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("controller URL %q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("controller URL %q: must not carry a query or fragment", raw)
	}
	return u, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // G402: explicit operator opt-in
	}
	if cfg.CAFile == "" {
		return tlsCfg, nil
	}

	pem, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA file %q contains no PEM certificates", cfg.CAFile)
	}
	tlsCfg.RootCAs = pool
	return tlsCfg, nil
}
