package hostbridge

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spikewatch/spikewatch/internal/config"
)

const defaultTimeout = 10 * time.Second

// Bridge talks to the command bridge running inside the animation host and
// implements scene.Host plus all its optional capabilities. One Bridge is
// built at startup and reused across every request; it is safe for concurrent
// use, though the host serialises cursor moves on its side.
type Bridge struct {
	base   string // endpoint with trailing slash trimmed
	client *http.Client
}

// New builds a Bridge for the configured endpoint. The HTTP client carries
// the configured auth mode and TLS settings and is reused across calls.
func New(cfg config.HostConfig) (*Bridge, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("hostbridge: endpoint is required")
	}
	client, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("hostbridge: build http client: %w", err)
	}
	base := cfg.Endpoint
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return &Bridge{base: base, client: client}, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the bridge's auth and TLS settings.
func buildHTTPClient(cfg config.HostConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if cfg.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(cfg.Auth.CertFile, cfg.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if cfg.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(cfg.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &authRoundTripper{
		base: &http.Transport{TLSClientConfig: tlsCfg},
		auth: cfg.Auth,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// --- wire types -------------------------------------------------------------

type attrInfo struct {
	Exists bool   `json:"exists"`
	Kind   string `json:"kind"`
}

type valueBody struct {
	Value float64 `json:"value"`
}

type cursorBody struct {
	Time float64 `json:"time"`
}

type rangeBody struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type refreshBody struct {
	Suspend bool `json:"suspend"`
}

type selectionBody struct {
	Refs []string `json:"refs"`
}

type nodesBody struct {
	Nodes []string `json:"nodes"`
}

type optionBody struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// --- scene.Host -------------------------------------------------------------

func (b *Bridge) AttrExists(ref string) (bool, error) {
	var info attrInfo
	if err := b.getJSON("/bridge/v1/attrs/"+url.PathEscape(ref), &info); err != nil {
		return false, err
	}
	return info.Exists, nil
}

func (b *Bridge) AttrKind(ref string) (string, error) {
	var info attrInfo
	if err := b.getJSON("/bridge/v1/attrs/"+url.PathEscape(ref), &info); err != nil {
		return "", err
	}
	if !info.Exists {
		return "", fmt.Errorf("hostbridge: attribute %q not found", ref)
	}
	return info.Kind, nil
}

func (b *Bridge) AttrValue(ref string) (float64, error) {
	var v valueBody
	if err := b.getJSON("/bridge/v1/attrs/"+url.PathEscape(ref)+"/value", &v); err != nil {
		return 0, err
	}
	return v.Value, nil
}

func (b *Bridge) Cursor() (float64, error) {
	var c cursorBody
	if err := b.getJSON("/bridge/v1/cursor", &c); err != nil {
		return 0, err
	}
	return c.Time, nil
}

func (b *Bridge) SetCursor(time float64) error {
	return b.putJSON("/bridge/v1/cursor", cursorBody{Time: time}, nil)
}

func (b *Bridge) PlaybackRange() (int, int, error) {
	var r rangeBody
	if err := b.getJSON("/bridge/v1/playback-range", &r); err != nil {
		return 0, 0, err
	}
	return r.Start, r.End, nil
}

// --- optional capabilities --------------------------------------------------

func (b *Bridge) SuspendRefresh(suspend bool) error {
	return b.postJSON("/bridge/v1/refresh", refreshBody{Suspend: suspend}, nil)
}

func (b *Bridge) OpenUndoBatch() error {
	return b.postJSON("/bridge/v1/undo/open", nil, nil)
}

func (b *Bridge) CloseUndoBatch() error {
	return b.postJSON("/bridge/v1/undo/close", nil, nil)
}

func (b *Bridge) ListNodes(pattern string) ([]string, error) {
	var nodes nodesBody
	if err := b.getJSON("/bridge/v1/nodes?pattern="+url.QueryEscape(pattern), &nodes); err != nil {
		return nil, err
	}
	return nodes.Nodes, nil
}

func (b *Bridge) SelectedChannels() ([]string, error) {
	var sel selectionBody
	if err := b.getJSON("/bridge/v1/selection", &sel); err != nil {
		return nil, err
	}
	return sel.Refs, nil
}

func (b *Bridge) Option(key string) (string, bool, error) {
	var opt optionBody
	if err := b.getJSON("/bridge/v1/options/"+url.PathEscape(key), &opt); err != nil {
		return "", false, err
	}
	return opt.Value, opt.Found, nil
}

func (b *Bridge) SetOption(key, value string) error {
	return b.putJSON("/bridge/v1/options/"+url.PathEscape(key), optionBody{Value: value}, nil)
}

// --- transport helpers ------------------------------------------------------

func (b *Bridge) getJSON(path string, out interface{}) error {
	return b.do(http.MethodGet, path, nil, out)
}

func (b *Bridge) putJSON(path string, in, out interface{}) error {
	return b.do(http.MethodPut, path, in, out)
}

func (b *Bridge) postJSON(path string, in, out interface{}) error {
	return b.do(http.MethodPost, path, in, out)
}

func (b *Bridge) do(method, path string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("hostbridge: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, b.base+path, body)
	if err != nil {
		return fmt.Errorf("hostbridge: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("hostbridge: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("hostbridge: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("hostbridge: decode response: %w", err)
		}
	}
	return nil
}
