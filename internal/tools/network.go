package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent      = "gptbench/1.0"
	previewRunes   = 500
	maxFetchedBody = 1 << 20
)

type fetchArgs struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"`
}

type pingArgs struct {
	Host string `mapstructure:"host"`
}

type encodeArgs struct {
	Text string `mapstructure:"text"`
}

type decodeArgs struct {
	Encoded string `mapstructure:"encoded"`
}

func (r *Registry) registerNetwork() error {
	const category = "network"
	if err := r.Register(Spec{
		Name: "fetch_url", Category: category, Description: "HTTP GET a URL and preview the body.",
		Params: []Param{
			{Name: "url", Type: TypeString, Required: true},
			{Name: "timeout", Type: TypeInteger, Default: 10, Description: "seconds"},
		},
	}, typed(r.fetchURL)); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "ping_host", Category: category, Description: "Ping a host (simulated).",
		Params: []Param{{Name: "host", Type: TypeString, Required: true}},
	}, typed(func(_ context.Context, in pingArgs) (map[string]any, error) {
		return map[string]any{
			"host":       in.Host,
			"status":     "reachable",
			"latency_ms": r.between(5, 150),
			"packets":    map[string]any{"sent": 4, "received": 4, "lost": 0},
			"timestamp":  r.timestamp(),
		}, nil
	})); err != nil {
		return err
	}
	if err := r.Register(Spec{
		Name: "encode_url", Category: category, Description: "Percent-encode text for a URL.",
		Params: []Param{{Name: "text", Type: TypeString, Required: true}},
	}, typed(func(_ context.Context, in encodeArgs) (map[string]any, error) {
		return map[string]any{"original": in.Text, "encoded": quote(in.Text)}, nil
	})); err != nil {
		return err
	}
	return r.Register(Spec{
		Name: "decode_url", Category: category, Description: "Decode percent-encoded text.",
		Params: []Param{{Name: "encoded", Type: TypeString, Required: true}},
	}, typed(func(_ context.Context, in decodeArgs) (map[string]any, error) {
		decoded, err := url.PathUnescape(in.Encoded)
		if err != nil {
			decoded = in.Encoded
		}
		return map[string]any{"encoded": in.Encoded, "decoded": decoded}, nil
	}))
}

func (r *Registry) fetchURL(ctx context.Context, in fetchArgs) (map[string]any, error) {
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", in.URL)
	}
	timeout := time.Duration(in.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchedBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	preview := []rune(string(body))
	if len(preview) > previewRunes {
		preview = preview[:previewRunes]
	}
	return map[string]any{
		"url":             u.String(),
		"status_code":     resp.StatusCode,
		"content_type":    resp.Header.Get("Content-Type"),
		"content_length":  len(body),
		"content_preview": string(preview),
		"elapsed_ms":      time.Since(start).Milliseconds(),
	}, nil
}

// quote percent-encodes every byte outside the unreserved set, keeping "/" literal.
func quote(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldKeep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.~/", c) >= 0
}
