package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bft-labs/topicflux/internal/domain"
)

// Target selects the write endpoint of the sink.
//
// Exactly one mode applies: Database selects the InfluxDB 1.x /write
// endpoint, Org and Bucket select the 2.x /api/v2/write endpoint, and with
// neither set the base URL (optionally with Path) is used as is, which suits
// proxies and line-protocol compatible collectors.
type Target struct {
	BaseURL  string
	Database string
	Org      string
	Bucket   string
	Path     string
}

// Mode names the endpoint style of a target.
func (t Target) Mode() string {
	switch {
	case t.Database != "":
		return "v1"
	case t.Org != "" || t.Bucket != "":
		return "v2"
	default:
		return "path"
	}
}

// Validate checks that the target is complete and unambiguous.
func (t Target) Validate() error {
	if t.BaseURL == "" {
		return fmt.Errorf("%w: influx host is required", domain.ErrInvalidConfig)
	}
	if t.Database != "" && (t.Org != "" || t.Bucket != "") {
		return fmt.Errorf("%w: influx database conflicts with org/bucket", domain.ErrInvalidConfig)
	}
	if (t.Org == "") != (t.Bucket == "") {
		return fmt.Errorf("%w: influx org and bucket must be given together", domain.ErrInvalidConfig)
	}
	if t.Path != "" && t.Mode() != "path" {
		return fmt.Errorf("%w: influx path cannot be combined with database or org/bucket", domain.ErrInvalidConfig)
	}
	return nil
}

// URL builds the write URL.
func (t Target) URL() (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: influx host: %w", domain.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: influx host must be an http(s) URL, got %q", domain.ErrInvalidConfig, t.BaseURL)
	}

	q := url.Values{}
	switch t.Mode() {
	case "v1":
		u.Path = "/write"
		q.Set("db", t.Database)
		u.RawQuery = q.Encode()
	case "v2":
		u.Path = "/api/v2/write"
		q.Set("org", t.Org)
		q.Set("bucket", t.Bucket)
		u.RawQuery = q.Encode()
	default:
		if t.Path != "" {
			u.Path = "/" + strings.TrimLeft(t.Path, "/")
		}
	}
	return u.String(), nil
}
