package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/topicflux/internal/domain"
	"github.com/bft-labs/topicflux/internal/ports"
)

// maxErrorBody caps how much of an error response is kept for logging.
const maxErrorBody = 4 << 10

// DefaultAuthScheme prefixes the token in the Authorization header.
const DefaultAuthScheme = "Token"

// WriterConfig contains the settings of an InfluxWriter.
type WriterConfig struct {
	Target     Target
	Token      string
	AuthScheme string
	Gzip       bool
	UserAgent  string
}

// InfluxWriter implements ports.LineWriter with one HTTP POST per batch.
type InfluxWriter struct {
	client    ports.HTTPClient
	logger    ports.Logger
	url       string
	auth      string
	gzip      bool
	userAgent string
}

// NewInfluxWriter creates a writer. It fails when the target is invalid.
func NewInfluxWriter(cfg WriterConfig, client ports.HTTPClient, logger ports.Logger) (*InfluxWriter, error) {
	u, err := cfg.Target.URL()
	if err != nil {
		return nil, err
	}

	var auth string
	if cfg.Token != "" {
		scheme := cfg.AuthScheme
		if scheme == "" {
			scheme = DefaultAuthScheme
		}
		auth = scheme + " " + cfg.Token
	}

	return &InfluxWriter{
		client:    client,
		logger:    logger,
		url:       u,
		auth:      auth,
		gzip:      cfg.Gzip,
		userAgent: cfg.UserAgent,
	}, nil
}

// URL returns the write endpoint.
func (w *InfluxWriter) URL() string {
	return w.url
}

// Write posts the lines newline-joined. It makes exactly one attempt.
func (w *InfluxWriter) Write(ctx context.Context, lines []string) error {
	body, err := w.encodeBody(lines)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}
	if w.auth != "" {
		req.Header.Set("Authorization", w.auth)
	}
	if w.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.RejectedError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(respBody)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Probe writes an empty batch to check reachability and credentials.
func (w *InfluxWriter) Probe(ctx context.Context) error {
	if err := w.Write(ctx, nil); err != nil {
		return fmt.Errorf("influx test write to %s: %w", w.url, err)
	}
	w.logger.Debug("influx test write ok", ports.String("url", w.url))
	return nil
}

func (w *InfluxWriter) encodeBody(lines []string) ([]byte, error) {
	joined := strings.Join(lines, "\n")
	if !w.gzip {
		return []byte(joined), nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := io.WriteString(zw, joined); err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	return buf.Bytes(), nil
}
