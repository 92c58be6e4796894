package mni

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/juristec/caseintel/internal/resilience"
)

const defaultUserAgent = "caseintel/1.0"

// TransportConfig tunes the raw SOAP transport. Query and batch calls use
// separate response timeouts: a batch response carries base64 document
// bodies and can legitimately take much longer.
type TransportConfig struct {
	Endpoint       string
	Credentials    Credentials
	ConnectTimeout time.Duration // TCP + TLS handshake
	QueryTimeout   time.Duration // full round trip, metadata queries
	BatchTimeout   time.Duration // full round trip, document batches
	RequestsPerSec float64       // upstream politeness; <= 0 disables
	Burst          int
	UserAgent      string
}

func (c *TransportConfig) applyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 30 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 120 * time.Second
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// Transport posts SOAP envelopes to one MNI endpoint and maps HTTP status
// codes onto the error taxonomy. It carries no retry logic itself; callers
// wrap it in a resilience policy.
type Transport struct {
	cfg     TransportConfig
	query   *http.Client
	batch   *http.Client
	limiter *rate.Limiter
}

// NewTransport builds a transport for cfg.Endpoint.
func NewTransport(cfg TransportConfig) *Transport {
	cfg.applyDefaults()

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	base := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConnsPerHost: 8,
	}

	t := &Transport{
		cfg:   cfg,
		query: &http.Client{Transport: base, Timeout: cfg.QueryTimeout},
		batch: &http.Client{Transport: base, Timeout: cfg.BatchTimeout},
	}
	if cfg.RequestsPerSec > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst)
	}
	return t
}

// Call posts one envelope and returns the raw response body. batch selects
// the longer timeout. The response body is returned even on SOAP faults;
// fault detection lives in the parser, which sees the whole document.
func (t *Transport) Call(ctx context.Context, envelope []byte, batch bool) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "mni: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, eris.Wrap(err, "mni: build request")
	}
	req.Header.Set("Content-Type", `text/xml; charset=utf-8`)
	req.Header.Set("SOAPAction", `"consultarProcesso"`)
	req.Header.Set("User-Agent", t.cfg.UserAgent)

	client := t.query
	if batch {
		client = t.batch
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "mni: post"), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "mni: read response body"), 0)
	}

	zap.L().Debug("mni call",
		zap.Int("status", resp.StatusCode),
		zap.Bool("batch", batch),
		zap.Int("response_bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &resilience.AuthError{
			Msg: fmt.Sprintf("mni: credentials rejected (%d)", resp.StatusCode),
		}
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			fmt.Errorf("mni: upstream returned %d", resp.StatusCode), resp.StatusCode)
	default:
		return nil, eris.Errorf("mni: upstream returned %d", resp.StatusCode)
	}
}
