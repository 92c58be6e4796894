package mni

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/juristec/caseintel/internal/cnj"
	"github.com/juristec/caseintel/internal/model"
	"github.com/juristec/caseintel/internal/parser"
	"github.com/juristec/caseintel/internal/resilience"
)

const (
	defaultChunkSize   = 4
	defaultMaxParallel = 4
)

// Client is the high-level MNI surface: fetch one case, fetch document
// contents in chunked batches. Queries and batches run under separate
// retry policies but share one circuit breaker per endpoint, so a sick
// upstream is recognized no matter which call pattern hit it.
type Client struct {
	transport   *Transport
	parser      *parser.Parser
	queryPolicy *resilience.Policy
	batchPolicy *resilience.Policy
	chunkSize   int
	maxParallel int
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithChunkSize sets how many document ids ride in one batch request.
func WithChunkSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithMaxParallel bounds concurrent batch requests per FetchDocuments call.
func WithMaxParallel(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxParallel = n
		}
	}
}

// WithPolicies overrides the query and batch resilience policies.
func WithPolicies(query, batch *resilience.Policy) ClientOption {
	return func(c *Client) {
		c.queryPolicy = query
		c.batchPolicy = batch
	}
}

// NewClient wires a transport to the parser and the shared breaker registry.
func NewClient(t *Transport, p *parser.Parser, breakers *resilience.ServiceBreakers, opts ...ClientOption) *Client {
	c := &Client{
		transport:   t,
		parser:      p,
		queryPolicy: resilience.QueryPolicy(breakers, t.cfg.Endpoint),
		batchPolicy: resilience.BatchPolicy(breakers, t.cfg.Endpoint),
		chunkSize:   defaultChunkSize,
		maxParallel: defaultMaxParallel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCase retrieves and decodes one case. caseNumber may be punctuated or
// bare; anything that does not normalize to a valid CNJ number fails with a
// ValidationError before any network I/O.
func (c *Client) FetchCase(ctx context.Context, caseNumber string) (*model.Case, error) {
	num, err := cnj.Normalize(caseNumber)
	if err != nil {
		return nil, resilience.NewValidationError("invalid case number %q", caseNumber)
	}

	// Document metadata is required for the enforcement cascade and for
	// certificate discovery; contents still come only via FetchDocuments.
	envelope := queryEnvelope(c.transport.cfg.Credentials, num, nil)
	body, err := resilience.ExecutePolicy(ctx, c.queryPolicy, func(ctx context.Context) ([]byte, error) {
		return c.transport.Call(ctx, envelope, false)
	})
	if err != nil {
		return nil, err
	}
	return c.parser.ParseCase(body)
}

// FetchDocuments retrieves document contents by id in chunks. Every
// requested id gets exactly one entry in the result: content on success, an
// error on failure (a failed chunk fails only its own ids, and an id the
// upstream omits gets a NotFoundError). A cancelled call returns the
// cancellation instead of a partial map.
func (c *Client) FetchDocuments(ctx context.Context, caseNumber string, ids []string) (map[string]model.DocumentResult, error) {
	num, err := cnj.Normalize(caseNumber)
	if err != nil {
		return nil, resilience.NewValidationError("invalid case number %q", caseNumber)
	}
	if len(ids) == 0 {
		return map[string]model.DocumentResult{}, nil
	}

	results := make(map[string]model.DocumentResult, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxParallel)
	for _, chunk := range chunkIDs(ids, c.chunkSize) {
		g.Go(func() error {
			contents, err := c.fetchChunk(gctx, num, chunk)
			if gctx.Err() != nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				for _, id := range chunk {
					results[id] = model.DocumentResult{ID: id, Err: err}
				}
				zap.L().Warn("document batch chunk failed",
					zap.String("case", num),
					zap.Int("chunk_size", len(chunk)),
					zap.Error(err),
				)
				return nil
			}
			for _, id := range chunk {
				if dc, ok := contents[id]; ok {
					results[id] = model.DocumentResult{ID: id, MimeType: dc.MimeType, Content: dc.Content}
				} else {
					results[id] = model.DocumentResult{ID: id, Err: &resilience.NotFoundError{ID: id}}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "mni: document batch cancelled")
	}
	return results, nil
}

func (c *Client) fetchChunk(ctx context.Context, num string, ids []string) (map[string]parser.DocumentContent, error) {
	envelope := queryEnvelope(c.transport.cfg.Credentials, num, ids)
	body, err := resilience.ExecutePolicy(ctx, c.batchPolicy, func(ctx context.Context) ([]byte, error) {
		return c.transport.Call(ctx, envelope, true)
	})
	if err != nil {
		return nil, err
	}
	contents, err := c.parser.ParseDocumentContents(body)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]parser.DocumentContent, len(contents))
	for _, dc := range contents {
		byID[dc.ID] = dc
	}
	return byID, nil
}

func chunkIDs(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	return append(out, ids)
}
