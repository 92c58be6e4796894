// Package investigate orchestrates a full case investigation: retrieval,
// enforcement classification, origin resolution, deadline computation and
// interlocutory-appeal detection, producing one typed report.
package investigate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/juristec/caseintel/internal/appeal"
	"github.com/juristec/caseintel/internal/classifier"
	"github.com/juristec/caseintel/internal/cnj"
	"github.com/juristec/caseintel/internal/deadline"
	"github.com/juristec/caseintel/internal/model"
	"github.com/juristec/caseintel/internal/resilience"
	"github.com/juristec/caseintel/internal/rules"
	"github.com/juristec/caseintel/internal/store"
)

// Orchestrator wires the retrieval client to the intelligence heuristics.
// It is safe for concurrent use.
type Orchestrator struct {
	fetcher    appeal.CaseFetcher
	rules      *rules.Set
	calc       *deadline.Calculator
	detector   *appeal.Detector
	classifier classifier.Capability
	store      store.Store
	cacheTTL   time.Duration

	mu      sync.Mutex
	pending []store.AuditEntry
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithCacheTTL sets how long fetched cases stay servable from the store.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithMaxParallel bounds concurrent appeal-candidate validations.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		o.detector = appeal.NewDetector(o.rules, o.fetcher, n)
	}
}

// New builds an orchestrator. cls and st may be the Noop/Nop implementations.
func New(fetcher appeal.CaseFetcher, rs *rules.Set, cls classifier.Capability, st store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:    fetcher,
		rules:      rs,
		calc:       deadline.NewCalculator(rs),
		detector:   appeal.NewDetector(rs, fetcher, 0),
		classifier: cls,
		store:      st,
		cacheTTL:   24 * time.Hour,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Investigate runs the full pipeline for one case number (punctuated or
// bare). Only retrieval of the case itself is fatal; everything downstream
// degrades into the report.
func (o *Orchestrator) Investigate(ctx context.Context, rawNumber string) (*Report, error) {
	num, err := cnj.Normalize(rawNumber)
	if err != nil {
		return nil, resilience.NewValidationError("invalid case number %q", rawNumber)
	}

	began := time.Now()
	report := &Report{CaseNumber: num, GeneratedAt: began.UTC()}
	defer o.flushAudit(report)

	c, err := o.fetchCase(ctx, num)
	if err != nil {
		return nil, err
	}
	report.Case = c

	// The origin case carries the litigants an appeal must be validated
	// against; for a standalone enforcement the investigated case itself is
	// derived, so its origin is fetched when the docket names one.
	comparisonCase := c
	if c.IsStandaloneEnforcement && c.OriginCaseNumber != "" {
		origin, err := o.fetchCase(ctx, c.OriginCaseNumber)
		if err != nil {
			report.OriginFetchError = err.Error()
			zap.L().Warn("origin case fetch failed",
				zap.String("case", num),
				zap.String("origin", c.OriginCaseNumber),
				zap.Error(err),
			)
		} else {
			report.OriginCase = origin
			comparisonCase = origin
		}
	}

	candidates := o.buildCertidaoCandidates(ctx, c)
	for _, kind := range []model.DeadlineKind{model.DeadlineCitation, model.DeadlineEnforcementNotice} {
		report.Deadlines = append(report.Deadlines, o.resolveDeadline(ctx, kind, candidates))
	}

	appealCands := o.detector.ExtractFromCase(c)
	if report.OriginCase != nil {
		appealCands = append(appealCands, o.detector.ExtractFromCase(report.OriginCase)...)
	}
	accepted, rejected, err := o.detector.Validate(ctx, appealCands, comparisonCase)
	if err != nil {
		return nil, err
	}
	report.AcceptedAppeals = accepted
	report.RejectedAppeals = rejected

	report.ElapsedMS = time.Since(began).Milliseconds()
	return report, nil
}

// fetchCase serves from the store cache when possible and records the audit
// entry for upstream hits.
func (o *Orchestrator) fetchCase(ctx context.Context, num string) (*model.Case, error) {
	if cached, err := o.store.GetCachedCase(ctx, num); err != nil {
		zap.L().Warn("case cache read failed", zap.String("case", num), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	start := time.Now()
	c, err := o.fetcher.FetchCase(ctx, num)
	size := 0
	if c != nil {
		size = len(c.RawXML)
	}
	o.audit(num, "fetch-case", start, err, size)
	if err != nil {
		return nil, err
	}

	if err := o.store.SetCachedCase(ctx, c, o.cacheTTL); err != nil {
		zap.L().Warn("case cache write failed", zap.String("case", num), zap.Error(err))
	}
	return c, nil
}

// resolveDeadline runs the deterministic selection and, when it ends
// ambiguous, asks the classifier to break the tie. Classifier failures leave
// the ambiguity in the report.
func (o *Orchestrator) resolveDeadline(ctx context.Context, kind model.DeadlineKind, candidates []model.CertidaoCandidate) DeadlineFinding {
	sel := o.calc.Select(kind, candidates)
	finding := DeadlineFinding{Kind: kind, Deadline: sel.Deadline, Ambiguous: sel.Ambiguous}
	if sel.Resolved() || len(sel.Ambiguous) == 0 {
		return finding
	}

	labels := make([]string, len(sel.Ambiguous))
	var text strings.Builder
	for i, cand := range sel.Ambiguous {
		labels[i] = cand.DocumentID
		fmt.Fprintf(&text, "[%s] %s\n\n", cand.DocumentID, cand.Text)
	}

	res, err := o.classifier.Classify(ctx, text.String(), labels)
	if err != nil {
		if !eris.Is(err, classifier.ErrUnavailable) {
			zap.L().Warn("deadline disambiguation failed",
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
		return finding
	}

	for _, cand := range sel.Ambiguous {
		if cand.DocumentID != res.Label {
			continue
		}
		if picked := o.calc.Select(kind, []model.CertidaoCandidate{cand}); picked.Resolved() {
			zap.L().Info("deadline disambiguated by classifier",
				zap.String("kind", string(kind)),
				zap.String("document", cand.DocumentID),
				zap.Float64("confidence", res.Confidence),
			)
			return DeadlineFinding{Kind: kind, Deadline: picked.Deadline, ClassifierUsed: true}
		}
	}
	return finding
}

func (o *Orchestrator) audit(caseNumber, operation string, start time.Time, err error, rawSize int) {
	entry := store.AuditEntry{
		CaseNumber: caseNumber,
		Operation:  operation,
		Outcome:    store.OutcomeOK,
		DurationMS: time.Since(start).Milliseconds(),
		RawSize:    rawSize,
	}
	if err != nil {
		entry.Outcome = store.OutcomeError
		entry.Detail = err.Error()
	}
	o.mu.Lock()
	o.pending = append(o.pending, entry)
	o.mu.Unlock()
}

// flushAudit persists whatever was recorded during this investigation.
// Persistence is best-effort and uses its own context so a cancelled
// investigation still leaves a trail.
func (o *Orchestrator) flushAudit(report *Report) {
	o.mu.Lock()
	entries := o.pending
	o.pending = nil
	o.mu.Unlock()
	if len(entries) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.RecordAuditBatch(ctx, entries); err != nil {
		zap.L().Warn("audit flush failed",
			zap.String("case", report.CaseNumber),
			zap.Int("entries", len(entries)),
			zap.Error(err),
		)
	}
}
