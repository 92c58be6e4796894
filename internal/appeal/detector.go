package appeal

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/juristec/caseintel/internal/model"
	"github.com/juristec/caseintel/internal/rules"
	"github.com/juristec/caseintel/internal/textutil"
)

// CaseFetcher is the slice of the case-document client the detector needs.
type CaseFetcher interface {
	FetchCase(ctx context.Context, caseNumber string) (*model.Case, error)
	FetchDocuments(ctx context.Context, caseNumber string, ids []string) (map[string]model.DocumentResult, error)
}

// Detector validates appeal candidates against an origin case.
type Detector struct {
	rules       *rules.Set
	fetcher     CaseFetcher
	maxParallel int
}

// NewDetector creates a detector. maxParallel bounds concurrent candidate
// validations; values < 1 mean 4.
func NewDetector(rs *rules.Set, fetcher CaseFetcher, maxParallel int) *Detector {
	if maxParallel < 1 {
		maxParallel = 4
	}
	return &Detector{rules: rs, fetcher: fetcher, maxParallel: maxParallel}
}

// Validate refetches each distinct candidate and accepts it when at least
// one pair of litigant names scores at or above the similarity threshold.
// Candidate validations run concurrently but results keep discovery order
// before ranking; every rejected candidate carries a machine-readable
// reason. Only systemic failures (a cancelled context) return an error.
func (d *Detector) Validate(ctx context.Context, candidates []model.AppealCandidate, origin *model.Case) ([]model.ValidatedAppeal, []model.RejectedCandidate, error) {
	distinct := dedupe(candidates)

	type slot struct {
		accepted *model.ValidatedAppeal
		rejected *model.RejectedCandidate
	}
	slots := make([]slot, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxParallel)
	for i, cand := range distinct {
		g.Go(func() error {
			if cand.Number == "" {
				slots[i].rejected = &model.RejectedCandidate{
					Candidate: cand,
					Reason:    model.RejectMalformedNumber,
				}
				return nil
			}
			v, rej := d.validateOne(gctx, cand, origin)
			slots[i] = slot{accepted: v, rejected: rej}
			// Per-candidate failures never cancel sibling validations.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if ctx.Err() != nil {
		return nil, nil, eris.Wrap(ctx.Err(), "appeal: validation cancelled")
	}

	var accepted []model.ValidatedAppeal
	var rejected []model.RejectedCandidate
	for _, s := range slots {
		if s.accepted != nil {
			accepted = append(accepted, *s.accepted)
		}
		if s.rejected != nil {
			rejected = append(rejected, *s.rejected)
		}
	}

	// Score descending; ties broken by the most recent matched document.
	// Discovery order was preserved above, so the sort is deterministic.
	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].Similarity != accepted[j].Similarity {
			return accepted[i].Similarity > accepted[j].Similarity
		}
		return accepted[i].NewestDocDate.After(accepted[j].NewestDocDate)
	})

	return accepted, rejected, nil
}

func (d *Detector) validateOne(ctx context.Context, cand model.AppealCandidate, origin *model.Case) (*model.ValidatedAppeal, *model.RejectedCandidate) {
	appealCase, err := d.fetcher.FetchCase(ctx, cand.Number)
	if err != nil {
		return nil, &model.RejectedCandidate{
			Candidate: cand,
			Reason:    model.RejectFetchFailed,
			Detail:    err.Error(),
		}
	}

	score, originName, appealName := bestPartyMatch(origin, appealCase)
	if score < d.rules.Appeal.SimilarityThreshold {
		return nil, &model.RejectedCandidate{
			Candidate: cand,
			Reason:    model.RejectNoPartyMatch,
		}
	}

	v := &model.ValidatedAppeal{
		Number:          cand.Number,
		Similarity:      score,
		MatchedParty:    appealName,
		OriginPartyName: originName,
	}
	for _, doc := range appealCase.Documents {
		if !rules.HasCode(d.rules.Appeal.DecisionTypeCodes, doc.TypeCode) {
			continue
		}
		v.MatchedDocIDs = append(v.MatchedDocIDs, doc.ID)
		if doc.Timestamp.After(v.NewestDocDate) {
			v.NewestDocDate = doc.Timestamp
		}
	}

	// Pull the decision documents themselves; failures here degrade the
	// audit trail, not the validation verdict.
	if len(v.MatchedDocIDs) > 0 {
		if _, err := d.fetcher.FetchDocuments(ctx, cand.Number, v.MatchedDocIDs); err != nil {
			zap.L().Warn("appeal: decision document fetch failed",
				zap.String("case", cand.Number),
				zap.Error(err),
			)
		}
	}

	return v, nil
}

// bestPartyMatch returns the highest name similarity across all pairs of
// litigants from the two cases, with the names that produced it. Appeal
// poles often invert relative to the origin case, so roles are not required
// to line up.
func bestPartyMatch(origin, appeal *model.Case) (best float64, originName, appealName string) {
	for _, op := range origin.Parties {
		for _, ap := range appeal.Parties {
			if s := textutil.TokenSetSimilarity(op.Name, ap.Name); s > best {
				best = s
				originName = op.Name
				appealName = ap.Name
			}
		}
	}
	return best, originName, appealName
}

// dedupe keeps the first occurrence of each candidate number, preserving
// discovery order. Malformed candidates (empty Number) are all kept — each
// needs its own rejection record.
func dedupe(candidates []model.AppealCandidate) []model.AppealCandidate {
	seen := make(map[string]struct{}, len(candidates))
	var out []model.AppealCandidate
	for _, c := range candidates {
		if c.Number != "" {
			if _, dup := seen[c.Number]; dup {
				continue
			}
			seen[c.Number] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}
