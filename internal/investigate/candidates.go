package investigate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juristec/caseintel/internal/model"
	"github.com/juristec/caseintel/internal/textutil"
)

// movementPairingWindow bounds how far apart a certificate document and the
// movement that filed it may be before pairing is refused.
const movementPairingWindow = 48 * time.Hour

// buildCertidaoCandidates locates the certificate documents on the docket,
// pulls their contents, and pairs each with the closest movement so the
// calculator can corroborate text against the docket.
func (o *Orchestrator) buildCertidaoCandidates(ctx context.Context, c *model.Case) []model.CertidaoCandidate {
	var ids []string
	for _, d := range c.Documents {
		if textutil.ContainsAnyFold(d.Description, o.rules.Certidao.DocumentKeywords) {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	contents, err := o.fetcher.FetchDocuments(ctx, c.Number, ids)
	size := 0
	for _, res := range contents {
		size += len(res.Content)
	}
	o.audit(c.Number, "fetch-documents", start, err, size)
	if err != nil {
		zap.L().Warn("certificate document fetch failed",
			zap.String("case", c.Number),
			zap.Error(err),
		)
		contents = nil
	}

	var out []model.CertidaoCandidate
	for _, d := range c.Documents {
		if !textutil.ContainsAnyFold(d.Description, o.rules.Certidao.DocumentKeywords) {
			continue
		}
		cand := model.CertidaoCandidate{
			DocumentID: d.ID,
			Channel:    o.channelOf(d),
			Timestamp:  d.Timestamp,
			// The description is still scanned when the content fetch failed.
			Text: d.Description,
		}
		if res, ok := contents[d.ID]; ok && !res.Failed() {
			cand.Text = d.Description + "\n" + string(res.Content)
		}
		if mv, ok := closestMovement(c.Movements, d.Timestamp); ok {
			cand.MovementComplement = mv.Complement
			cand.MovementDate = mv.Timestamp
		}
		out = append(out, cand)
	}
	return out
}

func (o *Orchestrator) channelOf(d model.DocumentMetadata) model.CertidaoChannel {
	if textutil.ContainsAnyFold(d.Description, o.rules.Certidao.SystemChannelKeywords) {
		return model.ChannelSystem
	}
	return model.ChannelClerk
}

// closestMovement finds the movement nearest in time to ts, within the
// pairing window.
func closestMovement(movements []model.Movement, ts time.Time) (model.Movement, bool) {
	var best model.Movement
	bestDelta := movementPairingWindow + 1
	for _, mv := range movements {
		delta := mv.Timestamp.Sub(ts)
		if delta < 0 {
			delta = -delta
		}
		if delta <= movementPairingWindow && delta < bestDelta {
			best = mv
			bestDelta = delta
		}
	}
	return best, bestDelta <= movementPairingWindow
}
