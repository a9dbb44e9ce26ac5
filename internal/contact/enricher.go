package contact

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/hunter"
)

// Enricher looks up missing emails for decision makers through Hunter's
// email finder and keeps only addresses that verify.
type Enricher struct {
	client   hunter.Client
	minScore int
}

// NewEnricher creates an Enricher. Finder results scoring below minScore
// are discarded.
func NewEnricher(client hunter.Client, minScore int) *Enricher {
	return &Enricher{client: client, minScore: minScore}
}

// FindMissing returns a copy of raw in which decision makers without an
// email get one from the finder, provided it scores at least minScore and
// verifies as deliverable. It runs before Deduplicate so a found address
// merges with any contact that already holds it. Each person is looked up
// once per call. Lookup failures are logged and skipped.
func (e *Enricher) FindMissing(ctx context.Context, raw []model.RawContact, domain string) []model.RawContact {
	out := make([]model.RawContact, len(raw))
	copy(out, raw)
	if e == nil || e.client == nil || domain == "" {
		return out
	}
	log := zap.L().With(zap.String("domain", domain))

	seen := make(map[string]*foundEmail)

	for i := range out {
		c := &out[i]
		if c.Email != "" || !IsDecisionMaker(c.Title) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		first, last := c.FirstName, c.LastName
		if first == "" && last == "" {
			first, last = SplitName(c.FullName)
		}
		if first == "" || last == "" {
			continue
		}

		key := Key(*c)
		res, done := seen[key]
		if !done {
			res = e.lookup(ctx, log, domain, first, last)
			seen[key] = res
		}
		if res == nil {
			continue
		}
		c.Email = res.email
		score := res.score
		c.Confidence = &score
	}
	return out
}

type foundEmail struct {
	email string
	score int
}

// lookup returns a verified address for the person, or nil.
func (e *Enricher) lookup(ctx context.Context, log *zap.Logger, domain, first, last string) *foundEmail {
	found, err := e.client.FindEmail(ctx, domain, first, last)
	if err != nil {
		if !errors.Is(err, hunter.ErrNotFound) {
			log.Warn("contact: email finder failed", zap.String("first", first), zap.String("last", last), zap.Error(err))
		}
		return nil
	}
	if found.Score < e.minScore {
		return nil
	}

	verified, err := e.client.VerifyEmail(ctx, found.Email)
	if err != nil {
		log.Warn("contact: email verification failed", zap.String("email", found.Email), zap.Error(err))
		return nil
	}
	if !verified.Deliverable() {
		return nil
	}
	return &foundEmail{email: found.Email, score: found.Score}
}
