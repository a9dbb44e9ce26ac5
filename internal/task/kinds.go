package task

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/collector"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/insight"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Task kinds served by the binary.
const (
	KindBuildProfile      = "build_profile"
	KindScoreProfile      = "score_profile"
	KindAnalyzeCompany    = "analyze_company"
	KindDiscoverCompanies = "discover_companies"
)

// Searcher finds candidate companies for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.PartialRecord, error)
}

// Deps are the collaborators the built-in handlers need. Store, Analyzer
// and Searcher are optional.
type Deps struct {
	Collector *collector.Collector
	Analyzer  *insight.Analyzer
	Searcher  Searcher
	Store     store.Store
}

// ProfileInput is the input of the profile, score and analysis kinds.
type ProfileInput struct {
	Name            string `json:"name"`
	Domain          string `json:"domain"`
	IncludeContacts bool   `json:"include_contacts"`
	UseCache        bool   `json:"use_cache"`
}

// ProfileOutput is a collected profile, with its store id when persisted.
type ProfileOutput struct {
	*collector.Result
	ProfileID string `json:"profile_id,omitempty"`
}

// ScoreOutput is the result of score_profile.
type ScoreOutput struct {
	Name      string          `json:"name"`
	Domain    string          `json:"domain"`
	Score     model.LeadScore `json:"score"`
	ProfileID string          `json:"profile_id,omitempty"`
}

// AnalysisOutput is the result of analyze_company.
type AnalysisOutput struct {
	Profile   model.CompanyProfile `json:"profile"`
	Score     model.LeadScore      `json:"score"`
	Insight   model.Insight        `json:"insight"`
	ProfileID string               `json:"profile_id,omitempty"`
	InsightID string               `json:"insight_id,omitempty"`
}

// DiscoverInput is the input of discover_companies.
type DiscoverInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Candidate is one company found by discovery.
type Candidate struct {
	Name        string `json:"name"`
	Domain      string `json:"domain,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// DiscoverOutput is the result of discover_companies.
type DiscoverOutput struct {
	Query     string      `json:"query"`
	Companies []Candidate `json:"companies"`
}

// RegisterDefaults installs the built-in handlers on r.
func RegisterDefaults(r *Registry, d Deps) {
	r.Register(KindBuildProfile, d.buildProfile)
	r.Register(KindScoreProfile, d.scoreProfile)
	r.Register(KindAnalyzeCompany, d.analyzeCompany)
	r.Register(KindDiscoverCompanies, d.discoverCompanies)
}

func (in ProfileInput) request(includeContacts bool, report ProgressFunc) collector.Request {
	return collector.Request{
		Name:            in.Name,
		Domain:          in.Domain,
		IncludeContacts: includeContacts,
		UseCache:        in.UseCache,
		Progress:        collector.ProgressFunc(report),
	}
}

func (d Deps) buildProfile(ctx context.Context, raw json.RawMessage, report ProgressFunc) (any, error) {
	in, err := Decode[ProfileInput](raw)
	if err != nil {
		return nil, err
	}
	res, err := d.Collector.CollectFullProfile(ctx, in.request(in.IncludeContacts, report))
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Result: res, ProfileID: d.persist(ctx, res)}, nil
}

func (d Deps) scoreProfile(ctx context.Context, raw json.RawMessage, report ProgressFunc) (any, error) {
	in, err := Decode[ProfileInput](raw)
	if err != nil {
		return nil, err
	}
	res, err := d.Collector.CollectFullProfile(ctx, in.request(false, report))
	if err != nil {
		return nil, err
	}
	return &ScoreOutput{Name: res.Profile.Name, Domain: res.Profile.Domain, Score: res.Score}, nil
}

func (d Deps) analyzeCompany(ctx context.Context, raw json.RawMessage, report ProgressFunc) (any, error) {
	in, err := Decode[ProfileInput](raw)
	if err != nil {
		return nil, err
	}
	if !d.Analyzer.Available() {
		return nil, insight.ErrNotConfigured
	}

	// Collection covers 0-80, analysis the rest.
	scaled := func(pct int) { report(pct * 80 / 100) }
	res, err := d.Collector.CollectFullProfile(ctx, in.request(true, scaled))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ins, err := d.Analyzer.Analyze(ctx, res)
	if err != nil {
		return nil, err
	}
	report(95)

	out := &AnalysisOutput{Profile: res.Profile, Score: res.Score, Insight: ins}
	if out.ProfileID = d.persist(ctx, res); out.ProfileID != "" {
		id, err := d.Store.SaveInsight(ctx, out.ProfileID, ins)
		if err != nil {
			zap.L().Warn("task: save insight failed", zap.String("profile_id", out.ProfileID), zap.Error(err))
		}
		out.InsightID = id
	}
	return out, nil
}

func (d Deps) discoverCompanies(ctx context.Context, raw json.RawMessage, report ProgressFunc) (any, error) {
	in, err := Decode[DiscoverInput](raw)
	if err != nil {
		return nil, err
	}
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, eris.New("task: discovery query is required")
	}
	if d.Searcher == nil {
		return nil, eris.Wrap(enrich.ErrSourceUnavailable, "task: discovery search")
	}
	report(10)

	records, err := d.Searcher.Search(ctx, in.Query, in.Limit)
	if err != nil {
		return nil, err
	}
	out := &DiscoverOutput{Query: in.Query, Companies: make([]Candidate, 0, len(records))}
	for _, r := range records {
		out.Companies = append(out.Companies, Candidate{
			Name:        r.Name,
			Domain:      r.Domain,
			Industry:    r.Industry,
			Location:    r.Location,
			Description: r.Description,
		})
	}
	report(100)
	return out, nil
}

// persist saves res when a store is configured and returns the profile id.
// Store failures are logged, never returned: the collected result is still
// useful to the caller.
func (d Deps) persist(ctx context.Context, res *collector.Result) string {
	if d.Store == nil {
		return ""
	}
	log := zap.L().With(zap.String("domain", res.Profile.Domain))
	id, err := d.Store.SaveProfile(ctx, res.Profile, res.Score)
	if err != nil {
		log.Warn("task: save profile failed", zap.Error(err))
		return ""
	}
	if len(res.Contacts) > 0 {
		if _, err := d.Store.SaveContacts(ctx, id, res.Contacts); err != nil {
			log.Warn("task: save contacts failed", zap.String("profile_id", id), zap.Error(err))
		}
	}
	return id
}
