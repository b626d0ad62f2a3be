// Package reason implements the reasoning synthesizer: it turns the current
// narrative plus retrieved evidence into ranked risks, ranked actions, an
// explanation, and a historical-basis citation list. Phrasing is delegated
// to a language-generation gateway; everything the gateway may cite is
// constrained to evidence that was actually retrieved above threshold.
package reason

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antigravity/decision-support/snapshot"
)

// Candidate is a pooled risk or action with its aggregate evidence weight.
type Candidate struct {
	// Text is the candidate phrasing as first seen.
	Text string `json:"text"`

	// Weight is the sum of similarity scores of the cases that surfaced
	// the candidate, plus the narrative weight when the current narrative
	// surfaced it.
	Weight float64 `json:"weight"`
}

// EvidenceBundle is everything the language-generation gateway receives. It
// contains only eligible evidence, so the gateway cannot cite anything that
// was not retrieved above threshold.
type EvidenceBundle struct {
	Narrative string                          `json:"narrative"`
	Risks     []Candidate                     `json:"risks"`
	Actions   []Candidate                     `json:"actions"`
	Basis     []snapshot.HistoricalBasisEntry `json:"basis"`
}

// Phrasing is the gateway's structured output.
type Phrasing struct {
	TopRisks           []string `json:"top_risks"`
	RecommendedActions []string `json:"recommended_actions"`
	Explanation        string   `json:"explanation"`
}

// Generator is the Language-Generation Gateway capability. Failures degrade
// to deterministic phrasing, never to a failed request.
type Generator interface {
	Generate(ctx context.Context, bundle *EvidenceBundle) (*Phrasing, error)
}

// Config tunes the synthesizer.
type Config struct {
	// MinSimilarity is τ: the minimum score for evidence to back citations
	// or influence ranking. Default: 0.5.
	MinSimilarity float64

	// MaxBasis caps the historical_basis list. Default: 5.
	MaxBasis int

	// MaxList caps top_risks and recommended_actions. Default: 5.
	MaxList int

	// NarrativeWeight is the fixed weight candidates earn for appearing in
	// the current narrative itself. Zero means the default; set negative
	// to disable narrative-intrinsic candidates. Default: 0.3.
	NarrativeWeight float64

	// ExcerptMaxChars bounds each basis excerpt. Default: 240.
	ExcerptMaxChars int
}

func (c *Config) applyDefaults() {
	if c.MinSimilarity == 0 {
		c.MinSimilarity = 0.5
	}
	if c.MaxBasis <= 0 {
		c.MaxBasis = 5
	}
	if c.MaxList <= 0 {
		c.MaxList = 5
	}
	if c.NarrativeWeight == 0 {
		c.NarrativeWeight = 0.3
	}
	if c.ExcerptMaxChars <= 0 {
		c.ExcerptMaxChars = 240
	}
}

// Synthesizer combines narrative and evidence into a RecommendationSet.
type Synthesizer struct {
	gen Generator
	cfg Config
}

// New creates a synthesizer. gen may be nil, in which case phrasing is
// always the deterministic fallback.
func New(gen Generator, cfg Config) *Synthesizer {
	cfg.applyDefaults()
	return &Synthesizer{gen: gen, cfg: cfg}
}

// Synthesize builds a RecommendationSet from the narrative and this call's
// retrieval results. It never fails: missing evidence and gateway errors
// both degrade to narrative-only or deterministic output.
func (s *Synthesizer) Synthesize(ctx context.Context, narrative string, results []snapshot.RetrievalResult) *snapshot.RecommendationSet {
	eligible := make([]snapshot.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.SimilarityScore >= s.cfg.MinSimilarity {
			eligible = append(eligible, r)
		}
	}
	log.Printf("[REASON] evidence: retrieved=%d eligible=%d tau=%.2f", len(results), len(eligible), s.cfg.MinSimilarity)

	risks, actions := s.poolCandidates(narrative, eligible)
	basis := s.buildBasis(eligible)

	bundle := &EvidenceBundle{
		Narrative: narrative,
		Risks:     risks,
		Actions:   actions,
		Basis:     basis,
	}

	phrasing := s.generate(ctx, bundle)
	if phrasing == nil {
		phrasing = s.fallbackPhrasing(bundle)
	}

	// The explanation may only reference cases present in the basis.
	// A phrasing that cites any other retrieved case is discarded for the
	// deterministic explanation.
	if citesUncited(phrasing.Explanation, basis, results) {
		log.Printf("[REASON] explanation cited evidence outside historical basis, using fallback")
		phrasing.Explanation = s.fallbackPhrasing(bundle).Explanation
	}

	return &snapshot.RecommendationSet{
		TopRisks:           capList(phrasing.TopRisks, s.cfg.MaxList),
		RecommendedActions: capList(phrasing.RecommendedActions, s.cfg.MaxList),
		Explanation:        phrasing.Explanation,
		HistoricalBasis:    basis,
	}
}

// NarrativeOnly returns the zero-evidence RecommendationSet for a
// narrative. The façade uses it when retrieval succeeded but synthesis ran
// out of time.
func (s *Synthesizer) NarrativeOnly(ctx context.Context, narrative string) *snapshot.RecommendationSet {
	return s.Synthesize(ctx, narrative, nil)
}

// generate calls the gateway in a goroutine so an expired deadline abandons
// the call instead of awaiting it; a late result is discarded.
func (s *Synthesizer) generate(ctx context.Context, bundle *EvidenceBundle) *Phrasing {
	if s.gen == nil {
		return nil
	}

	type outcome struct {
		phrasing *Phrasing
		err      error
	}
	ch := make(chan outcome, 1)
	go func() {
		p, err := s.gen.Generate(ctx, bundle)
		ch <- outcome{phrasing: p, err: err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("[REASON] generation abandoned: %v", ctx.Err())
		return nil
	case out := <-ch:
		if out.err != nil {
			log.Printf("[REASON] generation failed, falling back: %v", out.err)
			return nil
		}
		if out.phrasing == nil || (len(out.phrasing.TopRisks) == 0 && len(out.phrasing.RecommendedActions) == 0 && out.phrasing.Explanation == "") {
			return nil
		}
		return out.phrasing
	}
}

// poolCandidates aggregates risks and actions from eligible evidence and
// the narrative. Each candidate's weight is the sum of similarity scores of
// the cases that surfaced it; ranking is by descending weight with ties
// kept in first-seen order.
func (s *Synthesizer) poolCandidates(narrative string, eligible []snapshot.RetrievalResult) (risks, actions []Candidate) {
	riskPool := newPool()
	actionPool := newPool()

	for _, res := range eligible {
		for _, risk := range res.Snapshot.RisksPerceived {
			riskPool.add(risk, res.SimilarityScore)
		}
		if res.Snapshot.ActionTakenNarrative != "" {
			actionPool.add(res.Snapshot.ActionTakenNarrative, res.SimilarityScore)
		}
		for _, act := range res.Snapshot.ActionsConsidered {
			actionPool.add(act, res.SimilarityScore)
		}
	}

	if s.cfg.NarrativeWeight > 0 {
		for _, risk := range snapshot.InferRisks(narrative) {
			riskPool.add(risk, s.cfg.NarrativeWeight)
		}
	}

	return riskPool.ranked(), actionPool.ranked()
}

func (s *Synthesizer) buildBasis(eligible []snapshot.RetrievalResult) []snapshot.HistoricalBasisEntry {
	basis := make([]snapshot.HistoricalBasisEntry, 0, len(eligible))
	for _, res := range eligible {
		if len(basis) == s.cfg.MaxBasis {
			break
		}
		basis = append(basis, snapshot.HistoricalBasisEntry{
			CaseStudyID:        res.CaseStudyID,
			InferredTimeWindow: res.Snapshot.InferredTimeWindow,
			Excerpt:            truncate(res.Snapshot.DecisionContext, s.cfg.ExcerptMaxChars),
			SimilarityScore:    res.SimilarityScore,
		})
	}
	return basis
}

// fallbackPhrasing produces deterministic output straight from the ranked
// candidates, used when no gateway is configured or its call failed.
func (s *Synthesizer) fallbackPhrasing(bundle *EvidenceBundle) *Phrasing {
	risks := make([]string, 0, len(bundle.Risks))
	for _, c := range bundle.Risks {
		risks = append(risks, c.Text)
	}
	actions := make([]string, 0, len(bundle.Actions))
	for _, c := range bundle.Actions {
		actions = append(actions, c.Text)
	}

	var explanation string
	if len(bundle.Basis) == 0 {
		explanation = "No sufficiently similar historical cases were available; " +
			"this assessment is based on the current narrative only."
	} else {
		ids := make([]string, len(bundle.Basis))
		for i, b := range bundle.Basis {
			ids[i] = b.CaseStudyID
		}
		explanation = fmt.Sprintf(
			"In %d similar historical cases (%s), responders perceived comparable risk patterns. "+
				"Historical patterns suggest the ranked actions above; similarity of past conditions "+
				"does not guarantee the same outcome here.",
			len(ids), strings.Join(ids, ", "))
	}

	return &Phrasing{TopRisks: risks, RecommendedActions: actions, Explanation: explanation}
}

// citesUncited reports whether the explanation mentions a retrieved case
// that is absent from the historical basis.
func citesUncited(explanation string, basis []snapshot.HistoricalBasisEntry, retrieved []snapshot.RetrievalResult) bool {
	cited := make(map[string]bool, len(basis))
	for _, b := range basis {
		cited[b.CaseStudyID] = true
	}
	for _, r := range retrieved {
		if !cited[r.CaseStudyID] && strings.Contains(explanation, r.CaseStudyID) {
			return true
		}
	}
	return false
}

// pool accumulates weighted candidates preserving first-seen order. Keys
// are case-insensitive; the first-seen casing is reported.
type pool struct {
	order   []string
	weights map[string]float64
	display map[string]string
}

func newPool() *pool {
	return &pool{weights: make(map[string]float64), display: make(map[string]string)}
}

func (p *pool) add(text string, weight float64) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	key := strings.ToLower(text)
	if _, ok := p.weights[key]; !ok {
		p.order = append(p.order, key)
		p.display[key] = text
	}
	p.weights[key] += weight
}

func (p *pool) ranked() []Candidate {
	out := make([]Candidate, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, Candidate{Text: p.display[key], Weight: p.weights[key]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

func capList(list []string, max int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > max {
		return list[:max]
	}
	return list
}

// truncate shortens s to at most maxLen bytes, cutting on a rune boundary
// so excerpts stay valid UTF-8.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
