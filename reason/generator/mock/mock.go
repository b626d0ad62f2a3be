// Package mock provides a deterministic generator for tests and MOCK_MODE.
// It phrases the evidence bundle without any model call, citing exactly the
// historical basis it was given.
package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/antigravity/decision-support/reason"
)

// Generator phrases evidence bundles deterministically.
type Generator struct{}

// New creates a mock generator.
func New() *Generator {
	return &Generator{}
}

// Generate returns phrasing derived purely from the bundle contents.
func (g *Generator) Generate(ctx context.Context, bundle *reason.EvidenceBundle) (*reason.Phrasing, error) {
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
		explanation = fmt.Sprintf("In similar cases (%s), responders perceived comparable risks. "+
			"Historical patterns suggest the actions listed above.", strings.Join(ids, ", "))
	}

	return &reason.Phrasing{
		TopRisks:           risks,
		RecommendedActions: actions,
		Explanation:        explanation,
	}, nil
}
