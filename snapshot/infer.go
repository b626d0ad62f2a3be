package snapshot

import (
	"regexp"
	"strings"
)

// Field inference turns raw narrative text into snapshot fields with plain
// keyword heuristics. Inference must stay deterministic: ingestion keys its
// idempotency on content hashes, so identical text has to reproduce
// identical snapshots on every run.

// riskLexicon maps keyword stems to the canonical risk phrase reported in
// risks_perceived; match order follows the text, not the lexicon.
var riskLexicon = []struct {
	stem string
	risk string
}{
	{"aftershock", "aftershocks"},
	{"liquefaction", "liquefaction"},
	{"collapse", "structural collapse"},
	{"fire", "fire spread"},
	{"flood", "flooding"},
	{"tsunami", "tsunami"},
	{"landslide", "landslides"},
	{"looting", "looting"},
	{"contamina", "contamination"},
	{"disease", "disease outbreak"},
	{"casualt", "mass casualties"},
	{"shortage", "supply shortages"},
	{"outage", "utility outages"},
	{"exposure", "exposure to elements"},
	{"gas leak", "gas leaks"},
	{"damage", "secondary structural damage"},
}

var locationCues = []string{
	"harbor", "port", "coastal", "coastline", "urban", "downtown", "rural",
	"mountain", "river", "valley", "industrial", "residential",
}

var timeCues = []struct {
	cue    string
	window string
}{
	{"immediate", "immediate post-impact"},
	{"first 24", "first 24 hours"},
	{"first hours", "immediate post-impact"},
	{"day 2", "day 2"},
	{"day 3", "day 3"},
	{"second day", "day 2"},
	{"night", "overnight"},
	{"week", "first week"},
	{"aftermath", "early aftermath"},
}

var actionVerbs = regexp.MustCompile(
	`(?i)\b(evacuat|deploy|establish|order|mobiliz|restrict|shelter|cordon|dispatch|distribut|reroute|suspend)`)

// InferredFields holds the linguistic fields inferred from one chunk.
type InferredFields struct {
	TimeWindow           string
	Location             string
	Risks                []string
	ActionsConsidered    []string
	ActionTakenNarrative string
}

// InferFields fills the linguistic snapshot fields from a chunk of text.
func InferFields(text string) InferredFields {
	lower := strings.ToLower(text)
	fields := InferredFields{TimeWindow: "unspecified"}

	for _, tc := range timeCues {
		if strings.Contains(lower, tc.cue) {
			fields.TimeWindow = tc.window
			break
		}
	}

	for _, cue := range locationCues {
		if strings.Contains(lower, cue) {
			fields.Location = cue + " area"
			break
		}
	}

	fields.Risks = InferRisks(text)

	// The first sentence containing an action verb becomes the action
	// narrative; later ones are the alternatives considered.
	for _, sentence := range splitSentences(text) {
		if actionVerbs.MatchString(sentence) {
			if fields.ActionTakenNarrative == "" {
				fields.ActionTakenNarrative = sentence
			} else {
				fields.ActionsConsidered = append(fields.ActionsConsidered, sentence)
			}
		}
	}
	return fields
}

// InferRisks returns the risk phrases surfaced by the text, in first-seen
// text order. The synthesizer's tie-break depends on this ordering being
// stable.
func InferRisks(text string) []string {
	lower := strings.ToLower(text)

	type match struct {
		pos  int
		risk string
	}
	var found []match
	seen := make(map[string]bool)
	for _, entry := range riskLexicon {
		pos := strings.Index(lower, entry.stem)
		if pos >= 0 && !seen[entry.risk] {
			seen[entry.risk] = true
			found = append(found, match{pos: pos, risk: entry.risk})
		}
	}
	for i := 1; i < len(found); i++ {
		for j := i; j > 0 && found[j].pos < found[j-1].pos; j-- {
			found[j], found[j-1] = found[j-1], found[j]
		}
	}
	risks := make([]string, 0, len(found))
	for _, m := range found {
		risks = append(risks, m.risk)
	}
	return risks
}

var sentenceSplit = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

func splitSentences(text string) []string {
	parts := sentenceSplit.FindAllString(text, -1)
	if len(parts) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
