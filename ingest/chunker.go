package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// chunker splits raw case-study text into sentence windows with a small
// overlap, so each resulting snapshot stays inside the embedding gateway's
// input limit while neighboring chunks share context.
type chunker struct {
	sentencesPerChunk int
	overlapSentences  int
	maxChunkChars     int
	splitter          *regexp.Regexp
}

func newChunker(sentencesPerChunk, overlapSentences, maxChunkChars int) *chunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	if maxChunkChars <= 0 {
		maxChunkChars = 2000
	}
	return &chunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		maxChunkChars:     maxChunkChars,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// chunk returns the ordered text windows for raw text. A short narrative
// yields exactly one chunk.
func (c *chunker) chunk(raw string) []string {
	sentences := c.splitter.FindAllString(raw, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		text := strings.Join(sentences[i:end], " ")
		for _, piece := range splitLong(text, c.maxChunkChars) {
			chunks = append(chunks, piece)
		}
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks
}

// splitLong hard-splits a window that exceeds the character budget, cutting
// on word boundaries where possible and never inside a rune. Guards against
// pathological single sentences longer than the embedding input limit.
func splitLong(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}
	var pieces []string
	for len(text) > maxChars {
		cut := strings.LastIndex(text[:maxChars], " ")
		if cut <= 0 {
			cut = maxChars
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				// Budget smaller than one rune: take the whole rune.
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		pieces = append(pieces, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}
