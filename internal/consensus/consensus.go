// Package consensus converts noisy per-frame OCR readings into at most one
// finalized plate per vehicle track. A single OCR pass can misread a
// character; requiring the same normalized string to recur is a cheap,
// order-insensitive majority vote that tolerates one bad read without edit
// distance clustering.
package consensus

import (
	"strings"
	"unicode"

	"github.com/ripas/ripas-go/internal/types"
)

// votesToFinalize is how many times the same cleaned string must be seen for
// one track before its plate is accepted as authoritative.
const votesToFinalize = 2

// Engine holds the per-track observation history and the finalized set for a
// single pipeline run. It is not safe for concurrent use; each pipeline
// invocation constructs its own Engine with empty state.
type Engine struct {
	minLength     int
	minConfidence float64
	primeZoneArea int

	history   map[int][]string // track id -> accepted cleaned texts, append order
	finalized map[int]string   // track id -> emitted plate
}

// New returns an engine with empty history.
//
// minConfidence is exclusive: a candidate must exceed it to be accepted.
// primeZoneArea is the minimum detection box area worth scanning at all.
func New(minLength int, minConfidence float64, primeZoneArea int) *Engine {
	return &Engine{
		minLength:     minLength,
		minConfidence: minConfidence,
		primeZoneArea: primeZoneArea,
		history:       make(map[int][]string),
		finalized:     make(map[int]string),
	}
}

// CleanText normalizes a raw OCR reading to uppercase alphanumerics.
func CleanText(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// ShouldScan reports whether a track's detection is worth sending to the
// recognizer: not yet finalized and inside the prime zone (close enough to
// the camera that its box area exceeds the threshold).
func (e *Engine) ShouldScan(trackID int, box types.Box) bool {
	if _, done := e.finalized[trackID]; done {
		return false
	}
	return box.Area() > e.primeZoneArea
}

// Observe feeds one candidate reading for a track. Candidates for finalized
// tracks, cleaned texts shorter than the minimum length, and confidences at
// or below the threshold are dropped without touching the history. Returns
// whether the candidate was accepted.
func (e *Engine) Observe(trackID int, c types.Candidate) bool {
	if _, done := e.finalized[trackID]; done {
		return false
	}
	clean := CleanText(c.Text)
	if len(clean) < e.minLength || c.Confidence <= e.minConfidence {
		return false
	}
	e.history[trackID] = append(e.history[trackID], clean)
	return true
}

// TryFinalize checks whether any cleaned text has reached the vote threshold
// for this track. The history is walked in append order with a running tally
// so the earliest string to cross the threshold wins ties deterministically.
// On success the track enters the finalized set permanently and its history
// is released. The absent result is the normal "not yet confident" outcome.
func (e *Engine) TryFinalize(trackID int) (string, bool) {
	if plate, done := e.finalized[trackID]; done {
		return plate, false
	}

	counts := make(map[string]int)
	for _, text := range e.history[trackID] {
		counts[text]++
		if counts[text] >= votesToFinalize {
			e.finalized[trackID] = text
			delete(e.history, trackID)
			return text, true
		}
	}
	return "", false
}

// Finalized reports whether a track has already emitted its plate.
func (e *Engine) Finalized(trackID int) bool {
	_, done := e.finalized[trackID]
	return done
}

// Observations returns how many accepted readings a track has accumulated.
func (e *Engine) Observations(trackID int) int {
	return len(e.history[trackID])
}
