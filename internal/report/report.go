// Package report aggregates per-session form quality into a final report.
package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary lines.
const (
	SummaryGreat = "Great workout!"
	SummaryWatch = "Watch your form."
)

// Report is the end-of-session result sent to the client.
type Report struct {
	Score       int      `json:"score"`
	Mistakes    []string `json:"mistakes"`
	Summary     string   `json:"summary"`
	TotalFrames int      `json:"totalFrames"`
	GoodFrames  int      `json:"goodFrames"`
}

// Aggregator collects frame counts, form scores and mistakes for one session.
// The zero value is ready to use.
type Aggregator struct {
	TotalFrames int
	GoodFrames  int

	scores   []float64
	mistakes map[string]struct{}
}

// AddFrame counts one processed frame.
func (a *Aggregator) AddFrame() {
	a.TotalFrames++
}

// AddScore records a form score, clamped to [0, 1].
func (a *Aggregator) AddScore(score float64) {
	if math.IsNaN(score) {
		return
	}
	a.scores = append(a.scores, math.Max(0, math.Min(1, score)))
}

// AddGoodFrame records a classified frame without form errors.
func (a *Aggregator) AddGoodFrame() {
	a.GoodFrames++
	a.AddScore(1)
}

// AddMistake records a mistake name. Duplicates are kept once.
func (a *Aggregator) AddMistake(name string) {
	if name == "" {
		return
	}
	if a.mistakes == nil {
		a.mistakes = make(map[string]struct{})
	}
	a.mistakes[name] = struct{}{}
}

// Scores returns a copy of the recorded form scores.
func (a *Aggregator) Scores() []float64 {
	out := make([]float64, len(a.scores))
	copy(out, a.scores)
	return out
}

// Reset clears everything.
func (a *Aggregator) Reset() {
	a.TotalFrames = 0
	a.GoodFrames = 0
	a.scores = nil
	a.mistakes = nil
}

// Build computes the report. With no scores recorded the session scores 100.
func (a *Aggregator) Build() Report {
	score := 100
	if len(a.scores) > 0 {
		score = int(math.Round(stat.Mean(a.scores, nil) * 100))
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	mistakes := make([]string, 0, len(a.mistakes))
	for m := range a.mistakes {
		mistakes = append(mistakes, m)
	}
	sort.Strings(mistakes)

	summary := SummaryWatch
	if score > 80 {
		summary = SummaryGreat
	}

	return Report{
		Score:       score,
		Mistakes:    mistakes,
		Summary:     summary,
		TotalFrames: a.TotalFrames,
		GoodFrames:  a.GoodFrames,
	}
}
