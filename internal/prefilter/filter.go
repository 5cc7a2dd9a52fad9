// Package prefilter shrinks the raw pageview set down to classifier
// candidates with an ordered, deterministic rule pipeline: traffic threshold,
// noise-pattern exclusion, then keyword inclusion. Stage order matters; a
// title removed by the noise stage never reaches the keyword stage.
package prefilter

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/model"
	"github.com/core-sentiment/pageviews-cli/internal/rules"
)

// ErrNoSurvivors marks a run whose rule stages removed every row. An empty
// candidate set is never forwarded to the classifier.
var ErrNoSurvivors = errors.New("no rows survived rule stages")

// yearQualified matches year-qualified titles like "Windows_(2021_film)" or
// "Apple_event_(2023)".
var yearQualified = regexp.MustCompile(`\((19|20)\d{2}`)

// Filter applies the rule stages for one configured threshold.
type Filter struct {
	doc      *rules.Document
	minViews int
}

// New creates a Filter. A non-positive minViews falls back to the rule set's
// declared threshold.
func New(doc *rules.Document, ruleSet string, minViews int) (*Filter, error) {
	if minViews <= 0 {
		v, err := doc.MinViews(ruleSet)
		if err != nil {
			return nil, eris.Wrap(err, "prefilter: resolve threshold")
		}
		minViews = v
	}
	return &Filter{doc: doc, minViews: minViews}, nil
}

// MinViews returns the active traffic threshold.
func (f *Filter) MinViews() int { return f.minViews }

// Apply runs the three rule stages over records and labels every survivor
// with its company. Survivor counts are logged after each stage. Zero final
// survivors is a hard failure.
func (f *Filter) Apply(records []model.RawRecord) ([]model.CandidateRecord, error) {
	zap.L().Info("prefilter: starting", zap.Int("input_rows", len(records)), zap.Int("min_views", f.minViews))

	// Stage 1: traffic threshold.
	stage1 := records[:0:0]
	for _, r := range records {
		if r.Views >= f.minViews {
			stage1 = append(stage1, r)
		}
	}
	zap.L().Info("prefilter: after traffic stage", zap.Int("rows", len(stage1)))

	// Stage 2: structural noise exclusion.
	stage2 := stage1[:0:0]
	for _, r := range stage1 {
		if !f.noisy(r.PageTitle) {
			stage2 = append(stage2, r)
		}
	}
	zap.L().Info("prefilter: after noise stage", zap.Int("rows", len(stage2)))

	// Stage 3: company keyword inclusion.
	var candidates []model.CandidateRecord
	for _, r := range stage2 {
		if f.doc.MatchesKeyword(r.PageTitle) {
			candidates = append(candidates, model.CandidateRecord{
				RawRecord: r,
				Company:   f.doc.Classify(r.PageTitle),
			})
		}
	}
	zap.L().Info("prefilter: after keyword stage", zap.Int("rows", len(candidates)))

	if len(candidates) == 0 {
		return nil, eris.Wrap(ErrNoSurvivors, "prefilter: empty candidate set")
	}
	return candidates, nil
}

// noisy reports whether a title matches any structural noise pattern.
// Matching is case-insensitive prefix/suffix/substring work, not NLP.
func (f *Filter) noisy(title string) bool {
	lower := strings.ToLower(title)

	for _, p := range f.doc.ExcludePrefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}
	for _, p := range f.doc.ListPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}
	for _, s := range f.doc.MediaSuffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	if isPersonName(title) || isYearTitle(title) || f.isCityRegion(title) {
		return true
	}
	return false
}

// isPersonName flags three-underscore-joined-token titles where every token
// is a capitalized alphabetic word ("John_Michael_Smith").
func isPersonName(title string) bool {
	tokens := strings.Split(title, "_")
	if len(tokens) != 3 {
		return false
	}
	for _, tok := range tokens {
		if !titleCaseWord(tok) {
			return false
		}
	}
	return true
}

func titleCaseWord(tok string) bool {
	if tok == "" {
		return false
	}
	for i, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if i > 0 && !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// isYearTitle flags bare-year titles ("2024") and year-qualified titles
// ("Apple_event_(2023)").
func isYearTitle(title string) bool {
	if len(title) == 4 {
		allDigits := true
		for _, r := range title {
			if r < '0' || r > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			return true
		}
	}
	return yearQualified.MatchString(title)
}

// isCityRegion flags geographic "City,_Region" titles ("Portland,_Oregon").
// Titles ending in a corporate designator ("Amazon.com,_Inc.") are company
// pages, not geography, and are exempt.
func (f *Filter) isCityRegion(title string) bool {
	idx := strings.Index(title, ",_")
	if idx <= 0 {
		return false
	}
	suffix := title[idx+2:]
	for _, corp := range f.doc.CorporateSuffixes {
		if strings.EqualFold(suffix, corp) {
			return false
		}
	}
	r := []rune(suffix)
	return len(r) > 0 && unicode.IsUpper(r[0])
}
