// Package rules holds the versioned rule document driving the deterministic
// prefilter and the keyword company classifier. The pattern lists are data
// (rules.yaml, embedded at build time); only the matching predicates are code.
package rules

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// OtherLabel is the classifier label for titles matching no company set.
const OtherLabel = "Other"

// Variant is one named prefilter configuration.
type Variant struct {
	MinViews int `yaml:"min_views"`
}

// CompanySet is one company's keyword set. Declaration order across sets is
// the classifier's tie-break order.
type CompanySet struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Document is the parsed rule document.
type Document struct {
	Version           string             `yaml:"version"`
	RuleSets          map[string]Variant `yaml:"rule_sets"`
	ExcludePrefixes   []string           `yaml:"exclude_prefixes"`
	ListPrefixes      []string           `yaml:"list_prefixes"`
	MediaSuffixes     []string           `yaml:"media_suffixes"`
	CorporateSuffixes []string           `yaml:"corporate_suffixes"`
	Companies         []CompanySet       `yaml:"companies"`

	// lowered keyword sets, built once at load.
	loweredSets [][]string
}

// Load parses the embedded rule document.
func Load() (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(rulesYAML, &doc); err != nil {
		return nil, eris.Wrap(err, "rules: parse document")
	}
	if doc.Version == "" {
		return nil, eris.New("rules: document missing version")
	}
	if len(doc.Companies) == 0 {
		return nil, eris.New("rules: document declares no company sets")
	}

	doc.loweredSets = make([][]string, len(doc.Companies))
	for i, set := range doc.Companies {
		lowered := make([]string, len(set.Keywords))
		for j, kw := range set.Keywords {
			lowered[j] = strings.ToLower(kw)
		}
		doc.loweredSets[i] = lowered
	}
	return &doc, nil
}

// MinViews returns the traffic threshold for a named rule set.
func (d *Document) MinViews(ruleSet string) (int, error) {
	v, ok := d.RuleSets[ruleSet]
	if !ok {
		return 0, eris.Errorf("rules: unknown rule set %q", ruleSet)
	}
	return v.MinViews, nil
}

// MatchesKeyword reports whether the title contains at least one keyword from
// any company set (case-insensitive substring).
func (d *Document) MatchesKeyword(title string) bool {
	lower := strings.ToLower(title)
	for _, set := range d.loweredSets {
		for _, kw := range set {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// Classify maps a title to a company label: the first declared set with a
// matching keyword wins; no match yields OtherLabel. Total: every title maps
// to exactly one of the six labels.
func (d *Document) Classify(title string) string {
	lower := strings.ToLower(title)
	for i, set := range d.loweredSets {
		for _, kw := range set {
			if strings.Contains(lower, kw) {
				return d.Companies[i].Name
			}
		}
	}
	return OtherLabel
}
