package prefilter

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-sentiment/pageviews-cli/internal/model"
	"github.com/core-sentiment/pageviews-cli/internal/rules"
)

func newFilter(t *testing.T, ruleSet string, minViews int) *Filter {
	t.Helper()
	doc, err := rules.Load()
	require.NoError(t, err)
	f, err := New(doc, ruleSet, minViews)
	require.NoError(t, err)
	return f
}

func rec(title string, views int) model.RawRecord {
	return model.RawRecord{Domain: "en.wikipedia.org", PageTitle: title, Views: views}
}

func TestNewResolvesRuleSetThreshold(t *testing.T) {
	assert.Equal(t, 100, newFilter(t, "standard", 0).MinViews())
	assert.Equal(t, 1000, newFilter(t, "strict", 0).MinViews())
	assert.Equal(t, 250, newFilter(t, "standard", 250).MinViews())

	doc, err := rules.Load()
	require.NoError(t, err)
	_, err = New(doc, "bogus", 0)
	assert.Error(t, err)
}

func TestApplyStageOrder(t *testing.T) {
	f := newFilter(t, "standard", 100)

	candidates, err := f.Apply([]model.RawRecord{
		rec("Apple_Inc.", 500),
		rec("List_of_CEOs", 500),
		rec("Special:Search", 9999),
	})
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "Apple_Inc.", candidates[0].PageTitle)
	assert.Equal(t, "Apple", candidates[0].Company)
}

func TestApplyTrafficThreshold(t *testing.T) {
	f := newFilter(t, "standard", 100)

	candidates, err := f.Apply([]model.RawRecord{
		rec("iPhone", 100),
		rec("iPad", 99),
	})
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "iPhone", candidates[0].PageTitle)
}

func TestApplyNoiseExclusions(t *testing.T) {
	f := newFilter(t, "standard", 100)

	// Every title carries a company keyword, so only the noise stage can
	// remove it.
	noisy := []model.RawRecord{
		rec("Template:Apple_sidebar", 5000),
		rec("Category:Google_services", 5000),
		rec("List_of_Microsoft_products", 5000),
		rec("History_of_Apple", 5000),
		rec("Bing_Hong_Li", 5000),
		rec("Apple_TV+_(2019_series)", 5000),
		rec("Microsoft_(film)", 5000),
		rec("Redmond,_Washington_Microsoft", 5000),
	}
	survivor := rec("iPhone_17", 5000)

	candidates, err := f.Apply(append(noisy, survivor))
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "iPhone_17", candidates[0].PageTitle)
}

func TestApplyPersonNameHeuristic(t *testing.T) {
	assert.True(t, isPersonName("John_Michael_Smith"))
	assert.False(t, isPersonName("Amazon_Web_Services_EC2"))
	assert.False(t, isPersonName("iPhone_15_Pro"), "lowercase-led token is not a name")
	assert.False(t, isPersonName("Apple_Inc."), "punctuation disqualifies a name token")
}

func TestApplyYearTitles(t *testing.T) {
	assert.True(t, isYearTitle("2024"))
	assert.True(t, isYearTitle("Apple_event_(2023)"))
	assert.True(t, isYearTitle("Windows_(2021_film)"))
	assert.True(t, isYearTitle("1984"))
	assert.False(t, isYearTitle("Windows_11"))
	assert.False(t, isYearTitle("Office_365"))
}

func TestCityRegionExemptsCorporateSuffixes(t *testing.T) {
	f := newFilter(t, "standard", 100)

	assert.True(t, f.isCityRegion("Portland,_Oregon"))
	assert.False(t, f.isCityRegion("Amazon.com,_Inc."))
	assert.False(t, f.isCityRegion("NoComma"))
}

func TestApplyIdempotent(t *testing.T) {
	f := newFilter(t, "standard", 100)

	input := []model.RawRecord{
		rec("Apple_Inc.", 500),
		rec("Kindle", 300),
		rec("Quantum_computing", 900),
	}

	first, err := f.Apply(input)
	require.NoError(t, err)

	again := make([]model.RawRecord, len(first))
	for i, c := range first {
		again[i] = c.RawRecord
	}
	second, err := f.Apply(again)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestApplyNoSurvivors(t *testing.T) {
	f := newFilter(t, "standard", 100)

	_, err := f.Apply([]model.RawRecord{
		rec("Quantum_computing", 900),
		rec("Ford_Motor_Company", 800),
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoSurvivors))
}
