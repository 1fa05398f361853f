package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareFiltersBothNilMatches(t *testing.T) {
	matches, overall := CompareFilters(ExpectedFilters{}, AppliedFilters{})
	assert.True(t, overall)
	for field, ok := range matches {
		assert.True(t, ok, "field %s should match", field)
	}
}

func TestCompareFiltersSpeakerSubstringMatch(t *testing.T) {
	expected := ExpectedFilters{Speaker: strp("Elon Musk")}
	actual := AppliedFilters{Speaker: strp("elon musk")}
	matches, overall := CompareFilters(expected, actual)
	assert.True(t, matches["speaker"])
	assert.True(t, overall)
}

func TestCompareFiltersAppliedWhenNotExpectedFails(t *testing.T) {
	actual := AppliedFilters{Speaker: strp("Elon Musk")}
	matches, overall := CompareFilters(ExpectedFilters{}, actual)
	assert.False(t, matches["speaker"])
	assert.False(t, overall)
}

func TestCompareFiltersDateYearOnly(t *testing.T) {
	expected := ExpectedFilters{StartDate: strp("2024-01-01")}
	actual := AppliedFilters{StartDate: strp("2024-06-15")}
	matches, _ := CompareFilters(expected, actual)
	assert.True(t, matches["start_date"])
}

func TestCompareFiltersDateDifferentYearFails(t *testing.T) {
	expected := ExpectedFilters{StartDate: strp("2024-01-01")}
	actual := AppliedFilters{StartDate: strp("2023-06-15")}
	matches, overall := CompareFilters(expected, actual)
	assert.False(t, matches["start_date"])
	assert.False(t, overall)
}

func strp(s string) *string { return &s }

func TestComputeFilterMetrics(t *testing.T) {
	cases := []FilterCase{
		{
			Expected: ExpectedFilters{Speaker: strp("Elon Musk")},
			Applied:  AppliedFilters{Speaker: strp("Elon Musk")},
			Matches:  map[string]bool{"speaker": true, "start_date": true, "end_date": true, "source": true, "doc_type": true},
		},
		{
			Expected: ExpectedFilters{},
			Applied:  AppliedFilters{Speaker: strp("Sam Altman")},
			Matches:  map[string]bool{"speaker": false, "start_date": true, "end_date": true, "source": true, "doc_type": true},
		},
		{
			Expected: ExpectedFilters{Speaker: strp("Yann LeCun")},
			Applied:  AppliedFilters{},
			Matches:  map[string]bool{"speaker": false, "start_date": true, "end_date": true, "source": true, "doc_type": true},
		},
	}

	m := ComputeFilterMetrics(cases)
	speaker := m["speaker"]
	assert.Equal(t, 1, speaker.TruePositives)
	assert.Equal(t, 1, speaker.FalsePositives)
	assert.Equal(t, 1, speaker.FalseNegatives)
	assert.Equal(t, 0, speaker.TrueNegatives)
	assert.InDelta(t, 0.5, speaker.Precision, 1e-9)
	assert.InDelta(t, 0.5, speaker.Recall, 1e-9)
}

func TestComputeFilterMetricsSkipsErroredCases(t *testing.T) {
	cases := []FilterCase{
		{Expected: ExpectedFilters{Speaker: strp("X")}, Applied: AppliedFilters{Speaker: strp("X")}, Matches: map[string]bool{"speaker": true}, Errored: true},
	}
	m := ComputeFilterMetrics(cases)
	assert.Equal(t, 0, m["speaker"].TruePositives)
}

func TestComputeCategoryMetrics(t *testing.T) {
	results := []FilterCase{{}, {}, {Errored: true}}
	overall := []bool{true, false, false}
	m := ComputeCategoryMetrics("speaker_filter", results, overall)
	assert.Equal(t, 3, m.TotalCases)
	assert.Equal(t, 1, m.Passed)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, 1, m.Errors)
	assert.InDelta(t, 1.0/3.0, m.PassRate, 1e-9)
}
