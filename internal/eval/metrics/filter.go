package metrics

import "strings"

// ExpectedFilters is the filter set a filter-extraction eval case expects
// the agent to derive from a natural-language query, grounded on
// original_source/evals/tasks/tool_params/dataset.py's ExpectedFilters.
// A nil field means the filter should NOT be applied.
type ExpectedFilters struct {
	Speaker   *string
	Source    *string
	DocType   *string
	StartDate *string
	EndDate   *string
}

// AppliedFilters is what an agent actually extracted and passed to the
// retrieval tool for one query.
type AppliedFilters struct {
	Speaker   *string
	Source    *string
	DocType   *string
	StartDate *string
	EndDate   *string
}

func normalize(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(*v)), true
}

// CompareFilters matches actual filters against expected ones per field,
// mirroring original_source/evals/tasks/tool_params/runner.py's
// _compare_filters: speaker/source/doc_type use substring containment in
// either direction, dates compare only the year.
func CompareFilters(expected ExpectedFilters, actual AppliedFilters) (matches map[string]bool, overall bool) {
	matches = make(map[string]bool, 5)

	matches["speaker"] = compareContains(expected.Speaker, actual.Speaker)
	matches["source"] = compareContains(expected.Source, actual.Source)
	matches["doc_type"] = compareContains(expected.DocType, actual.DocType)
	matches["start_date"] = compareYear(expected.StartDate, actual.StartDate)
	matches["end_date"] = compareYear(expected.EndDate, actual.EndDate)

	overall = true
	for _, ok := range matches {
		if !ok {
			overall = false
			break
		}
	}
	return matches, overall
}

func compareContains(expected, actual *string) bool {
	expVal, expOK := normalize(expected)
	actVal, actOK := normalize(actual)
	switch {
	case !expOK && !actOK:
		return true
	case !expOK || !actOK:
		return false
	default:
		return strings.Contains(actVal, expVal) || strings.Contains(expVal, actVal)
	}
}

func compareYear(expected, actual *string) bool {
	expOK := expected != nil
	actOK := actual != nil
	switch {
	case !expOK && !actOK:
		return true
	case !expOK || !actOK:
		return false
	default:
		expYear := yearPrefix(*expected)
		actYear := yearPrefix(*actual)
		return expYear != "" && expYear == actYear
	}
}

func yearPrefix(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// FilterMetrics is the precision/recall/F1/accuracy breakdown for one
// filter field across an evaluation run.
type FilterMetrics struct {
	FilterName     string
	TruePositives  int
	TrueNegatives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	Accuracy       float64
	F1Score        float64
}

// FilterCase is one evaluated case's filter comparison, reduced to just
// what ComputeFilterMetrics needs.
type FilterCase struct {
	Expected     ExpectedFilters
	Applied      AppliedFilters
	Matches      map[string]bool
	Errored      bool
}

var filterFieldNames = []string{"speaker", "start_date", "end_date", "source", "doc_type"}

func fieldValue(f ExpectedFilters, name string) *string {
	switch name {
	case "speaker":
		return f.Speaker
	case "source":
		return f.Source
	case "doc_type":
		return f.DocType
	case "start_date":
		return f.StartDate
	case "end_date":
		return f.EndDate
	default:
		return nil
	}
}

func appliedValue(f AppliedFilters, name string) *string {
	switch name {
	case "speaker":
		return f.Speaker
	case "source":
		return f.Source
	case "doc_type":
		return f.DocType
	case "start_date":
		return f.StartDate
	case "end_date":
		return f.EndDate
	default:
		return nil
	}
}

// ComputeFilterMetrics computes the per-field confusion-matrix metrics
// across every non-errored case, mirroring _compute_filter_metrics.
func ComputeFilterMetrics(cases []FilterCase) map[string]FilterMetrics {
	out := make(map[string]FilterMetrics, len(filterFieldNames))
	for _, name := range filterFieldNames {
		m := FilterMetrics{FilterName: name}
		for _, c := range cases {
			if c.Errored {
				continue
			}
			expectedApplied := fieldValue(c.Expected, name) != nil
			actualApplied := appliedValue(c.Applied, name) != nil

			switch {
			case expectedApplied && actualApplied:
				if c.Matches[name] {
					m.TruePositives++
				} else {
					m.FalsePositives++
				}
			case !expectedApplied && !actualApplied:
				m.TrueNegatives++
			case expectedApplied && !actualApplied:
				m.FalseNegatives++
			default:
				m.FalsePositives++
			}
		}

		total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
		if total > 0 {
			m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
		}
		if tpfp := m.TruePositives + m.FalsePositives; tpfp > 0 {
			m.Precision = float64(m.TruePositives) / float64(tpfp)
		}
		if tpfn := m.TruePositives + m.FalseNegatives; tpfn > 0 {
			m.Recall = float64(m.TruePositives) / float64(tpfn)
		}
		if m.Precision+m.Recall > 0 {
			m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		out[name] = m
	}
	return out
}

// CategoryMetrics is the pass/fail breakdown for one eval-case category.
type CategoryMetrics struct {
	Category   string
	TotalCases int
	Passed     int
	Failed     int
	PassRate   float64
	Errors     int
}

// ComputeCategoryMetrics aggregates pass/fail/error counts for one
// category's cases, mirroring _compute_category_metrics.
func ComputeCategoryMetrics(category string, results []FilterCase, overallMatch []bool) CategoryMetrics {
	m := CategoryMetrics{Category: category, TotalCases: len(results)}
	for i, c := range results {
		switch {
		case c.Errored:
			m.Errors++
		case overallMatch[i]:
			m.Passed++
		default:
			m.Failed++
		}
	}
	if m.TotalCases > 0 {
		m.PassRate = float64(m.Passed) / float64(m.TotalCases)
	}
	return m
}
