package eval

import "github.com/dwarkesh-labs/transcript-rag/internal/eval/metrics"

// FilterCase is a single filter-extraction test: a natural-language
// query paired with the filters an agent should derive from it.
// Grounded on original_source/src/evals/dataset.py's EvalCase /
// EVAL_CASES.
type FilterCase struct {
	ID          string
	Query       string
	Expected    metrics.ExpectedFilters
	Description string
	Category    string
}

func strp(s string) *string { return &s }

// DefaultFilterCases is the curated filter-extraction dataset, ported
// case-for-case from EVAL_CASES.
var DefaultFilterCases = []FilterCase{
	{ID: "speaker_001", Query: "What has Elon Musk said about artificial intelligence?", Expected: metrics.ExpectedFilters{Speaker: strp("Elon Musk")}, Description: "Should extract speaker name from 'has X said' pattern", Category: "speaker_filter"},
	{ID: "speaker_002", Query: "What are John Carmack's views on AGI timelines?", Expected: metrics.ExpectedFilters{Speaker: strp("John Carmack")}, Description: "Should extract speaker name from possessive pattern", Category: "speaker_filter"},
	{ID: "speaker_003", Query: "Tell me about Yann LeCun's opinions on large language models", Expected: metrics.ExpectedFilters{Speaker: strp("Yann LeCun")}, Description: "Should extract speaker name from possessive with 'opinions'", Category: "speaker_filter"},
	{ID: "speaker_004", Query: "According to Sam Altman, when will AGI arrive?", Expected: metrics.ExpectedFilters{Speaker: strp("Sam Altman")}, Description: "Should extract speaker from 'according to X' pattern", Category: "speaker_filter"},
	{ID: "speaker_005", Query: "What did Demis Hassabis mention about AlphaFold?", Expected: metrics.ExpectedFilters{Speaker: strp("Demis Hassabis")}, Description: "Should extract speaker from 'did X mention' pattern", Category: "speaker_filter"},
	{ID: "speaker_006", Query: "I want to hear what Patrick Collison thinks about progress studies", Expected: metrics.ExpectedFilters{Speaker: strp("Patrick Collison")}, Description: "Should extract speaker from 'what X thinks' pattern", Category: "speaker_filter"},
	{ID: "speaker_007", Query: "Show me Tyler Cowen's discussion about economic growth", Expected: metrics.ExpectedFilters{Speaker: strp("Tyler Cowen")}, Description: "Should extract speaker from possessive with 'discussion'", Category: "speaker_filter"},
	{ID: "speaker_008", Query: "What has the host Dwarkesh Patel asked about consciousness?", Expected: metrics.ExpectedFilters{Speaker: strp("Dwarkesh Patel")}, Description: "Should extract host name when explicitly mentioned", Category: "speaker_filter"},

	{ID: "no_speaker_001", Query: "What are the main arguments for AGI timelines?", Expected: metrics.ExpectedFilters{}, Description: "No speaker mentioned - should NOT apply speaker filter", Category: "no_speaker_filter"},
	{ID: "no_speaker_002", Query: "Explain the concept of scaling laws in AI", Expected: metrics.ExpectedFilters{}, Description: "Technical question with no speaker reference", Category: "no_speaker_filter"},
	{ID: "no_speaker_003", Query: "What topics have been discussed about nuclear energy?", Expected: metrics.ExpectedFilters{}, Description: "Topic query without speaker attribution", Category: "no_speaker_filter"},

	{ID: "date_001", Query: "What has been said about AI safety in 2024?", Expected: metrics.ExpectedFilters{StartDate: strp("2024-01-01"), EndDate: strp("2024-12-31")}, Description: "Should extract year as date range", Category: "date_filter"},
	{ID: "date_002", Query: "What were the discussions about GPT-4 after March 2023?", Expected: metrics.ExpectedFilters{StartDate: strp("2023-03-01")}, Description: "Should extract 'after' as start_date", Category: "date_filter"},
	{ID: "date_003", Query: "Show me conversations from before 2023 about transformers", Expected: metrics.ExpectedFilters{EndDate: strp("2022-12-31")}, Description: "Should extract 'before year' as end_date", Category: "date_filter"},
	{ID: "date_004", Query: "What did guests say about crypto between 2021 and 2022?", Expected: metrics.ExpectedFilters{StartDate: strp("2021-01-01"), EndDate: strp("2022-12-31")}, Description: "Should extract 'between X and Y' as date range", Category: "date_filter"},
	{ID: "date_005", Query: "Recent discussions about quantum computing", Expected: metrics.ExpectedFilters{}, Description: "Ambiguous time reference should not create specific filter", Category: "date_filter"},

	{ID: "combined_001", Query: "What did Elon Musk say about Mars in 2023?", Expected: metrics.ExpectedFilters{Speaker: strp("Elon Musk"), StartDate: strp("2023-01-01"), EndDate: strp("2023-12-31")}, Description: "Should extract both speaker and date filters", Category: "combined_filters"},
	{ID: "combined_002", Query: "Show me what Sam Altman said about GPT-5 after January 2024", Expected: metrics.ExpectedFilters{Speaker: strp("Sam Altman"), StartDate: strp("2024-01-01")}, Description: "Should extract speaker and start_date", Category: "combined_filters"},
	{ID: "combined_003", Query: "According to Patrick Collison in his 2022 interview, what drives innovation?", Expected: metrics.ExpectedFilters{Speaker: strp("Patrick Collison"), StartDate: strp("2022-01-01"), EndDate: strp("2022-12-31")}, Description: "Should extract speaker from 'according to' and year", Category: "combined_filters"},

	{ID: "edge_001", Query: "What do people think about what Elon Musk said?", Expected: metrics.ExpectedFilters{Speaker: strp("Elon Musk")}, Description: "Should still extract the relevant speaker despite indirection", Category: "edge_cases"},
	{ID: "edge_002", Query: "Compare what Sam Altman and Demis Hassabis said about AGI", Expected: metrics.ExpectedFilters{}, Description: "Multiple speakers mentioned - behavior may vary", Category: "edge_cases"},
	{ID: "edge_003", Query: "Who talked about the paperclip problem?", Expected: metrics.ExpectedFilters{}, Description: "Asking WHO said something, not filtering BY speaker", Category: "edge_cases"},
	{ID: "edge_004", Query: "john smith's thoughts on robotics", Expected: metrics.ExpectedFilters{Speaker: strp("john smith")}, Description: "Lowercase speaker name should still be extracted", Category: "edge_cases"},
	{ID: "edge_005", Query: "What has Dr. Fei-Fei Li discussed about computer vision?", Expected: metrics.ExpectedFilters{Speaker: strp("Fei-Fei Li")}, Description: "Should handle titles (Dr.) and hyphenated names", Category: "edge_cases"},
}

// ByCategory filters the default filter-case dataset by category.
func ByCategory(cases []FilterCase, category string) []FilterCase {
	var out []FilterCase
	for _, c := range cases {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// ByID returns the case with the given ID, if present.
func ByID(cases []FilterCase, id string) (FilterCase, bool) {
	for _, c := range cases {
		if c.ID == id {
			return c, true
		}
	}
	return FilterCase{}, false
}

// Categories returns the distinct category names present in cases.
func Categories(cases []FilterCase) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range cases {
		if _, ok := seen[c.Category]; !ok {
			seen[c.Category] = struct{}{}
			out = append(out, c.Category)
		}
	}
	return out
}
