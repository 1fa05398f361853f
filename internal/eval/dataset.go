// Package eval implements the two offline evaluation harnesses of
// spec.md §4.9: retrieval quality against ground-truth chunk IDs, and
// filter-extraction accuracy for the multi-query agent's tool calls.
// Grounded on original_source/evals/retrieval/runner.py,
// original_source/evals/schemas/task.py, and
// original_source/evals/tasks/tool_params/{dataset,runner}.py.
package eval

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cast"
)

// QuestionType categorizes what kind of reasoning a retrieval eval
// question exercises.
type QuestionType string

const (
	QuestionFactual    QuestionType = "factual"
	QuestionAnalytical QuestionType = "analytical"
	QuestionOpinion    QuestionType = "opinion"
)

// DifficultyLevel categorizes how much retrieval/reasoning a question
// requires.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// Task is a single retrieval evaluation question with ground truth,
// mirroring original_source/evals/schemas/task.py's EvalTask.
type Task struct {
	ID               string          `json:"id"`
	Question         string          `json:"question"`
	ReferenceAnswer  string          `json:"reference_answer"`
	ExpectedSections []string        `json:"expected_sections"`
	DifficultyLevel  DifficultyLevel `json:"difficulty_level"`
	SourceChunkIDs   []string        `json:"source_chunk_ids"`
	QuestionType     QuestionType    `json:"question_type"`
	TranscriptSource string          `json:"transcript_source,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
}

// Dataset is a versioned collection of retrieval eval tasks.
type Dataset struct {
	Version     string `json:"version"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	Examples    []Task `json:"examples"`
}

// LoadDataset reads and validates a retrieval eval dataset from a JSON
// file on disk, mirroring evals/loaders.load_eval_dataset.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset: %w", err)
	}
	if len(ds.Examples) == 0 {
		return Dataset{}, fmt.Errorf("dataset %s has no examples", path)
	}
	for i, ex := range ds.Examples {
		if ex.ID == "" || len(ex.Question) < 10 || len(ex.ReferenceAnswer) < 10 || len(ex.ExpectedSections) == 0 {
			return Dataset{}, fmt.Errorf("dataset %s example %d fails validation", path, i)
		}
	}
	return ds, nil
}

// ByDifficulty filters examples by difficulty level.
func (d Dataset) ByDifficulty(level DifficultyLevel) []Task {
	var out []Task
	for _, ex := range d.Examples {
		if ex.DifficultyLevel == level {
			out = append(out, ex)
		}
	}
	return out
}

// ByType filters examples by question type.
func (d Dataset) ByType(qt QuestionType) []Task {
	var out []Task
	for _, ex := range d.Examples {
		if ex.QuestionType == qt {
			out = append(out, ex)
		}
	}
	return out
}

// MetadataString coerces a metadata field to a string regardless of
// whether the dataset author wrote it as a JSON string or number (eval
// datasets are hand-authored and hand-edited, so episode numbers and
// similar fields show up as both across examples).
func (t Task) MetadataString(key string) (string, bool) {
	v, ok := t.Metadata[key]
	if !ok {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}

// MetadataInt coerces a metadata field to an int, tolerating a numeric
// value encoded as a JSON string.
func (t Task) MetadataInt(key string) (int, bool) {
	v, ok := t.Metadata[key]
	if !ok {
		return 0, false
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
