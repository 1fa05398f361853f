package eval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDatasetJSON = `{
  "version": "1.0.0",
  "description": "test dataset",
  "created_at": "2026-01-01",
  "examples": [
    {
      "id": "eval_001",
      "question": "What did the guest say about scaling laws?",
      "reference_answer": "The guest argued scaling laws would continue to hold for another decade.",
      "expected_sections": ["scaling laws"],
      "difficulty_level": "easy",
      "source_chunk_ids": ["c1", "c2"],
      "question_type": "factual"
    }
  ]
}`

func writeTempDataset(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeTempDataset(t, validDatasetJSON)
	ds, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", ds.Version)
	require.Len(t, ds.Examples, 1)
	assert.Equal(t, "eval_001", ds.Examples[0].ID)
	assert.Equal(t, DifficultyEasy, ds.Examples[0].DifficultyLevel)
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadDatasetEmptyExamplesRejected(t *testing.T) {
	path := writeTempDataset(t, `{"version":"1.0.0","description":"d","created_at":"2026-01-01","examples":[]}`)
	_, err := LoadDataset(path)
	assert.Error(t, err)
}

func TestLoadDatasetInvalidExampleRejected(t *testing.T) {
	path := writeTempDataset(t, `{
		"version": "1.0.0",
		"description": "d",
		"created_at": "2026-01-01",
		"examples": [{"id": "", "question": "too short", "reference_answer": "x", "expected_sections": [], "difficulty_level": "easy", "question_type": "factual"}]
	}`)
	_, err := LoadDataset(path)
	assert.Error(t, err)
}

func TestDatasetByDifficultyAndType(t *testing.T) {
	ds := Dataset{Examples: []Task{
		{ID: "1", DifficultyLevel: DifficultyEasy, QuestionType: QuestionFactual},
		{ID: "2", DifficultyLevel: DifficultyHard, QuestionType: QuestionOpinion},
	}}
	assert.Len(t, ds.ByDifficulty(DifficultyEasy), 1)
	assert.Len(t, ds.ByType(QuestionOpinion), 1)
	assert.Empty(t, ds.ByDifficulty(DifficultyMedium))
}

func TestTaskMetadataStringCoercesNumber(t *testing.T) {
	task := Task{Metadata: map[string]any{"episode_number": 42.0}}
	s, ok := task.MetadataString("episode_number")
	assert.True(t, ok)
	assert.Equal(t, "42", s)
}

func TestTaskMetadataIntCoercesStringDigits(t *testing.T) {
	task := Task{Metadata: map[string]any{"episode_number": "42"}}
	n, ok := task.MetadataInt("episode_number")
	assert.True(t, ok)
	assert.Equal(t, 42, n)
}

func TestTaskMetadataMissingKey(t *testing.T) {
	task := Task{Metadata: map[string]any{}}
	_, ok := task.MetadataString("missing")
	assert.False(t, ok)
}
