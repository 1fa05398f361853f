package store

import "time"

// Document is an ingested source, immutable after ingestion.
type Document struct {
	ID          string
	Source      string
	URL         string
	Title       string
	DocType     string // "transcript" | "blog" | "text"
	PublishedAt time.Time
	Metadata    map[string]any
	RawText     string
}

// Turn is a contiguous utterance by a single speaker within a document.
// Only present for transcript-type documents.
type Turn struct {
	ID            string
	DocID         string
	Ord           int
	Speaker       string
	StartSeconds  *float64
	SectionTitle  *string
	Text          string
	TokenCount    int
	Metadata      map[string]any
}

// Chunk is a token-bounded slice of text used as a retrieval unit.
type Chunk struct {
	ID         string
	DocID      string
	TurnID     *string // nil when the owning document has no turns
	Ord        int
	Text       string
	TokenCount int
	Speaker    string // inherited from the turn, or the configured default
}

// ChunkEmbedding is a dense vector associated one-to-one with a chunk.
type ChunkEmbedding struct {
	ChunkID   string
	Embedding []float32
}

// Filters narrows retrieval to a subset of chunks. All fields are
// optional and combined as AND.
type Filters struct {
	Source    *string
	DocType   *string
	StartDate *time.Time
	EndDate   *time.Time
	Speaker   *string // case-insensitive substring match
}

// ChunkHit is a single row returned by a retrieval query: the chunk plus
// enough of its owning document's metadata to render a result entity.
type ChunkHit struct {
	ChunkID     string
	DocID       string
	Ord         int
	Text        string
	Score       float64
	Title       string
	URL         string
	Source      string
	DocType     string
	Speaker     string
	PublishedAt *time.Time
}

// TurnWithDoc is a turn joined with the metadata of its owning document,
// as needed by the turn expander to build a TurnView. ChunkID is the
// originating chunk for this row: a turn with multiple source chunks
// among the input chunk IDs produces one row per chunk so the caller
// can compute a true per-turn max score.
type TurnWithDoc struct {
	Turn
	ChunkID     string
	Title       string
	URL         string
	Source      string
	PublishedAt *time.Time
}

// TurnRef identifies a turn by its document and ordinal, used to look up
// the immediately preceding turn without round-tripping a turn ID.
type TurnRef struct {
	DocID string
	Ord   int
}
