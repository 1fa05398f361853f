package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/embedding"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
)

// DefaultSpeaker is persisted on chunks with no owning turn (doc_type
// "text"/"blog" have no turn structure), per spec.md §3's data-model
// invariant that such a chunk "is attributed to a configured default
// speaker" — not merely displayed as one at read time.
const DefaultSpeaker = "Dwarkesh Patel"

// Status mirrors document.Status in the teacher, narrowed to the
// single-tenant ingestion model.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// TextRequest is the payload accepted by POST /api/ingest/text.
type TextRequest struct {
	Text     string
	Title    string
	Source   string // defaults to "text"
	Metadata map[string]any
}

// Result is returned synchronously once the document row exists;
// chunking/embedding continues asynchronously on the worker pool.
type Result struct {
	DocID  string
	Status Status
}

const (
	workerCount = 4
	jobQueueCap = 256
	ingestTimeout = 5 * time.Minute
)

// Pipeline is the turn-aware ingestion service: fetch/accept raw text,
// persist a docs row synchronously, then chunk + embed + store
// asynchronously on a fixed goroutine pool. Adapted from the teacher's
// document.Service (buffered job channel + fixed worker pool), grounded
// on original_source/src/ingestion/pipeline.py for pipeline stage order.
type Pipeline struct {
	Store    *store.Store
	Embedder embedding.Embedder
	Chunker  *TokenChunker
	jobs     chan job
}

type job struct {
	docID string
	text  string
}

func NewPipeline(s *store.Store, e embedding.Embedder, c *TokenChunker) *Pipeline {
	p := &Pipeline{Store: s, Embedder: e, Chunker: c, jobs: make(chan job, jobQueueCap)}
	for i := 0; i < workerCount; i++ {
		go p.worker(i)
	}
	return p
}

// IngestText persists the document row for raw text (doc_type "text")
// and enqueues chunking/embedding. Returns immediately with status
// "pending"; if the queue is full the document stays pending for a
// later retry sweep, which is out of scope for this subsystem.
func (p *Pipeline) IngestText(ctx context.Context, req TextRequest) (Result, error) {
	if req.Text == "" {
		return Result{}, apperr.New(apperr.BadInput, "text must not be empty")
	}

	source := req.Source
	if source == "" {
		source = "text"
	}
	title := req.Title
	if title == "" {
		title = "Untitled Document"
	}

	doc := store.Document{
		ID:          uuid.NewString(),
		Source:      source,
		URL:         "n/a",
		Title:       title,
		DocType:     "text",
		PublishedAt: time.Now(),
		Metadata:    req.Metadata,
		RawText:     CleanTranscriptText(req.Text),
	}

	if err := p.Store.IngestDocument(ctx, doc, nil, nil, nil); err != nil {
		return Result{}, err
	}

	select {
	case p.jobs <- job{docID: doc.ID, text: doc.RawText}:
	default:
		slog.Warn("ingest queue full, document left pending", "doc_id", doc.ID)
	}

	return Result{DocID: doc.ID, Status: StatusPending}, nil
}

func (p *Pipeline) worker(id int) {
	slog.Info("ingest worker started", "worker_id", id)
	for j := range p.jobs {
		p.process(j)
	}
}

// process chunks the document's raw text (no turn structure for
// doc_type "text", so the whole document is one chunking unit), embeds
// every chunk in a single batch call, and persists both — never
// crossing a turn boundary is vacuous here since there are no turns;
// transcript ingestion with turn structure is the scraper collaborator's
// responsibility and feeds IngestDocument directly with turns populated.
func (p *Pipeline) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	chunks := p.Chunker.Chunk(j.text)
	if len(chunks) == 0 {
		slog.Error("chunking produced no chunks", "doc_id", j.docID)
		return
	}

	storeChunks := make([]store.Chunk, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		id := uuid.NewString()
		storeChunks[i] = store.Chunk{
			ID:         id,
			DocID:      j.docID,
			TurnID:     nil,
			Ord:        c.Ord,
			Text:       c.Text,
			TokenCount: c.TokenCount,
			Speaker:    DefaultSpeaker,
		}
		texts[i] = c.Text
	}

	vecs, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Error("embedding batch failed", "doc_id", j.docID, "error", err)
		return
	}

	embeddings := make([]store.ChunkEmbedding, len(storeChunks))
	for i, c := range storeChunks {
		embeddings[i] = store.ChunkEmbedding{ChunkID: c.ID, Embedding: vecs[i]}
	}

	if err := p.Store.AttachChunks(ctx, j.docID, storeChunks, embeddings); err != nil {
		slog.Error("persisting chunks failed", "doc_id", j.docID, "error", err)
		return
	}

	slog.Info("document ingested", "doc_id", j.docID, "chunks", len(storeChunks))
}
