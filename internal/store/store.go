// Package store is the typed Postgres adapter: parameterized SQL, a
// bounded connection pool with scoped acquisition, transactional
// per-document mutation, and the read paths the retrievers and turn
// expander build on. No caller may construct SQL by string-interpolating
// user input — every value here travels as a placeholder argument.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
)

const (
	minPoolConns = 2
	maxPoolConns = 10
)

// Store owns the process-wide connection pool. It is the only
// process-wide mutable resource besides the tracing processor.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and configures the bounded pool (min 2, max
// 10 per the retrieval-subsystem contract). Every pooled connection has
// pgvector's codecs registered so chunk_embeddings.embedding scans
// directly into []float32.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadQuery, "parse database url", err)
	}
	poolCfg.MinConns = minPoolConns
	poolCfg.MaxConns = maxPoolConns
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "open connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.StoreUnavailable, "ping database", err)
	}
	return &Store{pool: pool}, nil
}

// Close tears down the connection pool. Called once at process shutdown.
func (s *Store) Close() {
	s.pool.Close()
}

// acquire checks out a pooled connection as a scoped handle: the
// returned release function is guaranteed safe to call on every exit
// path (success, error, or context cancellation/panic via defer).
func (s *Store) acquire(ctx context.Context) (*pgxpool.Conn, func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, func() {}, apperr.Wrap(apperr.StoreUnavailable, "acquire connection", err)
	}
	return conn, conn.Release, nil
}

// IngestDocument persists a document, its turns (if any), its chunks,
// and their embeddings (if any) in a single transaction. A failure rolls
// back all chunks and embeddings for that document, per the store
// adapter's contract.
func (s *Store) IngestDocument(
	ctx context.Context,
	doc Document,
	turns []Turn,
	chunks []Chunk,
	embeddings []ChunkEmbedding,
) error {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "begin ingest transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertDoc(ctx, tx, doc); err != nil {
		return err
	}
	if len(turns) > 0 {
		if err := insertTurns(ctx, tx, turns); err != nil {
			return err
		}
	}
	if len(chunks) > 0 {
		if err := insertChunks(ctx, tx, chunks); err != nil {
			return err
		}
	}
	if len(embeddings) > 0 {
		if err := insertEmbeddings(ctx, tx, embeddings); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "commit ingest transaction", err)
	}
	return nil
}

// AttachChunks persists chunks and their embeddings for a document that
// already has a docs row, in one transaction — used by the asynchronous
// stage of the ingestion pipeline, after IngestDocument has already
// committed the bare document row synchronously.
func (s *Store) AttachChunks(ctx context.Context, docID string, chunks []Chunk, embeddings []ChunkEmbedding) error {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "begin attach-chunks transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(chunks) > 0 {
		if err := insertChunks(ctx, tx, chunks); err != nil {
			return err
		}
	}
	if len(embeddings) > 0 {
		if err := insertEmbeddings(ctx, tx, embeddings); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "commit attach-chunks transaction", err)
	}
	return nil
}

func insertDoc(ctx context.Context, tx pgx.Tx, doc Document) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO docs (id, source, url, title, doc_type, published_at, metadata, raw_text)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		doc.ID, doc.Source, doc.URL, doc.Title, doc.DocType, doc.PublishedAt, doc.Metadata, doc.RawText,
	)
	return classifyWriteErr(err, "insert document")
}

func insertTurns(ctx context.Context, tx pgx.Tx, turns []Turn) error {
	batch := &pgx.Batch{}
	for _, t := range turns {
		batch.Queue(
			`INSERT INTO turns (id, doc_id, ord, speaker, start_seconds, section_title, text, token_count, metadata)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			t.ID, t.DocID, t.Ord, t.Speaker, t.StartSeconds, t.SectionTitle, t.Text, t.TokenCount, t.Metadata,
		)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range turns {
		if _, err := br.Exec(); err != nil {
			return classifyWriteErr(err, "insert turn")
		}
	}
	return nil
}

func insertChunks(ctx context.Context, tx pgx.Tx, chunks []Chunk) error {
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(
			`INSERT INTO chunks (id, doc_id, turn_id, ord, text, token_count, speaker)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.ID, c.DocID, c.TurnID, c.Ord, c.Text, c.TokenCount, c.Speaker,
		)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range chunks {
		if _, err := br.Exec(); err != nil {
			return classifyWriteErr(err, "insert chunk")
		}
	}
	return nil
}

func insertEmbeddings(ctx context.Context, tx pgx.Tx, embeddings []ChunkEmbedding) error {
	batch := &pgx.Batch{}
	for _, e := range embeddings {
		batch.Queue(
			`INSERT INTO chunk_embeddings (chunk_id, embedding) VALUES ($1,$2)`,
			e.ChunkID, pgvector.NewVector(e.Embedding),
		)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range embeddings {
		if _, err := br.Exec(); err != nil {
			return classifyWriteErr(err, "insert embedding")
		}
	}
	return nil
}

// classifyWriteErr maps a raw pgx error into the store adapter's fatal
// error kinds: constraint violations are ConstraintViolation, everything
// else that reaches here during a write is BadQuery (connection-level
// failures are caught earlier, at acquire/begin time).
func classifyWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "23505", "23503", "23502", "23514": // unique, fk, not-null, check
			return apperr.Wrap(apperr.ConstraintViolation, op, err)
		}
	}
	return apperr.Wrap(apperr.BadQuery, op, err)
}
