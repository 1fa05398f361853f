package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
)

// FilterSQL builds the same AND-combined filter clause used internally
// by the read paths here, exported so callers that need to assemble
// their own SQL (e.g. the lexical retriever's EXPLAIN variant) stay
// consistent with the parameter-binding rules enforced in this package.
func FilterSQL(f Filters, argPos int) (string, []any) {
	return filterClause(f, argPos)
}

// filterClause appends the optional AND-combined filters of spec.md
// §4.3 to a WHERE clause already opened by the caller, starting
// placeholder numbering at argPos.
func filterClause(f Filters, argPos int) (string, []any) {
	var sb strings.Builder
	var args []any

	next := func(v any) string {
		args = append(args, v)
		p := argPos
		argPos++
		return fmt.Sprintf("$%d", p)
	}

	if f.Source != nil {
		sb.WriteString(" AND d.source = " + next(*f.Source))
	}
	if f.DocType != nil {
		sb.WriteString(" AND d.doc_type = " + next(*f.DocType))
	}
	if f.StartDate != nil {
		sb.WriteString(" AND d.published_at >= " + next(*f.StartDate))
	}
	if f.EndDate != nil {
		sb.WriteString(" AND d.published_at < " + next(*f.EndDate))
	}
	if f.Speaker != nil {
		sb.WriteString(" AND c.speaker ILIKE " + next("%"+*f.Speaker+"%"))
	}
	return sb.String(), args
}

const hitColumns = `
	c.id AS chunk_id, c.doc_id, c.ord, c.text,
	d.title, d.url, d.source, d.doc_type, c.speaker, d.published_at`

// QueryChunksFTS runs the compiled tsquery expression (built by the
// lexical retriever, which knows about OR/AND operator semantics and
// stop-word handling) against chunks.tsv, applies filters, and returns
// at most n hits ranked by ts_rank descending with chunk ID ascending as
// tie-break.
func (s *Store) QueryChunksFTS(ctx context.Context, tsqueryExpr string, tsqueryArg string, n int, filters Filters) ([]ChunkHit, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	where, fargs := filterClause(filters, 3)
	sql := fmt.Sprintf(`
		SELECT %s, ts_rank(c.tsv, %s) AS score
		FROM chunks c
		INNER JOIN docs d ON c.doc_id = d.id
		WHERE c.tsv @@ %s %s
		ORDER BY score DESC, c.id ASC
		LIMIT $2`, hitColumns, tsqueryExpr, tsqueryExpr, where)

	args := append([]any{tsqueryArg, n}, fargs...)
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadQuery, "fts query", err)
	}
	defer rows.Close()

	var hits []ChunkHit
	for rows.Next() {
		var h ChunkHit
		var score float64
		if err := rows.Scan(&h.ChunkID, &h.DocID, &h.Ord, &h.Text,
			&h.Title, &h.URL, &h.Source, &h.DocType, &h.Speaker, &h.PublishedAt, &score); err != nil {
			return nil, apperr.Wrap(apperr.BadQuery, "scan fts row", err)
		}
		h.Score = score
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// QueryChunksVector performs a cosine-distance scan over chunk_embeddings
// joined to chunks, converts distance to similarity, applies filters
// identically to QueryChunksFTS, and limits to n.
func (s *Store) QueryChunksVector(ctx context.Context, embedding []float32, n int, filters Filters) ([]ChunkHit, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	where, fargs := filterClause(filters, 3)
	sql := fmt.Sprintf(`
		SELECT %s, 1 - (ce.embedding <=> $1::vector) AS similarity
		FROM chunk_embeddings ce
		INNER JOIN chunks c ON ce.chunk_id = c.id
		INNER JOIN docs d ON c.doc_id = d.id
		WHERE TRUE %s
		ORDER BY similarity DESC, c.id ASC
		LIMIT $2`, hitColumns, where)

	args := append([]any{pgvector.NewVector(embedding), n}, fargs...)
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadQuery, "vector query", err)
	}
	defer rows.Close()

	var hits []ChunkHit
	for rows.Next() {
		var h ChunkHit
		var sim float64
		if err := rows.Scan(&h.ChunkID, &h.DocID, &h.Ord, &h.Text,
			&h.Title, &h.URL, &h.Source, &h.DocType, &h.Speaker, &h.PublishedAt, &sim); err != nil {
			return nil, apperr.Wrap(apperr.BadQuery, "scan vector row", err)
		}
		h.Score = sim
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// RerankByVector computes cosine similarity between embedding and the
// embeddings of exactly the given candidate chunk IDs, dropping
// candidates that have no embedding row. Sort order is left to the
// caller (the hybrid retriever re-sorts after merging candidate text).
func (s *Store) RerankByVector(ctx context.Context, chunkIDs []string, embedding []float32) ([]ChunkHit, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sql := fmt.Sprintf(`
		SELECT %s, 1 - (ce.embedding <=> $1::vector) AS similarity
		FROM chunk_embeddings ce
		INNER JOIN chunks c ON ce.chunk_id = c.id
		INNER JOIN docs d ON c.doc_id = d.id
		WHERE c.id = ANY($2)`, hitColumns)

	rows, err := conn.Query(ctx, sql, pgvector.NewVector(embedding), chunkIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadQuery, "rerank query", err)
	}
	defer rows.Close()

	var hits []ChunkHit
	for rows.Next() {
		var h ChunkHit
		var sim float64
		if err := rows.Scan(&h.ChunkID, &h.DocID, &h.Ord, &h.Text,
			&h.Title, &h.URL, &h.Source, &h.DocType, &h.Speaker, &h.PublishedAt, &sim); err != nil {
			return nil, apperr.Wrap(apperr.BadQuery, "scan rerank row", err)
		}
		h.Score = sim
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// FetchTurnsByChunkIDs returns one row per (chunk ID, owning turn) pair
// for the given chunk IDs, joined with the turn's owning document's
// metadata. A turn referenced by more than one input chunk ID produces
// one row per referencing chunk so the caller can compute a true
// per-turn max score instead of substituting a single global value.
func (s *Store) FetchTurnsByChunkIDs(ctx context.Context, chunkIDs []string) ([]TurnWithDoc, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sql := `
		SELECT c.id, t.id, t.doc_id, t.ord, t.speaker, t.start_seconds,
			t.section_title, t.text, t.token_count, t.metadata,
			d.title, d.url, d.source, d.published_at
		FROM chunks c
		INNER JOIN turns t ON c.turn_id = t.id
		INNER JOIN docs d ON t.doc_id = d.id
		WHERE c.id = ANY($1)`

	rows, err := conn.Query(ctx, sql, chunkIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadQuery, "fetch turns by chunk ids", err)
	}
	defer rows.Close()

	var turns []TurnWithDoc
	for rows.Next() {
		var t TurnWithDoc
		if err := rows.Scan(&t.ChunkID, &t.ID, &t.DocID, &t.Ord, &t.Speaker, &t.StartSeconds,
			&t.SectionTitle, &t.Text, &t.TokenCount, &t.Metadata,
			&t.Title, &t.URL, &t.Source, &t.PublishedAt); err != nil {
			return nil, apperr.Wrap(apperr.BadQuery, "scan turn row", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// FetchPreviousTurns returns, for each ref, the turn immediately
// preceding it (same document, ord-1), keyed by the input ref. Refs with
// no preceding turn (ord 0) are simply absent from the result.
func (s *Store) FetchPreviousTurns(ctx context.Context, refs []TurnRef) (map[TurnRef]Turn, error) {
	out := map[TurnRef]Turn{}
	if len(refs) == 0 {
		return out, nil
	}
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	docIDs := make([]string, 0, len(refs))
	ords := make([]int, 0, len(refs))
	for _, r := range refs {
		if r.Ord == 0 {
			continue
		}
		docIDs = append(docIDs, r.DocID)
		ords = append(ords, r.Ord-1)
	}
	if len(docIDs) == 0 {
		return out, nil
	}

	sql := `
		SELECT id, doc_id, ord, speaker, start_seconds, section_title, text, token_count, metadata
		FROM turns
		WHERE (doc_id, ord) IN (SELECT * FROM unnest($1::text[], $2::int[]))`

	rows, err := conn.Query(ctx, sql, docIDs, ords)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadQuery, "fetch previous turns", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.DocID, &t.Ord, &t.Speaker, &t.StartSeconds,
			&t.SectionTitle, &t.Text, &t.TokenCount, &t.Metadata); err != nil {
			return nil, apperr.Wrap(apperr.BadQuery, "scan previous turn row", err)
		}
		out[TurnRef{DocID: t.DocID, Ord: t.Ord + 1}] = t
	}
	return out, rows.Err()
}

// Explain runs EXPLAIN (ANALYZE, BUFFERS) against sql with args and
// returns the plan as a newline-joined string.
func (s *Store) Explain(ctx context.Context, sql string, args ...any) (string, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	rows, err := conn.Query(ctx, "EXPLAIN (ANALYZE, BUFFERS) "+sql, args...)
	if err != nil {
		return "", apperr.Wrap(apperr.BadQuery, "explain query", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", apperr.Wrap(apperr.BadQuery, "scan explain row", err)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), rows.Err()
}
