// Package ingest implements the turn-aware ingestion pipeline of
// SPEC_FULL.md §6 (supplemented feature): accept raw text, clean it,
// chunk it, embed, and persist. Text is not split into turns here; a
// text document is chunked as one unit, and its chunks carry no turn ID.
// Grounded on
// original_source/src/ingestion/{chunker,pipeline,text_cleaner}.py.
package ingest

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/dwarkesh-labs/transcript-rag/internal/tokencount"
)

// coarseSplitCharSize/Overlap bound the recursive-character pre-pass
// that runs before token windowing, so a single very long document gets
// broken on paragraph/sentence boundaries first instead of one token
// slider running over the whole raw text — the same two-stage shape as
// the teacher's splitDocument, generalized from chunk_size=512
// characters to a much larger coarse segment since the fine-grained
// bound here is the token window, not the character split.
const (
	coarseSplitCharSize    = 8000
	coarseSplitCharOverlap = 200
)

// Chunk is one token-bounded slice of a turn's (or document's) text.
type Chunk struct {
	Text       string
	TokenCount int
	Ord        int
}

const (
	DefaultMinTokens     = 64
	DefaultMaxTokens     = 512
	DefaultOverlapTokens = 64
)

// TokenChunker splits text into overlapping, token-bounded segments
// using the same cl100k_base encoding the rest of the service counts
// tokens with.
type TokenChunker struct {
	Counter       *tokencount.Counter
	MinTokens     int
	MaxTokens     int
	OverlapTokens int
}

func NewTokenChunker(counter *tokencount.Counter, minTokens, maxTokens, overlapTokens int) *TokenChunker {
	if minTokens <= 0 {
		minTokens = DefaultMinTokens
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		overlapTokens = DefaultOverlapTokens
	}
	return &TokenChunker{Counter: counter, MinTokens: minTokens, MaxTokens: maxTokens, OverlapTokens: overlapTokens}
}

// Chunk runs a coarse recursive-character pre-pass over text, then
// tokenizes each segment and slices it into windows of at most
// MaxTokens with OverlapTokens of carry-over between consecutive
// windows, dropping any window shorter than MinTokens unless it's the
// final one in its segment (so the tail is never silently discarded).
func (c *TokenChunker) Chunk(text string) []Chunk {
	segments := coarseSplit(text)

	var chunks []Chunk
	ord := 0
	for _, segment := range segments {
		segChunks, ok := c.chunkSegment(segment)
		if !ok {
			return c.chunkByWords(text)
		}
		for _, sc := range segChunks {
			sc.Ord = ord
			chunks = append(chunks, sc)
			ord++
		}
	}
	return chunks
}

// coarseSplit segments text on paragraph/sentence/word boundaries using
// langchaingo's recursive-character splitter, the same splitter the
// teacher's splitDocument uses, sized for coarse pre-segmentation rather
// than final chunk boundaries.
func coarseSplit(text string) []string {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(coarseSplitCharSize),
		textsplitter.WithChunkOverlap(coarseSplitCharOverlap),
	)
	segments, err := splitter.SplitText(text)
	if err != nil || len(segments) == 0 {
		return []string{text}
	}
	return segments
}

// chunkSegment applies the token-window slider to a single coarse
// segment. ok is false when tokenization or decoding failed, signaling
// the caller to fall back to the whole-text word-based chunker.
func (c *TokenChunker) chunkSegment(segment string) (chunks []Chunk, ok bool) {
	tokens, encOK := c.Counter.Encode(segment)
	if !encOK {
		return nil, false
	}
	if len(tokens) == 0 {
		return nil, true
	}

	start := 0
	for start < len(tokens) {
		end := start + c.MaxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]

		if len(window) >= c.MinTokens || end == len(tokens) {
			chunkText, decOK := c.Counter.Decode(window)
			if !decOK {
				return nil, false
			}
			chunks = append(chunks, Chunk{
				Text:       strings.TrimSpace(chunkText),
				TokenCount: len(window),
			})
		}

		if end == len(tokens) {
			break
		}
		start = end - c.OverlapTokens
	}
	return chunks, true
}

// chunkByWords is the fallback path when the tiktoken encoding couldn't
// be loaded: split on whitespace into word groups approximating the
// configured token bounds using the same 1.3-tokens-per-word estimate
// tokencount.Counter uses for Count.
func (c *TokenChunker) chunkByWords(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	wordsPerChunk := int(float64(c.MaxTokens) / 1.3)
	if wordsPerChunk < 1 {
		wordsPerChunk = 1
	}
	overlapWords := int(float64(c.OverlapTokens) / 1.3)

	var chunks []Chunk
	start := 0
	ord := 0
	for start < len(words) {
		end := start + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		windowWords := words[start:end]
		chunkText := strings.Join(windowWords, " ")
		chunks = append(chunks, Chunk{
			Text:       chunkText,
			TokenCount: c.Counter.Count(chunkText),
			Ord:        ord,
		})
		ord++
		if end == len(words) {
			break
		}
		start = end - overlapWords
		if start < 0 {
			start = 0
		}
	}
	return chunks
}

// CleanTranscriptText normalizes raw transcript text the way
// original_source/src/ingestion/text_cleaner.py does: strip newlines and
// backslashes, collapse runs of whitespace.
func CleanTranscriptText(text string) string {
	if text == "" {
		return text
	}
	cleaned := strings.ReplaceAll(text, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\\", "")
	return strings.Join(strings.Fields(cleaned), " ")
}
