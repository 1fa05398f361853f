// Package turns implements the turn-aware chunk model's expansion step
// (spec.md §4.6): grouping retrieved chunks by the speaker turn they came
// from, deduplicating, and assembling a token-budgeted list of TurnViews.
package turns

import (
	"context"
	"sort"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
)

const (
	MinTokenBudget     = 100
	DefaultTokenBudget = 8000
)

// View is one expanded turn: its full text (not any chunk's snippet),
// document metadata, the best score among the chunks that referenced
// it, and — if requested — the immediately preceding turn as the
// question it answers.
type View struct {
	TurnID            string
	DocID             string
	Ord               int
	Speaker           string
	Text              string
	TokenCount        int
	Score             float64
	Title             string
	URL               string
	Source            string
	PublishedAt       *time.Time
	PrecedingQuestion *string
	precedingTokens   int
}

// Expander groups chunk IDs into deduplicated, budget-assembled turns.
type Expander struct {
	Store *store.Store
}

func NewExpander(s *store.Store) *Expander {
	return &Expander{Store: s}
}

// ChunkScore is the minimal input the expander needs per chunk: its ID
// and the score it carried in the retrieval result that produced it.
type ChunkScore struct {
	ChunkID string
	Score   float64
}

// Expand groups the chunks referenced by chunkScores into their owning
// turns (deduplicated, keeping the max score seen for each turn),
// optionally attaches each turn's preceding question, and greedily
// assembles turns in descending-score order until token_budget would be
// exceeded — stopping at the first turn that would overflow it rather
// than skipping ahead.
func (e *Expander) Expand(ctx context.Context, chunkScores []ChunkScore, tokenBudget int, includePrecedingQuestion bool) ([]View, error) {
	if tokenBudget < MinTokenBudget {
		return nil, apperr.New(apperr.BadInput, "token_budget below minimum")
	}

	chunkIDs := make([]string, len(chunkScores))
	bestScoreByChunk := make(map[string]float64, len(chunkScores))
	for i, cs := range chunkScores {
		chunkIDs[i] = cs.ChunkID
		if prev, ok := bestScoreByChunk[cs.ChunkID]; !ok || cs.Score > prev {
			bestScoreByChunk[cs.ChunkID] = cs.Score
		}
	}

	turnRows, err := e.Store.FetchTurnsByChunkIDs(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}

	views := groupTurnsByMaxScore(turnRows, bestScoreByChunk)

	if includePrecedingQuestion && len(views) > 0 {
		refs := make([]store.TurnRef, len(views))
		for i, v := range views {
			refs[i] = store.TurnRef{DocID: v.DocID, Ord: v.Ord}
		}
		prev, err := e.Store.FetchPreviousTurns(ctx, refs)
		if err != nil {
			return nil, err
		}
		for i, v := range views {
			if p, ok := prev[store.TurnRef{DocID: v.DocID, Ord: v.Ord}]; ok {
				text := p.Text
				views[i].PrecedingQuestion = &text
				views[i].precedingTokens = p.TokenCount
			}
		}
	}

	sort.SliceStable(views, func(i, j int) bool { return views[i].Score > views[j].Score })

	return assembleUnderBudget(views, tokenBudget), nil
}

// groupTurnsByMaxScore collapses rows holding one (chunk ID, owning
// turn) pair each into one View per distinct turn, scoring each turn by
// the true max among only the scores of the chunks that reference it —
// not the max across every chunk fed into this expansion round.
func groupTurnsByMaxScore(turnRows []store.TurnWithDoc, bestScoreByChunk map[string]float64) []View {
	type turnAgg struct {
		row   store.TurnWithDoc
		score float64
	}
	byTurn := make(map[string]*turnAgg, len(turnRows))
	order := make([]string, 0, len(turnRows))
	for _, t := range turnRows {
		score := bestScoreByChunk[t.ChunkID]
		if agg, ok := byTurn[t.ID]; ok {
			if score > agg.score {
				agg.score = score
			}
			continue
		}
		byTurn[t.ID] = &turnAgg{row: t, score: score}
		order = append(order, t.ID)
	}

	views := make([]View, 0, len(byTurn))
	for _, turnID := range order {
		agg := byTurn[turnID]
		t := agg.row
		views = append(views, View{
			TurnID:      turnID,
			DocID:       t.DocID,
			Ord:         t.Ord,
			Speaker:     t.Speaker,
			Text:        t.Text,
			TokenCount:  t.TokenCount,
			Score:       agg.score,
			Title:       t.Title,
			URL:         t.URL,
			Source:      t.Source,
			PublishedAt: t.PublishedAt,
		})
	}
	return views
}

// assembleUnderBudget iterates views in the order given (already sorted
// by descending score), including each iff adding it keeps the running
// total within budget, and stops at the first one that would exceed it.
func assembleUnderBudget(views []View, tokenBudget int) []View {
	out := make([]View, 0, len(views))
	total := 0
	for _, v := range views {
		cost := v.TokenCount
		if v.PrecedingQuestion != nil {
			cost += v.precedingTokens
		}
		if total+cost > tokenBudget {
			break
		}
		total += cost
		out = append(out, v)
	}
	return out
}
