package agent

import (
	"fmt"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
	"github.com/dwarkesh-labs/transcript-rag/internal/llm"
	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
)

// Factory instantiates the agent named by a Type. Grounded on
// original_source/src/agents/factory.py's get_agent.
type Factory struct {
	vanilla    *VanillaAgent
	multiQuery *MultiQueryAgent
}

func NewFactory(r *retrieval.Registry, c llm.Client) *Factory {
	return &Factory{
		vanilla:    NewVanillaAgent(r, c),
		multiQuery: NewMultiQueryAgent(r, c),
	}
}

func (f *Factory) Get(t Type) (Agent, error) {
	switch t {
	case TypeVanilla, "":
		return f.vanilla, nil
	case TypeMultiQuery:
		return f.multiQuery, nil
	default:
		return nil, apperr.New(apperr.BadInput, fmt.Sprintf("unknown agent type: %q", t))
	}
}
