package analysis

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates how many tokens a text uses.
type TokenCounter interface {
	CountTokens(text string) int
}

// HeuristicCounter assumes four characters per token.
type HeuristicCounter struct{}

// CountTokens returns ceil(len(text)/4).
func (HeuristicCounter) CountTokens(text string) int {
	return (len(text) + 3) / 4
}

// TiktokenCounter counts tokens with a tiktoken encoding. The encoding is
// loaded on first use; if it cannot be loaded the heuristic is used.
type TiktokenCounter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error

	// mu serializes Encode; modules are analyzed concurrently.
	mu sync.Mutex
}

// NewTiktokenCounter returns a counter for the given model name.
// Unknown models use the cl100k_base encoding.
func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

// CountTokens implements TokenCounter.
func (c *TiktokenCounter) CountTokens(text string) int {
	c.once.Do(c.load)
	if c.err != nil {
		return HeuristicCounter{}.CountTokens(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.enc.Encode(text, nil, nil))
}

func (c *TiktokenCounter) load() {
	enc, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	c.enc, c.err = enc, err
}
