package autopost

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/aifeed/aifeed/internal/ai"
	"github.com/aifeed/aifeed/internal/storage"
)

// reply is one scripted answer of a fakeGenerator.
type reply struct {
	text string
	err  error
}

// fakeGenerator answers with its script in order and repeats the last
// reply once the script runs out.
type fakeGenerator struct {
	mu      sync.Mutex
	script  []reply
	calls   int
	prompts []ai.Prompt
}

func (f *fakeGenerator) Generate(_ context.Context, p ai.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	r := f.script[min(f.calls, len(f.script)-1)]
	f.calls++
	return r.text, r.err
}

func content(words int) string {
	w := make([]string, words)
	for i := range w {
		w[i] = fmt.Sprintf("palabra%d", i)
	}
	return strings.Join(w, " ")
}

func draftJSON(title string, words int) string {
	return fmt.Sprintf(`{"title": %q, "content": %q, "category": "IA Avanzada", "relevance_score": 8, "word_count": 150}`,
		title, content(words))
}

func testRegistry(names ...string) ai.Registry {
	weights := map[string]float64{ai.Gemini: 40, ai.Groq: 25, ai.Cohere: 20, ai.HuggingFace: 15}
	cfgs := make([]ai.ProviderConfig, 0, len(names))
	for _, n := range names {
		cfgs = append(cfgs, ai.ProviderConfig{Name: n, APIKey: "key-" + n, Model: "model-" + n, Weight: weights[n]})
	}
	return ai.NewRegistry(cfgs)
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return storage.NewStore(db)
}
