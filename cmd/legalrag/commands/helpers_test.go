package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/54b3r/legalrag-go/internal/provider"
	"github.com/54b3r/legalrag-go/internal/rag"
	"github.com/54b3r/legalrag-go/internal/server"
	"github.com/54b3r/legalrag-go/internal/store"
)

// pinglessStore is a vector store with no Ping method.
type pinglessStore struct{}

func (pinglessStore) Upsert(context.Context, []rag.Document, [][]float32) error { return nil }
func (pinglessStore) Search(context.Context, []float32, int) ([]rag.Document, error) {
	return nil, nil
}
func (pinglessStore) Delete(context.Context, []string) error { return nil }
func (pinglessStore) Close() error                           { return nil }

func pingerNames(ps []server.Pinger) []string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name())
	}
	return names
}

func TestAppPingers_LocalBackendWithHistory(t *testing.T) {
	t.Parallel()

	vectors, err := rag.NewLocalStore(":memory:")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	history, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	a := &app{
		providerCfg: &provider.Config{Backend: provider.BackendOllama, Ollama: provider.ProviderOllama{Host: "http://127.0.0.1:11434"}},
		vectors:     vectors,
		storeCfg:    rag.StoreConfig{Backend: "LOCAL "},
		history:     history,
	}
	t.Cleanup(a.Close)

	ps := a.pingers()
	got := pingerNames(ps)
	want := []string{"ollama", "local", "history"}
	if len(got) != len(want) {
		t.Fatalf("pingers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pingers = %v, want %v", got, want)
		}
	}

	// the store pingers hit the real databases
	for _, p := range ps[1:] {
		if err := p.Ping(context.Background()); err != nil {
			t.Errorf("%s: Ping: %v", p.Name(), err)
		}
	}
}

func TestAppPingers_StoreWithoutPingAndNoHistory(t *testing.T) {
	t.Parallel()

	a := &app{
		providerCfg: &provider.Config{Backend: provider.BackendBedrock},
		vectors:     pinglessStore{},
		storeCfg:    rag.StoreConfig{},
	}

	got := pingerNames(a.pingers())
	if len(got) != 1 || got[0] != "bedrock" {
		t.Errorf("pingers = %v, want [bedrock]", got)
	}
	if a.historyStore() != nil {
		t.Error("historyStore() should be a nil interface when history is disabled")
	}
}
