package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/legalrag-go/internal/ingestion"
	"github.com/54b3r/legalrag-go/internal/rag"
)

func TestUrgencyCmd(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"urgent", []string{"2025-03-10", "--today", "2025-03-01"}, "urgent (9 days)"},
		{"past date is urgent", []string{"2025-02-01", "--today", "2025-03-01"}, "urgent (-28 days)"},
		{"high boundary", []string{"2025-03-31", "--today", "2025-03-01"}, "high (30 days)"},
		{"normal", []string{"2025-06-01", "--today", "2025-03-01"}, "normal (92 days)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			cmd := NewUrgencyCmd()
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)
			if err := cmd.Execute(); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got := strings.TrimSpace(out.String()); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUrgencyCmd_InvalidDate(t *testing.T) {
	t.Parallel()
	cmd := NewUrgencyCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"next tuesday"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for a malformed trial date")
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "legalrag ") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestIngestCmd_RequiresSource(t *testing.T) {
	t.Parallel()
	cmd := NewIngestCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--file or --url") {
		t.Fatalf("want missing-source error, got %v", err)
	}
}

func TestIngestCmd_RejectsUnknownDocType(t *testing.T) {
	t.Parallel()
	cmd := NewIngestCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--file", "x.txt", "--doc-type", "tutorial"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown --doc-type") {
		t.Fatalf("want doc-type error, got %v", err)
	}
}

func TestPredictCmd_RejectsBadTrialDate(t *testing.T) {
	t.Parallel()
	cmd := NewPredictCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--trial-date", "31/12/2025", "contract dispute"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Fatalf("want trial-date error, got %v", err)
	}
}

func TestBuildSources(t *testing.T) {
	t.Parallel()
	got := buildSources([]string{"a.txt"}, []string{"https://example.com/b"}, "us-ca", "")
	want := []ingestion.Source{
		{Path: "a.txt", Jurisdiction: "us-ca"},
		{URL: "https://example.com/b", Jurisdiction: "us-ca"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d sources, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("source %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStoreConfigFromEnv(t *testing.T) {
	t.Setenv("VECTOR_STORE", "qdrant")
	t.Setenv("VECTOR_SIZE", "384")
	t.Setenv("SUPABASE_DB_URL", "")
	t.Setenv("LOCAL_VECTOR_DB", "")
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_API_KEY", "")
	t.Setenv("QDRANT_TLS", "true")

	cfg := storeConfigFromEnv()
	if cfg.Backend != rag.BackendQdrant || cfg.VectorSize != 384 {
		t.Errorf("backend/size = %q/%d", cfg.Backend, cfg.VectorSize)
	}
	if cfg.Qdrant.Host != "qdrant.internal" || cfg.Qdrant.Port != 7000 || !cfg.Qdrant.UseTLS {
		t.Errorf("qdrant config = %+v", cfg.Qdrant)
	}
	if cfg.Qdrant.Collection != "legal_embeddings" {
		t.Errorf("collection = %q, want default", cfg.Qdrant.Collection)
	}
}

func TestStoreConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("VECTOR_STORE", "")
	t.Setenv("VECTOR_SIZE", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("EMBEDDING_DIMENSIONS", "")

	cfg := storeConfigFromEnv()
	if backendName(cfg) != rag.BackendSupabase {
		t.Errorf("backend = %q, want supabase", backendName(cfg))
	}
	if cfg.VectorSize != rag.DefaultVectorSize {
		t.Errorf("vector size = %d, want %d", cfg.VectorSize, rag.DefaultVectorSize)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_INT", "12")
	t.Setenv("LEGALRAG_TEST_BAD_INT", "twelve")
	t.Setenv("LEGALRAG_TEST_DURATION", "45s")
	t.Setenv("LEGALRAG_TEST_BAD_DURATION", "-1s")
	t.Setenv("LEGALRAG_TEST_BOOL", "1")
	t.Setenv("LEGALRAG_TEST_FLOAT", "2.5")

	if got := getEnvInt("LEGALRAG_TEST_INT", 3); got != 12 {
		t.Errorf("getEnvInt = %d", got)
	}
	if got := getEnvInt("LEGALRAG_TEST_BAD_INT", 3); got != 3 {
		t.Errorf("getEnvInt(bad) = %d", got)
	}
	if got := getEnvDuration("LEGALRAG_TEST_DURATION", time.Minute); got != 45*time.Second {
		t.Errorf("getEnvDuration = %v", got)
	}
	if got := getEnvDuration("LEGALRAG_TEST_BAD_DURATION", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration(bad) = %v", got)
	}
	if got := getEnvFloat("LEGALRAG_TEST_FLOAT", 0); got != 2.5 {
		t.Errorf("getEnvFloat = %v", got)
	}
	if got := getEnvFloat("LEGALRAG_TEST_INT_UNSET", 10); got != 10 {
		t.Errorf("getEnvFloat(unset) = %v", got)
	}
	if !getEnvBool("LEGALRAG_TEST_BOOL") {
		t.Error("getEnvBool = false")
	}
	if got := getEnvOrDefault("LEGALRAG_TEST_UNSET", "x"); got != "x" {
		t.Errorf("getEnvOrDefault = %q", got)
	}
}
