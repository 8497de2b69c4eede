package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/legalrag-go/internal/embedder"
	"github.com/54b3r/legalrag-go/internal/ingestion"
	"github.com/54b3r/legalrag-go/internal/logging"
	"github.com/54b3r/legalrag-go/internal/rag"
)

// NewIngestCmd constructs the `legalrag ingest` command, which loads legal
// documents into the configured vector store.
func NewIngestCmd() *cobra.Command {
	var files []string
	var urls []string
	var jurisdiction string
	var docType string
	var migrate bool
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest statutes, case law and other legal documents into the vector store",
		Long: `Load local files or fetch URLs, chunk them by sentence, embed the chunks
and upsert them into the vector store selected by VECTOR_STORE.

Each chunk is stored with source, jurisdiction, doc_type and chunk_index
metadata. Jurisdiction and doc type are inferred from the path or URL (for
example law.cornell.edu/uscode → us-federal statute) unless the flags
override them. Re-ingesting a source overwrites its chunks in place and
removes any chunks beyond its new length.

Document types: ` + strings.Join(ingestion.DocTypes, ", ") + `

Examples:
  legalrag ingest --migrate --file corpus/statutes/ca-civil-code-1942.txt
  legalrag ingest --url https://www.law.cornell.edu/uscode/text/42/3604
  legalrag ingest --jurisdiction us-ny --doc-type case_law --file opinions/smith-v-jones.txt`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			if len(files) == 0 && len(urls) == 0 {
				return fmt.Errorf("ingest: at least one --file or --url is required")
			}
			if cmd.Flags().Changed("doc-type") && !ingestion.ValidDocType(docType) {
				return fmt.Errorf("ingest: unknown --doc-type %q (want one of %s)",
					docType, strings.Join(ingestion.DocTypes, ", "))
			}
			if !cmd.Flags().Changed("chunk-size") {
				chunkSize = getEnvInt("INGEST_CHUNK_SIZE", chunkSize)
			}
			if !cmd.Flags().Changed("chunk-overlap") {
				chunkOverlap = getEnvInt("INGEST_CHUNK_OVERLAP", chunkOverlap)
			}

			vs, cfg, err := openVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer vs.Close()

			if migrate {
				sb, ok := vs.(*rag.SupabaseStore)
				if !ok {
					return fmt.Errorf("ingest: --migrate only applies to the %s vector store (got %s)",
						rag.BackendSupabase, backendName(cfg))
				}
				if err := sb.EnsureSchema(ctx); err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				log.Info("supabase schema ensured", slog.Int("vector_size", cfg.VectorSize))
			}

			emb, err := embedder.NewFromEnv(ctx, embedder.ForDocuments())
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embedder.Backend()))

			pipeline, err := ingestion.NewPipeline(emb, vs, &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			sources := buildSources(files, urls, jurisdiction, docType)
			log.Info("starting ingestion", slog.Int("sources", len(sources)))

			stats, err := pipeline.Ingest(ctx, sources, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			attrs := []any{slog.Int("sources", stats.Sources), slog.Int("chunks", stats.Chunks), slog.Int("pruned", stats.Pruned)}
			if c, ok := vs.(chunkCounter); ok {
				if total, err := c.Count(ctx); err == nil {
					attrs = append(attrs, slog.Int("store_total", total))
				}
			}
			log.Info("ingestion complete", attrs...)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ingested %d chunks from %d sources\n", stats.Chunks, stats.Sources)
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Local document to ingest (repeatable)")
	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Document URL to fetch and ingest (repeatable)")
	cmd.Flags().StringVarP(&jurisdiction, "jurisdiction", "j", "", "Jurisdiction label, e.g. us-federal, us-ca, uk (default: inferred)")
	cmd.Flags().StringVarP(&docType, "doc-type", "d", "", "Document type (default: inferred)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create the Supabase table, index and match function before ingesting")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Maximum characters per chunk (env INGEST_CHUNK_SIZE)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 100, "Characters of trailing context carried into the next chunk (env INGEST_CHUNK_OVERLAP)")

	return cmd
}

// chunkCounter is implemented by the Supabase and local stores.
type chunkCounter interface {
	Count(ctx context.Context) (int, error)
}

// buildSources turns the file and URL flags into pipeline sources. Empty
// overrides leave the inferred metadata in place.
func buildSources(files, urls []string, jurisdiction, docType string) []ingestion.Source {
	sources := make([]ingestion.Source, 0, len(files)+len(urls))
	for _, f := range files {
		sources = append(sources, ingestion.Source{Path: f, Jurisdiction: jurisdiction, DocType: docType})
	}
	for _, u := range urls {
		sources = append(sources, ingestion.Source{URL: u, Jurisdiction: jurisdiction, DocType: docType})
	}
	return sources
}
