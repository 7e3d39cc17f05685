package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/larpforge/storyai/internal/config"
	"github.com/larpforge/storyai/internal/domain"
	"github.com/larpforge/storyai/internal/openai"
	"github.com/larpforge/storyai/internal/pagination"
	"github.com/larpforge/storyai/internal/repository"
	"github.com/larpforge/storyai/internal/service"
)

func ReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-index knowledge units",
		Long:  "Run reindex passes synchronously, outside the background worker",
	}

	cmd.AddCommand(ReindexDocumentCmd())
	cmd.AddCommand(ReindexLARPCmd())

	return cmd
}

func ReindexDocumentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "document <id>",
		Short: "Re-index one lore document",
		Long:  "Re-chunk and re-embed one lore document, skipping unchanged chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindexDocument(args[0])
		},
	}
}

func runReindexDocument(documentID string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	ingestSvc, err := buildIngestService(pool)
	if err != nil {
		return err
	}

	outcome, err := ingestSvc.ReindexDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to reindex document: %w", err)
	}

	fmt.Printf("document %s: %s\n", documentID, outcome)
	return nil
}

func ReindexLARPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "larp <id>",
		Short: "Re-index all lore documents of a LARP",
		Long:  "Walk every lore document of a LARP and re-index the changed ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindexLARP(args[0])
		},
	}
}

func runReindexLARP(larpID string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	ingestSvc, err := buildIngestService(pool)
	if err != nil {
		return err
	}

	loreRepo := repository.NewLoreDocumentRepository(pool)

	var (
		cursor  *pagination.Cursor
		skipped int
		indexed int
	)
	for {
		page, err := loreRepo.ListByLARPWithCursor(ctx, larpID, cursor, 100)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		for _, doc := range page.Items {
			outcome, err := ingestSvc.ReindexDocument(ctx, doc.ID)
			if err != nil {
				return fmt.Errorf("failed to reindex document %s: %w", doc.ID, err)
			}
			fmt.Printf("document %s: %s\n", doc.ID, outcome)
			if outcome == domain.ReindexSkipped {
				skipped++
			} else {
				indexed++
			}
		}

		if !page.HasMore {
			break
		}
		cursor, err = pagination.DecodeCursor(page.NextCursor)
		if err != nil {
			return fmt.Errorf("invalid pagination cursor: %w", err)
		}
	}

	fmt.Printf("done: %d indexed, %d skipped\n", indexed, skipped)
	return nil
}

func buildIngestService(pool *pgxpool.Pool) (*service.IngestService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("STORYAI_OPENAI_API_KEY is required")
	}

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:       cfg.OpenAIAPIKey,
		EmbeddingRPS: cfg.EmbedRateLimit,
	})

	return service.NewIngestService(
		aiClient,
		repository.NewObjectEmbeddingRepository(pool),
		repository.NewLoreDocumentRepository(pool),
		repository.NewLoreChunkRepository(pool),
		repository.NewPgxTxRunner(pool),
		service.ChunkConfig{
			MaxTokens:     cfg.ChunkMaxTokens,
			OverlapTokens: cfg.ChunkOverlapTokens,
		},
	), nil
}
