package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/larpforge/storyai/internal/config"
	"github.com/larpforge/storyai/internal/database"
	"github.com/larpforge/storyai/internal/repository"
	"github.com/larpforge/storyai/internal/service"
)

func LARPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "larp",
		Short: "Manage LARPs",
		Long:  "Create and list LARP productions",
	}

	cmd.AddCommand(LARPCreateCmd())
	cmd.AddCommand(LARPListCmd())

	return cmd
}

func LARPCreateCmd() *cobra.Command {
	var slug string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new LARP",
		Long:  "Create a new LARP production with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runLARPCreate(args[0], slug, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&slug, "slug", "", "URL slug for the LARP")

	return cmd
}

func runLARPCreate(name, slug, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	larpSvc := service.NewLARPService(repository.NewLARPRepository(pool))

	larp, err := larpSvc.Create(ctx, name, slug)
	if err != nil {
		return fmt.Errorf("failed to create larp: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         larp.ID,
			"name":       larp.Name,
			"slug":       larp.Slug,
			"created_at": larp.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("LARP created: %s (%s)\n", larp.Name, larp.ID)
	}

	return nil
}

func LARPListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all LARPs",
		Long:  "List all LARP productions in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runLARPList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runLARPList(outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	larpRepo := repository.NewLARPRepository(pool)
	larps, err := larpRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list larps: %w", err)
	}

	if outputFormat == "json" {
		items := make([]map[string]interface{}, 0, len(larps))
		for _, l := range larps {
			items = append(items, map[string]interface{}{
				"id":         l.ID,
				"name":       l.Name,
				"slug":       l.Slug,
				"created_at": l.CreatedAt,
			})
		}
		jsonBytes, _ := json.MarshalIndent(items, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		for _, l := range larps {
			fmt.Printf("%s  %s\n", l.ID, l.Name)
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.Connect(ctx, cfg.DatabaseURL)
}
