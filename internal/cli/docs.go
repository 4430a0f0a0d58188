package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/model"
	"github.com/scriptorium/scriptor/internal/store"
)

var (
	docsLimit   int
	docsTimeout time.Duration
)

// docsCmd represents the docs command
var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the document store",
	Long: `Manage generated passages saved in the local document store
(~/.scriptor/documents.db).

Search is semantic when the configured provider supports embeddings,
and falls back to keyword matching otherwise.`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, cleanup, err := docsStore()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), docsTimeout)
		defer cancel()

		summaries, err := s.List(ctx)
		if err != nil {
			return err
		}
		if cfg.Output.JSON {
			return printJSON(summaries)
		}
		if len(summaries) == 0 {
			fmt.Println("No documents stored.")
			return nil
		}
		printSummaries(summaries, false)
		return nil
	},
}

var docsShowCmd = &cobra.Command{
	Use:   "show <title-or-id>",
	Short: "Show a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, cleanup, err := docsStore()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), docsTimeout)
		defer cancel()

		doc, err := s.LoadByTitle(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			doc, err = s.Load(ctx, args[0])
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no document with title or id %q", args[0])
		}
		if err != nil {
			return err
		}

		if cfg.Output.JSON {
			return printJSON(doc)
		}
		fmt.Printf("%s (%d words, saved %s)\n\n", doc.Title, doc.WordCount, doc.UpdatedAt.Format("2006-01-02"))
		fmt.Println(doc.Content)
		if len(doc.Citations) > 0 {
			fmt.Println()
			printCitations(doc.Citations)
		}
		return nil
	},
}

var docsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, cleanup, err := docsStore()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), docsTimeout)
		defer cancel()

		results, err := s.Search(ctx, args[0], docsLimit)
		if err != nil {
			return err
		}
		if cfg.Output.JSON {
			return printJSON(results)
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		printSummaries(results, true)
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, cleanup, err := docsStore()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(context.Background(), docsTimeout)
		defer cancel()

		if err := s.Delete(ctx, args[0]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no document with id %q", args[0])
			}
			return err
		}
		fmt.Printf("✓ Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsSearchCmd)
	docsCmd.AddCommand(docsDeleteCmd)

	docsCmd.PersistentFlags().DurationVar(&docsTimeout, "timeout", 30*time.Second, "store operation timeout")
	docsSearchCmd.Flags().IntVar(&docsLimit, "limit", 5, "maximum number of results")
}

// docsStore opens the store for a docs subcommand. The provider is
// optional here: listing and keyword search work without one.
func docsStore() (*store.Store, *model.Config, func(), error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	var provider llm.Provider
	if cfg.LLM.Provider != "" {
		if err := resolveAPIKey(cfg); err == nil {
			provider, _ = llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.Store.EmbeddingModel))
		}
	}

	s, err := openStore(cfg, provider)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, cfg, func() { _ = s.Close() }, nil
}

func printSummaries(summaries []model.DocumentSummary, withScore bool) {
	for _, d := range summaries {
		if withScore && d.Score != 0 {
			fmt.Printf("%-36s  %s (%d words, score %.3f)\n", d.ID, d.Title, d.WordCount, d.Score)
		} else {
			fmt.Printf("%-36s  %s (%d words)\n", d.ID, d.Title, d.WordCount)
		}
		if d.Summary != "" {
			fmt.Printf("    %s\n", d.Summary)
		}
	}
}
