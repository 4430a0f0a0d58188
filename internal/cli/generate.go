package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scriptorium/scriptor/internal/prepare"
	"github.com/scriptorium/scriptor/internal/store"
)

var (
	genSource   string
	genTitle    string
	genSave     bool
	genProvider string
	genModel    string
	genTimeout  time.Duration
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a short cited passage about a topic",
	Long: `Generate produces a 150-200 word passage with structured citations.

With --source, the page is fetched, summarized, and used to ground the
generation; the source URL always appears among the citations. When the
source cannot be fetched, generation proceeds from model knowledge and
the result is marked ungrounded.

Example:
  scriptor generate "history of coffee"
  scriptor generate "goroutine scheduling" --source https://go.dev/doc/faq
  scriptor generate "history of coffee" --save --title "Coffee"`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genSource, "source", "", "URL to ground the generation in")
	generateCmd.Flags().StringVar(&genTitle, "title", "", "title under which to save the passage (defaults to the topic)")
	generateCmd.Flags().BoolVar(&genSave, "save", false, "save the passage to the document store")
	generateCmd.Flags().StringVar(&genProvider, "provider", "", "LLM provider (openai, anthropic, ollama)")
	generateCmd.Flags().StringVar(&genModel, "model", "", "LLM model name")
	generateCmd.Flags().DurationVar(&genTimeout, "timeout", 2*time.Minute, "overall generation timeout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := args[0]

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if genProvider != "" {
		cfg.LLM.Provider = genProvider
	}
	if genModel != "" {
		cfg.LLM.Model = genModel
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), genTimeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Generating: %s\n", topic)
		if genSource != "" {
			fmt.Fprintf(os.Stderr, "Source: %s\n", genSource)
		}
		fmt.Fprintln(os.Stderr)
	}

	preparer := prepare.NewPreparer(provider, newExtractor(cfg, provider), cfg.Generation)
	result, err := preparer.Prepare(ctx, prepare.PrepareRequest{
		Topic:     topic,
		SourceURL: genSource,
	})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}

	printWarnings(result.Warnings)

	if genSave {
		title := genTitle
		if title == "" {
			title = topic
		}
		s, err := openStore(cfg, provider)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		id, err := s.Save(ctx, &store.Document{
			Title:     title,
			Content:   result.Text,
			Citations: result.Citations,
			WordCount: result.WordCount,
			Grounded:  result.Grounded,
			SourceURL: result.SourceURL,
		})
		if err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Saved as %q (%s)\n\n", title, id)
	}

	if cfg.Output.JSON {
		return printJSON(result)
	}

	fmt.Println(result.Text)
	if len(result.Citations) > 0 {
		fmt.Println()
		printCitations(result.Citations)
	}
	return nil
}
