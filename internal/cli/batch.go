package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scriptorium/scriptor/internal/prepare"
	"github.com/scriptorium/scriptor/internal/worker"
)

var (
	batchConcurrency int
	batchOutputDir   string
	batchTimeout     time.Duration
	batchProvider    string
	batchModel       string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Generate passages for multiple topics in parallel",
	Long: `Batch reads topics from a file, one per line, and generates a passage
for each with a configurable worker count. A line is either a bare
topic or "topic | source-url" to ground that topic in a web source.

Topics run as independent transactions: one failure never aborts the
batch, and each passage is written to its own file in the output
directory.

Example:
  scriptor batch topics.txt
  scriptor batch topics.txt --concurrency 8 --output-dir ./articles`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "./scriptor-articles", "output directory for generated passages")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchProvider, "provider", "", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&batchModel, "model", "", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if batchProvider != "" {
		cfg.LLM.Provider = batchProvider
	}
	if batchModel != "" {
		cfg.LLM.Model = batchModel
	}
	cfg.Concurrency.Workers = batchConcurrency

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Scriptor Batch Generation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", batchConcurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	preparer := prepare.NewPreparer(provider, newExtractor(cfg, provider), cfg.Generation)
	processor := worker.NewBatchProcessor(preparer, cfg.Concurrency.Workers)

	outcomes, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0

	for _, outcome := range outcomes {
		if outcome.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", outcome.Topic, outcome.Error)
			continue
		}

		path := filepath.Join(batchOutputDir, sanitizeFilename(outcome.Topic)+".md")
		if err := writeArticle(path, outcome); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", outcome.Topic, err)
			continue
		}

		successCount++
		for _, w := range outcome.Result.Warnings {
			fmt.Fprintf(os.Stderr, "⚠ %s: %s\n", outcome.Topic, w)
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%d words)\n", outcome.Topic, outcome.Result.WordCount)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d topics\n", len(outcomes))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// writeArticle renders one generated passage as markdown.
func writeArticle(path string, outcome *worker.PrepareOutcome) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", outcome.Topic)
	b.WriteString(outcome.Result.Text)
	b.WriteString("\n")
	if len(outcome.Result.Citations) > 0 {
		b.WriteString("\n## Citations\n\n")
		for _, c := range outcome.Result.Citations {
			fmt.Fprintf(&b, "[%d] %s - %s\n", c.Index, c.Label, c.URL)
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
