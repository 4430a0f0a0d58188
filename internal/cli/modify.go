package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scriptorium/scriptor/internal/cag"
	"github.com/scriptorium/scriptor/internal/model"
)

var (
	modInstruction string
	modTolerance   float64
	modOccurrence  int
	modHint        string
	modOutput      string
	modWrite       bool
	modProvider    string
	modModel       string
	modTimeout     time.Duration
)

// modifyCmd represents the modify command
var modifyCmd = &cobra.Command{
	Use:   "modify <file> <query>",
	Short: "Rewrite one passage of a document, preserving the rest",
	Long: `Modify locates the passage matching <query> inside the file, rewrites
it per --instruction, and splices the replacement back in. Everything
outside the located span is preserved byte for byte.

The query is matched exactly first; a whitespace-insensitive pass and a
model-assisted pass follow, and any model suggestion is confirmed
literally against the document before it is used. When the query
matches more than once, the first occurrence is modified unless
--occurrence or --hint says otherwise.

Example:
  scriptor modify draft.txt "old mat" -i "make it more vivid"
  scriptor modify draft.txt "red fish" -i "make it blue" --occurrence 2
  scriptor modify draft.txt "creaked" -i "use a quieter verb" --hint "old door"
  scriptor modify draft.txt "old mat" -i "make it more vivid" --write`,
	Args: cobra.ExactArgs(2),
	RunE: runModify,
}

func init() {
	rootCmd.AddCommand(modifyCmd)

	modifyCmd.Flags().StringVarP(&modInstruction, "instruction", "i", "", "how to rewrite the located passage (required)")
	modifyCmd.Flags().Float64Var(&modTolerance, "tolerance", 0, "allowed word-count variation (default 0.2 = ±20%)")
	modifyCmd.Flags().IntVar(&modOccurrence, "occurrence", 0, "modify the nth exact match (1-based)")
	modifyCmd.Flags().StringVar(&modHint, "hint", "", "disambiguate by nearby text")
	modifyCmd.Flags().StringVarP(&modOutput, "output", "o", "", "write the modified document to this path (default: stdout)")
	modifyCmd.Flags().BoolVar(&modWrite, "write", false, "overwrite the input file in place")
	modifyCmd.Flags().StringVar(&modProvider, "provider", "", "LLM provider (openai, anthropic, ollama)")
	modifyCmd.Flags().StringVar(&modModel, "model", "", "LLM model name")
	modifyCmd.Flags().DurationVar(&modTimeout, "timeout", 2*time.Minute, "overall modification timeout")

	_ = modifyCmd.MarkFlagRequired("instruction")
}

func runModify(cmd *cobra.Command, args []string) error {
	path, query := args[0], args[1]

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if modProvider != "" {
		cfg.LLM.Provider = modProvider
	}
	if modModel != "" {
		cfg.LLM.Model = modModel
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), modTimeout)
	defer cancel()

	pipeline := cag.NewPipeline(provider, cfg.Generation)
	result, err := pipeline.Modify(ctx, cag.ModifyRequest{
		Document:    model.NewDocument(string(content)),
		Query:       query,
		Instruction: modInstruction,
		Tolerance:   modTolerance,
		Occurrence:  modOccurrence,
		ContextHint: modHint,
	})
	if err != nil {
		return fmt.Errorf("modify failed: %w", err)
	}

	printWarnings(result.Warnings)

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Located %q at bytes %d-%d\n", result.Locate.Text, result.Locate.Span.Start, result.Locate.Span.End)
		fmt.Fprintf(os.Stderr, "Replacement: %d words (target %d), %d attempt(s)\n\n",
			result.Rewrite.WordCount, result.Rewrite.TargetWords, result.Rewrite.Attempts)
	}

	if cfg.Output.JSON {
		return printJSON(result)
	}

	out := result.Splice.Document.Content
	switch {
	case modWrite:
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "✓ Updated %s\n", path)
	case modOutput != "":
		if err := os.WriteFile(modOutput, []byte(out), 0644); err != nil {
			return fmt.Errorf("write %s: %w", modOutput, err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", modOutput)
	default:
		fmt.Print(out)
	}
	return nil
}
