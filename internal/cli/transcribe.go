package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scriptorium/scriptor/internal/llm"
	"github.com/scriptorium/scriptor/internal/transcribe"
)

var (
	trOutput  string
	trTimeout time.Duration
)

// transcribeCmd represents the transcribe command
var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe an audio file to text",
	Long: fmt.Sprintf(`Transcribe converts an audio recording to text through the configured
provider's speech-to-text endpoint (OpenAI only).

The file is validated locally before anything is uploaded: supported
formats are %s, between %d bytes and %d MB.

Example:
  scriptor transcribe meeting.mp3
  scriptor transcribe interview.wav -o interview.txt`,
		strings.Join(transcribe.SupportedFormats(), ", "),
		transcribe.MinFileBytes, transcribe.MaxFileBytes>>20),
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().StringVarP(&trOutput, "output", "o", "", "write the transcript to this path (default: stdout)")
	transcribeCmd.Flags().DurationVar(&trTimeout, "timeout", 5*time.Minute, "transcription timeout")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	backend, ok := provider.(llm.Transcriber)
	if !ok {
		return fmt.Errorf("provider %q does not support transcription (use openai)", provider.Name())
	}

	ctx, cancel := context.WithTimeout(context.Background(), trTimeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Transcribing: %s\n\n", path)
	}

	result, err := transcribe.New(backend).Transcribe(ctx, path)
	if err != nil {
		return fmt.Errorf("transcribe failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ %d words from %s (%d bytes)\n\n", result.WordCount, result.Format, result.SizeBytes)
	}

	if cfg.Output.JSON {
		return printJSON(result)
	}

	if trOutput != "" {
		if err := os.WriteFile(trOutput, []byte(result.Text+"\n"), 0644); err != nil {
			return fmt.Errorf("write %s: %w", trOutput, err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", trOutput)
		return nil
	}
	fmt.Println(result.Text)
	return nil
}
