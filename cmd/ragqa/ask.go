package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a question from the indexed page",
	Long: `Retrieve the closest windows for QUESTION and generate an answer from them.

Examples:
  ragqa ask "Como funciona a Hotmart?"
  ragqa ask "What does the platform charge?" --top-k 5`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "Windows to retrieve (defaults to retrieval.top_k)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.answer.AskTopK(ctx, args[0], askTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "answer: %s\n", res.Answer)
	fmt.Fprintf(out, "\ncontext_used (%d hits):\n%s\n", len(res.Hits), res.ContextUsed)
	return nil
}
