package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/mgaillard/stratus/chart"
	"github.com/mgaillard/stratus/evaluate"
)

var (
	evalDescription     string
	evalDescriptionFile string
	evalCriteria        string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <image>",
	Short: "Score an existing description against the quality criteria",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (evalDescription == "") == (evalDescriptionFile == "") {
			return errors.New("exactly one of --description and --description-file is required")
		}

		ctx := cmd.Context()
		log := clog.FromContext(ctx)

		img, err := readImage(args[0])
		if err != nil {
			return err
		}

		description := evalDescription
		if evalDescriptionFile != "" {
			data, err := os.ReadFile(evalDescriptionFile)
			if err != nil {
				return fmt.Errorf("reading description file: %w", err)
			}
			description = string(data)
		}

		criteria := evaluate.Criteria()
		if evalCriteria != "" {
			criteria = splitCriteria(evalCriteria)
		}

		client, err := initClient(ctx)
		if err != nil {
			return err
		}
		log.With("provider", client.Name()).With("model", client.Model()).
			Info("provider selected")

		eval, err := evaluate.New(client, criteria)
		if err != nil {
			return err
		}

		results, err := eval.Evaluate(ctx, description, chart.FromImage(img))
		if err != nil {
			return err
		}

		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d\n", r.Criterion, r.Score, evaluate.MaxScore)
			if reason := strings.TrimSpace(r.Reasoning); reason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", reason)
			}
		}
		return nil
	},
}

// splitCriteria parses a comma separated criteria list.
func splitCriteria(s string) []evaluate.Criterion {
	var out []evaluate.Criterion
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, evaluate.Criterion(p))
		}
	}
	return out
}

func init() {
	evaluateCmd.Flags().StringVar(&evalDescription, "description", "", "description text to evaluate")
	evaluateCmd.Flags().StringVar(&evalDescriptionFile, "description-file", "", "read the description from a file")
	evaluateCmd.Flags().StringVar(&evalCriteria, "criteria", "", "comma separated criteria (default: all)")

	rootCmd.AddCommand(evaluateCmd)
}
