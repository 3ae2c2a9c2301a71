package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/mgaillard/stratus"
	"github.com/mgaillard/stratus/chart"
	"github.com/mgaillard/stratus/evaluate"
	"github.com/mgaillard/stratus/extract"
	"github.com/mgaillard/stratus/generate"
	"github.com/mgaillard/stratus/prompts"
)

var (
	genPromptFile    string
	genPromptText    string
	genSimple        bool
	genMaxIterations int
	genThreshold     int
)

var generateCmd = &cobra.Command{
	Use:   "generate <image>",
	Short: "Generate a description of a weather chart image",
	Long: `Generate produces an accessible description of the chart image. By
default the description is refined through the full evaluation loop;
--simple runs a single generation with no evaluation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if genPromptFile != "" && genPromptText != "" {
			return errors.New("--prompt-file and --prompt-text are mutually exclusive")
		}

		ctx := cmd.Context()
		log := clog.FromContext(ctx)

		img, err := readImage(args[0])
		if err != nil {
			return err
		}

		userPrompt := prompts.GeneratorUser
		switch {
		case genPromptFile != "":
			data, err := os.ReadFile(genPromptFile)
			if err != nil {
				return fmt.Errorf("reading prompt file: %w", err)
			}
			userPrompt = string(data)
		case genPromptText != "":
			userPrompt = genPromptText
		}

		client, err := initClient(ctx)
		if err != nil {
			return err
		}
		log.With("provider", client.Name()).With("model", client.Model()).
			Info("provider selected")

		gen, err := generate.New(client, prompts.GeneratorSystem, userPrompt)
		if err != nil {
			return err
		}

		input := chart.FromImage(img)

		if genSimple {
			desc, err := gen.Generate(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		}

		eval, err := evaluate.NewDefault(client)
		if err != nil {
			return err
		}
		orch, err := stratus.NewOrchestrator(gen, eval, genMaxIterations, genThreshold,
			stratus.WithExtractors(extract.NewPressureExtractor(), extract.NewTemperatureExtractor()))
		if err != nil {
			return err
		}

		outcome, err := orch.Run(ctx, input)
		if err != nil {
			return err
		}

		if err := archiveRun(ctx, &stratus.Run{
			ImagePath:   args[0],
			Provider:    client.Name(),
			Model:       client.Model(),
			Description: outcome.Description,
			Iterations:  outcome.Iterations,
			Passed:      outcome.Passed,
			CreatedAt:   time.Now().UTC(),
			Scores:      outcome.Evaluation,
		}); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), outcome.Description)
		if !outcome.Passed {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nquality caveats after %d iterations:\n", outcome.Iterations)
			for _, c := range outcome.Caveats {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", c)
			}
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&genPromptFile, "prompt-file", "", "read the generation prompt from a file")
	generateCmd.Flags().StringVar(&genPromptText, "prompt-text", "", "use this text as the generation prompt")
	generateCmd.Flags().BoolVar(&genSimple, "simple", false, "single generation, no evaluation loop")
	generateCmd.Flags().IntVar(&genMaxIterations, "max-iterations", stratus.DefaultMaxIterations, "iteration budget for the evaluation loop")
	generateCmd.Flags().IntVar(&genThreshold, "criteria-threshold", stratus.DefaultThreshold, "minimum per-criterion score to pass")

	rootCmd.AddCommand(generateCmd)
}
