package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mgaillard/stratus"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := viper.GetString("db")
		if dbPath == "" {
			return errors.New("--db is required for history")
		}

		ctx := cmd.Context()
		db, err := stratus.NewDB(ctx, dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.RecentRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no runs archived")
			return nil
		}

		for _, run := range runs {
			status := "passed"
			if !run.Passed {
				status = "exhausted"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d  %s  %s/%s  %s after %d iteration(s)\n",
				run.Id, run.CreatedAt.Format("2006-01-02 15:04"), run.Provider, run.Model,
				status, run.Iterations)
			fmt.Fprintf(cmd.OutOrStdout(), "    image: %s\n", run.ImagePath)
			for _, s := range run.Scores {
				fmt.Fprintf(cmd.OutOrStdout(), "    %s: %d\n", s.Criterion, s.Score)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "maximum number of runs to list")

	rootCmd.AddCommand(historyCmd)
}
