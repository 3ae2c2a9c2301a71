package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "stratus",
		Short: "Accessible weather chart descriptions via a generate-evaluate loop",
		Long: `Stratus generates natural-language descriptions of weather chart images
for blind and low-vision scientists. Descriptions are scored against
quality criteria by an evaluator model and refined through a bounded
feedback loop until they pass.`,
		SilenceUsage: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.stratus.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("openai", false, "use the OpenAI API")
	rootCmd.PersistentFlags().Bool("groq", false, "use the Groq API")
	rootCmd.PersistentFlags().Bool("gemini", false, "use the Gemini API")
	rootCmd.PersistentFlags().Bool("claude", false, "use the Anthropic API")
	rootCmd.PersistentFlags().String("model", "", "override the provider's default model")
	rootCmd.PersistentFlags().String("db", "", "path to the run archive database (disabled when empty)")

	for _, flag := range []string{"openai", "groq", "gemini", "claude", "model", "db"} {
		viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	}
}

func initConfig() {
	// A .env file is a convenience for local use; absence is fine.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".stratus")
		}
	}
	_ = viper.ReadInConfig()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
