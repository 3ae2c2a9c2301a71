package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mgaillard/stratus"
)

// initClient builds the provider client from the persistent flags and
// the credentials in the environment.
func initClient(ctx context.Context) (*stratus.Stratus, error) {
	cfg, err := stratus.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	opts := stratus.InitOptions{
		OpenAI: viper.GetBool("openai"),
		Groq:   viper.GetBool("groq"),
		Gemini: viper.GetBool("gemini"),
		Claude: viper.GetBool("claude"),
		Model:  viper.GetString("model"),
	}
	switch {
	case opts.OpenAI:
		opts.APIKey = cfg.OpenAIAPIKey
	case opts.Groq:
		opts.APIKey = cfg.GroqAPIKey
	case opts.Gemini:
		opts.APIKey = cfg.GeminiAPIKey
	case opts.Claude:
		opts.APIKey = cfg.AnthropicAPIKey
	}

	return stratus.Init(ctx, opts)
}

// readImage loads and validates a chart image file.
func readImage(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		// supported
	default:
		return nil, fmt.Errorf("unsupported image type %q, want .png, .jpg or .jpeg", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image file %q is empty", path)
	}
	return data, nil
}

// archiveRun saves a completed run when a database path is configured.
func archiveRun(ctx context.Context, run *stratus.Run) error {
	dbPath := viper.GetString("db")
	if dbPath == "" {
		return nil
	}
	db, err := stratus.NewDB(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("opening run archive: %w", err)
	}
	defer db.Close()

	if _, err := db.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("archiving run: %w", err)
	}
	return nil
}
