package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"image4marketing/internal/infra"
	"image4marketing/internal/infra/credentials"
)

type keySaver interface {
	Save(ctx context.Context, provider, token, source string) error
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Getenv, openStore).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore connects to DATABASE_URL; the returned func releases the pool.
func openStore(ctx context.Context) (keySaver, func(), error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "geminikey").Logger()
	return credentials.NewStore(infra.NewSQLRunner(pool, logger)), pool.Close, nil
}

func newRootCmd(getenv func(string) string, open func(context.Context) (keySaver, func(), error)) *cobra.Command {
	var provider, key string
	cmd := &cobra.Command{
		Use:   "geminikey",
		Short: "Store a generation provider API key in the database",
		Long: `geminikey saves the API key of an image generation provider in the
integration_tokens table. The API reads it at startup when the matching
environment variable is empty. Without --key the environment value is stored.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, token, err := resolveKey(provider, key, getenv)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			store, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			return saveKey(ctx, cmd.OutOrStdout(), store, p, token)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", credentials.ProviderGemini, "provider to configure (gemini or qwen)")
	cmd.Flags().StringVar(&key, "key", "", "API key; defaults to the provider's environment variable")
	return cmd
}

func resolveKey(provider, key string, getenv func(string) string) (string, string, error) {
	p, err := credentials.Normalize(provider)
	if err != nil {
		return "", "", err
	}
	token := strings.TrimSpace(key)
	if token == "" {
		token = strings.TrimSpace(getenv(credentials.EnvVars[p]))
	}
	if token == "" {
		return "", "", fmt.Errorf("%s API key is required via --key or %s", p, credentials.EnvVars[p])
	}
	return p, token, nil
}

func saveKey(ctx context.Context, out io.Writer, store keySaver, provider, token string) error {
	if err := store.Save(ctx, provider, token, "cli"); err != nil {
		return fmt.Errorf("persist %s api key: %w", provider, err)
	}
	fmt.Fprintf(out, "%s API key stored\n", strings.ToUpper(provider))
	return nil
}
