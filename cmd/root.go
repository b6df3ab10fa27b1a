package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tryon",
		Short: "Virtual try-on provider orchestration service",
		Long: `Tryon is the AI orchestration core of the Diva Haus storefront.

It forwards an uploaded photo and a product's garment image to one of
several interchangeable image-generation backends, with ordered fallback
when the preferred backend is unavailable or misconfigured.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProvidersCmd())

	return cmd
}
