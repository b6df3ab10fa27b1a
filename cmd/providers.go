package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diva-haus/tryon/internal/catalog"
	"github.com/diva-haus/tryon/internal/config"
	"github.com/diva-haus/tryon/internal/storage"
	"github.com/diva-haus/tryon/internal/tryon"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List try-on providers and their availability",
		Long: `Lists every known try-on provider in fallback order and whether its
configuration makes it available. The first available provider in this
order handles requests (after the explicitly requested one).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Availability is a pure configuration check, so a throwaway
			// local gateway and empty catalog are fine here.
			store := storage.NewLocal(cfg.Storage.UploadsDir, cfg.Storage.BaseURL)
			selector := tryon.NewSelector(cfg, store, catalog.NewMemory())

			fmt.Printf("Preferred provider: %s\n\n", cfg.Provider)
			for _, p := range selector.Candidates() {
				status := "unavailable"
				if p.Available() {
					status = "available"
				}
				fmt.Printf("  %-12s %s\n", p.Name(), status)
			}
			return nil
		},
	}
}
