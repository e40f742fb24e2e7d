package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"retailstore/backend/internal/config"
	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/obs"
	"retailstore/backend/internal/receipts"
	"retailstore/backend/internal/service"
	"retailstore/backend/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		receiptDir string
		noSeed     bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:          "storecli",
		Short:        "Interactive store management menu",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("receipt-dir") {
				cfg.ReceiptDir = receiptDir
			}
			pricingCfg, err := cfg.Pricing()
			if err != nil {
				return err
			}

			logger := obs.NewLogger("console", logLevel)
			st := store.New(pricingCfg, store.WithLogger(logger))
			if !noSeed {
				if err := store.Seed(st, st.Now()); err != nil {
					return fmt.Errorf("seed sample data: %w", err)
				}
			}
			svc := service.New(st, receipts.NewFileArchive(cfg.ReceiptDir, logger), service.WithLogger(logger))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = service.WithActor(ctx, domain.Actor{Username: "console", Role: domain.RoleManager})

			return newMenu(svc, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&receiptDir, "receipt-dir", "receipts", "directory receipts are archived to")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "start with an empty store instead of the sample data")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level")
	cmd.SetContext(context.Background())
	return cmd
}
