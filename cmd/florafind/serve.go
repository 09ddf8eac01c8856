// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/florafind/internal/auth"
	"github.com/pdiddy/florafind/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FloraFind web app",
	Long: `Serve starts the FloraFind website and JSON API: plant search and
profiles, photo identification, accounts with password reset, and the premium
trial. Accounts are stored in the SQLite database at auth.database_path.

Password reset links are written to the log.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := auth.NewStore(appConfig.Auth.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening account store: %w", err)
	}
	defer store.Close()

	accounts := auth.NewService(store, appConfig.Auth, auth.LogMailer{Log: log}, log)

	agg, err := newAggregator(ctx)
	if err != nil {
		return err
	}

	srv, err := web.NewServer(appConfig.Server, web.Deps{
		Profiles: agg,
		Articles: newPubMed(),
		Accounts: accounts,
	}, log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
