// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the florafind CLI. It looks up
// scientific articles on PubMed, builds AI plant profiles, identifies plants
// from photos and serves the FloraFind web app.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/florafind/internal/httputil"
	"github.com/pdiddy/florafind/internal/logger"
	"github.com/pdiddy/florafind/internal/profile"
	"github.com/pdiddy/florafind/internal/search"
	"github.com/pdiddy/florafind/internal/secrets"
	"github.com/pdiddy/florafind/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// appConfig and log are populated before any subcommand runs.
var (
	appConfig types.Config
	log       *logrus.Logger
)

// rootCmd is the base command for the florafind CLI.
var rootCmd = &cobra.Command{
	Use:   "florafind",
	Short: "Plant discovery backed by PubMed and generative AI",
	Long: `florafind finds scientific articles about plants on PubMed, aggregates
AI-generated plant profiles grounded in those articles, identifies plants from
photos and serves the FloraFind web app.

Credentials are read from florafind.yaml, FLORAFIND_* environment variables,
a .env file, or files in .secrets/ (gemini-api-key, ncbi-api-key, ncbi-email,
session-secret).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		if err := viper.Unmarshal(&appConfig); err != nil {
			return fmt.Errorf("decoding config: %w", err)
		}
		secrets.Apply(&appConfig, s)

		log, err = logger.New(appConfig.Log)
		return err
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./florafind.yaml or ~/.config/florafind/florafind.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func setDefaults() {
	viper.SetDefault("http.timeout", 30*time.Second)
	viper.SetDefault("http.user_agent", httputil.DefaultUserAgent)

	viper.SetDefault("pubmed.base_url", "")
	viper.SetDefault("pubmed.max_results", search.DefaultMaxResults)
	viper.SetDefault("pubmed.tool", "florafind")
	viper.SetDefault("pubmed.email", "")
	viper.SetDefault("pubmed.api_key", "")

	viper.SetDefault("ai.model", "")
	viper.SetDefault("ai.image_model", "")
	viper.SetDefault("ai.api_key", "")

	viper.SetDefault("auth.database_path", filepath.Join("data", "florafind.db"))
	viper.SetDefault("auth.session_secret", "")
	viper.SetDefault("auth.session_ttl", 24*time.Hour)
	viper.SetDefault("auth.reset_ttl", time.Hour)
	viper.SetDefault("auth.base_url", "http://localhost:8080")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 2*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 15*time.Second)
	viper.SetDefault("server.rate_limit", 20)
	viper.SetDefault("server.secure_cookies", false)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
}

func initConfig() {
	setDefaults()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("florafind")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "florafind"))
		}
	}

	viper.SetEnvPrefix("FLORAFIND")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newPubMed builds the article searcher from appConfig.
func newPubMed(opts ...search.Option) *search.PubMedClient {
	if log != nil {
		opts = append([]search.Option{search.WithLogger(log)}, opts...)
	}
	return search.NewPubMedClient(httputil.NewClient(appConfig.HTTP), appConfig.PubMed, opts...)
}

// newAggregator wires the Gemini model and PubMed into a profile aggregator.
// Gemini calls share the configured HTTP timeout and User-Agent.
func newAggregator(ctx context.Context, opts ...profile.GenAIOption) (*profile.Aggregator, error) {
	opts = append([]profile.GenAIOption{profile.WithHTTPClient(httputil.NewClient(appConfig.HTTP))}, opts...)
	model, err := profile.NewGenAIModel(ctx, appConfig.AI, opts...)
	if err != nil {
		return nil, err
	}
	return profile.NewAggregator(model, newPubMed(), appConfig.PubMed.MaxResults, log), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
