package cmd

import (
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/trainsync/trainsync/cmd/trainsync/cmd/auth"
	"github.com/trainsync/trainsync/cmd/trainsync/cmd/nav"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/client"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/config"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/logger"
	"github.com/trainsync/trainsync/cmd/trainsync/internal/prompt"
)

var (
	apiURL         string
	nonInteractive bool
	logLevel       string
	bearerToken    string
	storeKind      string
)

var rootCmd = &cobra.Command{
	Use:   "trainsync",
	Short: "TrainSync CLI - sessions and navigation for the TrainSync coaching platform",
	Long: `trainsync is the command-line client for TrainSync, the fitness coaching
platform for individuals, coaches and administrators. Use it to sign in, inspect
your session and open app locations with the same access rules as the web app.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(cmd.Context(), envconfig.OsLookuper())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Flags win over file and environment.
		flags := cmd.Flags()
		if flags.Changed("api") {
			settings.APIURL = apiURL
		}
		if flags.Changed("non-interactive") {
			settings.NonInteractive = nonInteractive
		}
		if flags.Changed("log-level") {
			settings.LogLevel = logLevel
		}
		if flags.Changed("token") {
			settings.Token = bearerToken
		}
		if flags.Changed("store") {
			settings.Store = storeKind
		}
		if err := settings.Validate(); err != nil {
			return err
		}

		log := logger.New(logger.Options{
			Level:  settings.LogLevel,
			Pretty: prompt.IsTerminal(os.Stderr),
		})

		provider := client.NewProvider(client.Options{
			APIURL:      settings.APIURL,
			Home:        settings.Home,
			Store:       settings.Store,
			Timeout:     settings.Timeout,
			Logger:      log,
			BearerToken: settings.Token,
		})

		cmd.SetContext(config.InjectConfig(cmd.Context(), &config.GlobalConfig{
			Settings:       settings,
			ClientProvider: provider,
		}))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg, ok := config.FromContext(cmd.Context()); ok {
			return cfg.ClientProvider.Close()
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", config.DefaultAPIURL, "TrainSync API base URL (also TRAINSYNC_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Disable interactive prompts (also TRAINSYNC_NON_INTERACTIVE=true)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Diagnostic log level: trace, debug, info, warn, error, off")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "Use this credential for the run without touching the stored session (also TRAINSYNC_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", client.StoreFile, "Credential store backend: file or sqlite (also TRAINSYNC_STORE)")

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(nav.OpenCmd)
	rootCmd.AddCommand(nav.RoutesCmd)
}
