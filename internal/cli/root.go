package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/stashbot/internal/app"
	"github.com/angelmondragon/stashbot/pkg/config"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Opener builds the wired services a command operates on.
type Opener func(ctx context.Context, opts *RootOptions, stderr io.Writer) (*app.App, error)

// NewRootCommand creates the stashctl command tree. A nil opener connects using
// the environment configuration.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = OpenFromEnv
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stashctl",
		Short: "Operate a stashbot storefront",
		Long:  "Operator tooling for the stashbot storefront: catalog, stash, wallets, stats and maintenance.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	env := &environment{opts: opts, open: open}
	cmd.AddCommand(NewProductCommand(env))
	cmd.AddCommand(NewStashCommand(env))
	cmd.AddCommand(NewWalletCommand(env))
	cmd.AddCommand(NewStatsCommand(env))
	cmd.AddCommand(NewTokenCommand(env))
	cmd.AddCommand(NewReconcileCommand(env))

	return cmd
}

// OpenFromEnv loads configuration the way the bot does and connects to storage.
func OpenFromEnv(ctx context.Context, opts *RootOptions, stderr io.Writer) (*app.App, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, WrapExitError(ExitCommandError, "load env file", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	level := logger.ParseLevel("warn")
	if opts.Verbose {
		level = logger.ParseLevel("debug")
	}
	logg := logger.New(logger.Options{ServiceName: "stashctl", Level: level, Output: stderr})
	application, err := app.New(ctx, cfg, logg, app.Options{})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "connect", err)
	}
	return application, nil
}

// environment is shared by every subcommand.
type environment struct {
	opts *RootOptions
	open Opener
}

// with opens the app, runs fn and closes the app again.
func (e *environment) with(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := &OutputFormatter{
		Format:    e.opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   e.opts.Verbose,
	}
	application, err := e.open(ctx, e.opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			out.VerboseLog("close: %v", closeErr)
		}
	}()
	return fn(ctx, application, out)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
