// Command normalizer maps tenant-specific codes in FHIR resources onto
// canonical concepts using the concept normalization registry.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gofhir/normalizer/config"
	"github.com/gofhir/normalizer/pkg/logger"
	"github.com/gofhir/normalizer/server"
)

const version = "0.1.0"

// errIssues makes the process exit non-zero without printing an error.
var errIssues = errors.New("normalization reported errors")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errIssues) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// globals are the flags shared by every subcommand.
type globals struct {
	envFile  string
	profiles []string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:           "normalizer",
		Short:         "Concept normalization for FHIR resources",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "optional dotenv file")
	rootCmd.PersistentFlags().StringArrayVar(&g.profiles, "binding", nil, "element=profileURL value-set binding (repeatable)")

	rootCmd.AddCommand(serveCmd(g))
	rootCmd.AddCommand(normalizeCmd(g))
	rootCmd.AddCommand(valueSetCmd(g))
	rootCmd.AddCommand(manifestCmd(g))
	return rootCmd
}

// setup loads the configuration and builds the stack.
func (g *globals) setup(ctx context.Context) (*config.Config, *app, zerolog.Logger, error) {
	cfg, err := config.LoadFile(g.envFile)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	log := logger.ForEnv(cfg.Env, cfg.LogLevel)
	logger.SetDefault(log)

	a, err := newApp(ctx, cfg, g.profiles, log)
	if err != nil {
		return nil, nil, log, err
	}
	return cfg, a, log, nil
}

func serveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, a, log, err := g.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			// warm the registry; a failure leaves it degraded and is retried lazily
			if err := a.registry.Reload(cmd.Context()); err != nil {
				log.Warn().Err(err).Msg("initial registry load failed")
			}

			srv := server.New(a.engine, a.registry, a.workers, log)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(":" + cfg.Port)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			log.Info().Msg("shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}
}

func normalizeCmd(g *globals) *cobra.Command {
	var (
		tenant string
		output string
		force  string
	)
	cmd := &cobra.Command{
		Use:   "normalize <file>...",
		Short: "Normalize FHIR resources from files or stdin (-)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forceAt, err := parseForce(force)
			if err != nil {
				return err
			}
			format, err := parseFormat(output)
			if err != nil {
				return err
			}

			_, a, _, err := g.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			inputs, err := readInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			outs := normalizeInputs(cmd.Context(), a.engine, a.workers, tenant, forceAt, inputs)
			if err := writeOutputs(cmd.OutOrStdout(), format, outs); err != nil {
				return err
			}
			for _, o := range outs {
				if !o.ok() {
					return errIssues
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant whose concept maps apply")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json")
	cmd.Flags().StringVar(&force, "force", "", "reload the registry if it was loaded before this RFC 3339 time")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func valueSetCmd(g *globals) *cobra.Command {
	var element, profile string
	cmd := &cobra.Command{
		Use:   "valueset",
		Short: "Print the codes of the value set bound to an element and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, _, err := g.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			vs, err := a.registry.RequiredValueSet(cmd.Context(), element, profile, nil)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), vs)
		},
	}
	cmd.Flags().StringVar(&element, "element", "", "data element, e.g. Condition.code")
	cmd.Flags().StringVar(&profile, "profile", "", "profile URL")
	_ = cmd.MarkFlagRequired("element")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func manifestCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "List the registry manifest entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, _, err := g.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.registry.Reload(cmd.Context()); err != nil {
				return err
			}
			return writeManifest(cmd.OutOrStdout(), a.registry.Entries(cmd.Context()))
		},
	}
}
