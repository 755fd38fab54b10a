// Package cli is the command-line surface of cartbot.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cartbot/domain/entities"
	"cartbot/infrastructure/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ExitError carries the process exit code of a finished command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewRootCommand builds the root command. v supplies configuration and
// receives the flag bindings.
func NewRootCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   `cartbot "search <product> on <site>"`,
		Short: "Search a shop visually and add the first product to the cart",
		Long: `cartbot parses a free-text shopping command, opens the website in a browser,
finds the search field, submits the query, picks the first priced product on
the results page by OCR and clicks its "add to cart" control.

Exit codes:
  0   add to cart clicked
  1   configuration error (missing API keys, invalid settings)
  2   the command could not be turned into a website and a search
  3   search box, product or "add to cart" control not found
  4   browser or network failure
  64  usage error (missing command, unknown flag)`,
		Args:          usageArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, args[0])
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ExitError{Code: entities.ExitUsage, Err: err}
	})

	f := cmd.Flags()
	f.Bool("headless", false, "run the browser without a window")
	f.String("backend", config.BackendPlaywright, "browser backend: playwright or selenium")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	_ = v.BindPFlag(config.KeyHeadless, f.Lookup("headless"))
	_ = v.BindPFlag(config.KeyBrowserBackend, f.Lookup("backend"))
	_ = v.BindPFlag(config.KeyLogLevel, f.Lookup("log-level"))
	return cmd
}

// usageArgs marks argument validation failures as usage errors
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ExitError{Code: entities.ExitUsage, Err: err}
		}
		return nil
	}
}

// Execute runs the root command with the process arguments and returns the exit code
func Execute() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(config.New())
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return entities.ExitOK
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return entities.ExitConfiguration
}

func run(ctx context.Context, v *viper.Viper, command string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return &ExitError{Code: entities.ExitConfiguration, Err: err}
	}
	logger := newLogger(cfg.LogLevel)

	app, err := NewApp(cfg, logger)
	if err != nil {
		code := entities.ExitConfiguration
		if errors.Is(err, errBrowserStart) {
			code = entities.ExitRuntime
		}
		return &ExitError{Code: code, Err: err}
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warnf("Failed to close: %v", err)
		}
	}()

	outcome := app.Run(ctx, command)
	return outcomeError(outcome)
}

// outcomeError converts a finished run into the command's error
func outcomeError(o entities.Outcome) error {
	if o.Status == entities.StatusCompleted {
		return nil
	}
	err := o.Err
	if err == nil {
		err = fmt.Errorf("%s: %s", o.Failed, o.Detail)
	}
	return &ExitError{Code: o.ExitCode(), Err: err}
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
