package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"bintly/internal/config"
	"bintly/internal/logging"
)

// isTTY checks whether both ends of the terminal are interactive.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func errorText(msg string) string {
	if !isTTY() {
		return "error: " + msg
	}
	return red("error: " + msg)
}

// rootOptions carries the persistent flag values. The flags are bound into
// viper, so precedence is flag > BINTLY_* env > config file > default.
type rootOptions struct {
	configPath string
	logLevel   string

	// resolvedLogLevel is set by loadConfig once file and env layers are
	// merged; logger falls back to the raw viper value before that.
	resolvedLogLevel string
}

// loadConfig resolves the runtime config honoring the persistent flags and
// the BINTLY_* environment.
func (o *rootOptions) loadConfig() (config.RuntimeConfig, error) {
	var opts []config.Option
	if path := viper.GetString("config"); path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	if level := viper.GetString("log_level"); level != "" {
		opts = append(opts, config.WithOverride(func(cfg *config.RuntimeConfig) {
			cfg.LogLevel = level
		}))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return cfg, err
	}
	o.resolvedLogLevel = cfg.LogLevel
	return cfg, nil
}

func (o *rootOptions) logger(component string) logging.Logger {
	raw := o.resolvedLogLevel
	if raw == "" {
		raw = viper.GetString("log_level")
	}
	return logging.NewComponentLoggerAt(component, logging.ParseLevel(raw))
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "bintly",
		Short: "Benchmark evaluation and Moltbook announcement orchestrator",
		Long: `bintly compares the Monolith and Swarm execution arms over a frozen task
benchmark, aggregates the run records into an immutable evaluation
artifact, and manages the single rate-limited Moltbook announcement with
bounded follow-up replies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.bintly/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	viper.SetEnvPrefix("BINTLY")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newAggregateCommand(opts),
		newPublishCommand(opts),
		newPollCommand(opts),
		newIngestCommand(opts),
		newPostCommand(opts),
		newHeartbeatCommand(opts),
		newServeCommand(opts),
	)
	return root
}
