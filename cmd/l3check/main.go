package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/l3check/pkg/config"
	"github.com/cuemby/l3check/pkg/dispatcher"
	"github.com/cuemby/l3check/pkg/hostnet"
	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/runtime"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "l3check",
	Short: "l3check - L3 agent router health check",
	Long: `l3check compares the routers and floating IPs declared by the Neutron
control plane with the router namespaces that actually exist on the L3 agent
hosts, and reports unscheduled, inactive and down routers together with
floating IPs missing from their router's gateway interface.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"l3check version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log in JSON format")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig loads the configuration file and environment, applies the
// persistent flags and initializes logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
		Output:     os.Stderr,
	})

	return cfg, nil
}

// applyDispatchFlags applies the flags shared by check and serve
func applyDispatchFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("local") {
		cfg.Dispatch.Local, _ = cmd.Flags().GetBool("local")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Dispatch.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("filter") {
		cfg.Containerd.Filter, _ = cmd.Flags().GetString("filter")
	}
}

func addDispatchFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("local", false, "Inspect this host in-process instead of agent containers")
	cmd.Flags().Int("workers", 0, "Maximum concurrent context inspections (0 = one per context)")
	cmd.Flags().String("filter", "", "Substring selecting agent container IDs")
}

// newDispatcher builds the dispatcher over the configured provider. The
// returned function releases the provider.
func newDispatcher(cfg *config.Config) (*dispatcher.Dispatcher, func(), error) {
	if cfg.Dispatch.Local {
		host := hostnet.NewNetlinkHost(cfg.Inspect.NetnsDir)
		provider := runtime.NewLocalProvider(host, cfg.Dispatch.LocalName)
		return dispatcher.NewDispatcher(provider, cfg.DispatcherConfig()), func() {}, nil
	}

	provider, err := runtime.NewContainerdProvider(cfg.ContainerdProviderConfig())
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := provider.Close(); err != nil {
			log.Logger.Warn().Err(err).Msg("failed to close containerd client")
		}
	}
	return dispatcher.NewDispatcher(provider, cfg.DispatcherConfig()), release, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
