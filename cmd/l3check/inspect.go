package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/l3check/pkg/hostnet"
	"github.com/cuemby/l3check/pkg/inspector"
	"github.com/cuemby/l3check/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the router namespaces of this host",
	Long: `Read an inventory as JSON from stdin, inspect every router namespace of
the current host and write the inspection report as JSON to stdout.

This is the command the containerd provider executes inside each agent
container. Logs go to stderr.`,
	Hidden: true,
	RunE:   runInspect,
}

func init() {
	inspectCmd.Flags().String("context", "", "Name of the execution context reported back")
	inspectCmd.Flags().String("netns-dir", "", "Directory holding named network namespaces")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("netns-dir") {
		cfg.Inspect.NetnsDir, _ = cmd.Flags().GetString("netns-dir")
	}

	contextName, _ := cmd.Flags().GetString("context")
	if contextName == "" {
		contextName, _ = os.Hostname()
	}

	var inv types.Inventory
	if err := json.NewDecoder(os.Stdin).Decode(&inv); err != nil {
		return fmt.Errorf("failed to decode inventory: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	host := hostnet.NewNetlinkHost(cfg.Inspect.NetnsDir)
	report := inspector.NewInspector(host).Inspect(ctx, contextName, &inv)

	if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
