package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/l3check/pkg/check"
	"github.com/cuemby/l3check/pkg/log"
	"github.com/cuemby/l3check/pkg/metrics"
	"github.com/cuemby/l3check/pkg/neutron"
)

var errCheckFailed = errors.New("check failed")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one check and print the results",
	Long: `Run one check against the control plane and every L3 agent, then print
a status line followed by one metric line per health counter.

Examples:
  # Check all agent containers on this host
  l3check check -c /etc/l3check/l3check.yaml

  # Check router namespaces of this host directly
  l3check check --local

  # Print the full run summary as JSON
  l3check check --json`,
	RunE: runCheck,
}

func init() {
	addDispatchFlags(checkCmd)
	checkCmd.Flags().Bool("json", false, "Print the run summary as JSON instead of status lines")
	checkCmd.Flags().String("textfile", "", "Also write Prometheus metrics to this node exporter textfile")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyDispatchFlags(cmd, cfg)
	if cmd.Flags().Changed("textfile") {
		cfg.Output.Textfile, _ = cmd.Flags().GetString("textfile")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := neutron.NewClient(cfg.NeutronClientConfig())
	if err != nil {
		return err
	}
	d, release, err := newDispatcher(cfg)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := signalContext()
	defer cancel()

	summary, runErr := check.NewChecker(client, d).Run(ctx)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	} else if err := metrics.WriteStatus(os.Stdout, summary); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}

	if cfg.Output.Textfile != "" {
		metrics.Record(summary)
		if err := metrics.WriteTextfile(cfg.Output.Textfile); err != nil {
			log.Logger.Error().Err(err).Str("path", cfg.Output.Textfile).Msg("failed to write textfile")
		}
	}

	if runErr != nil {
		return errCheckFailed
	}
	return nil
}
