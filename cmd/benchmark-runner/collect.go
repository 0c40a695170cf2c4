package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"crud-benchmark/internal/collect"
)

func collectCmd(global *globalFlags) *cobra.Command {
	var (
		endpoints []string
		runs      int
		output    string
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Call a running benchmark server repeatedly and write one median file per endpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := global.logger()
			if err != nil {
				return err
			}
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if runs <= 0 {
				runs = cfg.Benchmark.Runs
			}
			if output == "" {
				output = cfg.Benchmark.OutputDir
			}

			c := collect.New(cfg.Collect.BaseURL, cfg.Collect.Prefix, &http.Client{Timeout: cfg.Collect.Timeout}, logger)
			written := 0
			for _, endpoint := range endpoints {
				path, err := c.CollectToFile(cmd.Context(), endpoint, runs, output)
				if err != nil {
					logger.WithError(err).WithField("endpoint", endpoint).Error("collect failed")
					continue
				}
				logger.WithField("file", path).Info("medians written")
				written++
			}
			if written == 0 {
				return fmt.Errorf("collect: no median file written, all %d endpoints failed", len(endpoints))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&endpoints, "endpoint", collect.Endpoints, "server endpoints to collect")
	cmd.Flags().IntVar(&runs, "runs", 0, "calls per endpoint (overrides benchmark.runs)")
	cmd.Flags().StringVar(&output, "output-dir", "", "directory for median files (overrides benchmark.output_dir)")
	return cmd
}
