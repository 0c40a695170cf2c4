package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"crud-benchmark/internal/results"
)

func reduceCmd(global *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "reduce <raw.json>...",
		Short: "Reduce raw sample files to one median file.",
		Long:  "Reduce pools the samples of every given file and writes the median per span. Without --output the name is derived from the first file.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := global.logger()
			if err != nil {
				return err
			}
			var pooled []results.Sample
			for _, path := range args {
				samples, err := results.ReadSamples(path)
				if err != nil {
					return err
				}
				pooled = append(pooled, samples...)
			}
			if output == "" {
				output = medianPath(args[0])
			}
			if err := results.WriteJSON(output, results.Reduce(pooled)); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			logger.WithField("file", output).WithField("samples", len(pooled)).Info("medians written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "median file to write")
	return cmd
}

// medianPath maps insert_raw.json and insert.json to insert_med.json.
func medianPath(raw string) string {
	base := strings.TrimSuffix(raw, ".json")
	base = strings.TrimSuffix(base, "_raw")
	return base + "_med.json"
}
