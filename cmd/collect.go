package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/ambientctx/internal/collector"
	"github.com/sells-group/ambientctx/internal/model"
)

var collectFormat string

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection pass and print the context",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCollector(ctx, cfg, collector.WithOnDataReady(func(uc model.UserContext) {
			zap.L().Debug("context ready",
				zap.String("pass_id", uc.PassID),
				zap.String("outcome", string(uc.Outcome.Status)),
			)
		}))
		if err != nil {
			return err
		}
		defer env.Close()

		uc := env.Collector.Collect(ctx)
		return writeContext(cmd.OutOrStdout(), uc, collectFormat)
	},
}

// writeContext renders uc as json or yaml. YAML keys match the JSON field names.
func writeContext(w io.Writer, uc model.UserContext, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(uc), "collect: encode json")
	case "yaml":
		data, err := json.Marshal(uc)
		if err != nil {
			return eris.Wrap(err, "collect: marshal context")
		}
		var generic map[string]any
		if err := json.Unmarshal(data, &generic); err != nil {
			return eris.Wrap(err, "collect: remarshal context")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return eris.Wrap(err, "collect: encode yaml")
		}
		return eris.Wrap(enc.Close(), "collect: flush yaml")
	default:
		return eris.Errorf("collect: unknown format %q", format)
	}
}

func init() {
	collectCmd.Flags().StringVar(&collectFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(collectCmd)
}
