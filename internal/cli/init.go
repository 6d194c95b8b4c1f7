package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize inkwell storage",
		Long:  "Write a default config.yaml if none exists, then create the data directory and storage backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wrote, err := writeConfigIfMissing(a.configPath, a.cfg, a.dataDir != "")
			if err != nil {
				return sysError("write config: %w", err)
			}

			arch, err := a.open()
			if err != nil {
				return err
			}
			if err := arch.Detach(); err != nil {
				return sysError("finalize storage: %w", err)
			}

			if a.jsonMode {
				return printJSON(cmd, map[string]any{
					"config":         a.configPath,
					"config_written": wrote,
					"backend":        a.cfg.Backend,
					"data_dir":       a.cfg.DataDir,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inkwell initialized (backend %s, data %s)\n", a.cfg.Backend, a.cfg.DataDir)
			return nil
		},
	}
}
