package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/inkwell/internal/registry"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

func newCompactCmd(a *app) *cobra.Command {
	var all, dryRun bool
	cmd := &cobra.Command{
		Use:   "compact [key]",
		Short: "Convert deltas to bases so no delta run exceeds max_chain_length",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return userError("compact needs a key or --all")
			}
			arch, err := a.open()
			if err != nil {
				return err
			}
			defer arch.Detach()

			if len(args) == 0 {
				report, err := arch.CompactAll(dryRun)
				if err != nil {
					return sysError("compact: %w", err)
				}
				return printReport(cmd, a.jsonMode, "compact", report)
			}

			key := args[0]
			report, err := arch.Compact(key, dryRun)
			if err != nil {
				return historyError(key, err)
			}
			if a.jsonMode {
				return printJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			verb := "converted"
			if dryRun {
				verb = "would convert"
			}
			fmt.Fprintf(out, "%s: %s %d versions %v\n", key, verb, len(report.Converted), report.Converted)
			st := newStyles(out)
			for _, f := range report.Failed {
				fmt.Fprintln(out, st.warn.Render(fmt.Sprintf("  %s left as delta: %s", f.VersionID, f.Error)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "compact every stored history")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [key]",
		Short: "Reconstruct every version and report corrupt chains (default: all keys)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arch, err := a.open()
			if err != nil {
				return err
			}
			defer arch.Detach()

			keys := args
			if len(keys) == 0 {
				keys, err = arch.Keys()
				if err != nil {
					return sysError("list histories: %w", err)
				}
			}

			results := make(map[string][]types.VerifyIssue, len(keys))
			total := 0
			for _, key := range keys {
				issues, err := arch.Verify(key)
				if err != nil {
					issues = []types.VerifyIssue{{Err: err, Message: err.Error()}}
				}
				results[key] = issues
				total += len(issues)
			}

			if a.jsonMode {
				if err := printJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				st := newStyles(out)
				for _, key := range keys {
					issues := results[key]
					if len(issues) == 0 {
						fmt.Fprintf(out, "%s: ok\n", key)
						continue
					}
					for _, is := range issues {
						fmt.Fprintln(out, st.warn.Render(fmt.Sprintf("%s: %s: %s", key, is.VersionID, is.Message)))
					}
				}
			}
			if total > 0 {
				return userError("%d problems found", total)
			}
			return nil
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "One-off maintenance over every stored history",
	}

	var formatDryRun bool
	format := &cobra.Command{
		Use:   "format",
		Short: "Rewrite legacy full-content histories as delta chains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			arch, err := a.open()
			if err != nil {
				return err
			}
			defer arch.Detach()

			report, err := arch.MigrateFormat(formatDryRun)
			if err != nil {
				return sysError("migrate format: %w", err)
			}
			return printReport(cmd, a.jsonMode, "format", report)
		},
	}
	format.Flags().BoolVar(&formatDryRun, "dry-run", false, "report without writing")

	var idsDryRun bool
	ids := &cobra.Command{
		Use:   "ids",
		Short: "Copy slug-keyed histories to their document ids",
		Long: "For every history stored under a slug, look the slug up in the document registry and\n" +
			"write the chain under the document id. Slug records are kept; existing id records are never overwritten.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.OpenFile(registryPath(a.cfg))
			if err != nil {
				return sysError("open registry: %w", err)
			}
			arch, err := a.open()
			if err != nil {
				return err
			}
			defer arch.Detach()

			report, err := arch.MigrateKeysToIDs(reg, idsDryRun)
			if err != nil {
				return sysError("migrate ids: %w", err)
			}
			return printReport(cmd, a.jsonMode, "ids", report)
		},
	}
	ids.Flags().BoolVar(&idsDryRun, "dry-run", false, "report without writing")

	cmd.AddCommand(format, ids)
	return cmd
}

func registryPath(cfg types.Config) string {
	name := cfg.GetRegistryFile()
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.DataDir, name)
}
