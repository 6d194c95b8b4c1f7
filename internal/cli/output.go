package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// styles holds the output styles for one writer. The renderer picks the
// color profile of that writer, so piped output carries no escape codes.
type styles struct {
	title      lipgloss.Style
	muted      lipgloss.Style
	added      lipgloss.Style
	removed    lipgloss.Style
	context    lipgloss.Style
	hunkHeader lipgloss.Style
	warn       lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:      r.NewStyle().Bold(true),
		muted:      r.NewStyle().Foreground(lipgloss.Color("241")),
		added:      r.NewStyle().Foreground(lipgloss.Color("42")).TabWidth(lipgloss.NoTabConversion),
		removed:    r.NewStyle().Foreground(lipgloss.Color("196")).TabWidth(lipgloss.NoTabConversion),
		context:    r.NewStyle().TabWidth(lipgloss.NoTabConversion),
		hunkHeader: r.NewStyle().Foreground(lipgloss.Color("39")),
		warn:       r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return sysError("marshal JSON: %w", err)
	}
	return nil
}

// renderPatch styles each line of a unified diff by its prefix.
func (st styles) renderPatch(patch string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(patch, "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "@@"):
			b.WriteString(st.hunkHeader.Render(text))
		case strings.HasPrefix(text, "+"):
			b.WriteString(st.added.Render(text))
		case strings.HasPrefix(text, "-"):
			b.WriteString(st.removed.Render(text))
		default:
			b.WriteString(st.context.Render(text))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// printReport writes a maintenance report in text or JSON form.
func printReport(cmd *cobra.Command, jsonMode bool, title string, r types.MigrationReport) error {
	if jsonMode {
		return printJSON(cmd, r)
	}
	out := cmd.OutOrStdout()
	st := newStyles(out)
	suffix := ""
	if r.DryRun {
		suffix = " (dry run)"
	}
	fmt.Fprintln(out, st.title.Render(fmt.Sprintf("%s: migrated %d, skipped %d, failed %d%s", title, r.Migrated, r.Skipped, r.Failed, suffix)))
	for _, d := range r.Details {
		line := fmt.Sprintf("  %s: %s", d.Key, d.Status)
		switch {
		case d.TargetKey != "":
			line += " -> " + d.TargetKey
		case d.Reason != "":
			line += " (" + string(d.Reason) + ")"
		}
		if d.Entries > 0 {
			line += fmt.Sprintf(" [%d]", d.Entries)
		}
		if d.Error != "" {
			fmt.Fprintln(out, st.warn.Render(line+": "+d.Error))
			continue
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
