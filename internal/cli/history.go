package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/inkwell/internal/delta"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

func newAppendCmd(a *app) *cobra.Command {
	var (
		file    string
		docType string
		summary string
		slug    string
		id      string
	)
	cmd := &cobra.Command{
		Use:   "append <key>",
		Short: "Store a new version of a document",
		Long:  "Read the full content of the new version from --file or stdin and append it to the document's history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			content, err := readContent(cmd, file)
			if err != nil {
				return err
			}

			arch, err := a.open()
			if err != nil {
				return err
			}
			defer arch.Detach()

			entry, err := arch.Append(key, types.Snapshot{
				ID:           id,
				DocumentType: types.DocumentType(docType),
				Slug:         slug,
				Summary:      summary,
				Content:      content,
			})
			if err != nil {
				return historyError(key, err)
			}

			if a.jsonMode {
				return printJSON(cmd, entryView(entry))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", entry.ID, entryKind(entry), humanize.Bytes(uint64(len(content))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read content from file instead of stdin")
	cmd.Flags().StringVar(&docType, "type", string(types.DocumentPost), "document type (post or page)")
	cmd.Flags().StringVarP(&summary, "summary", "m", "", "change summary")
	cmd.Flags().StringVar(&slug, "slug", "", "slug at time of write (default: key)")
	cmd.Flags().StringVar(&id, "id", "", "version id (default: generated)")
	return cmd
}

func readContent(cmd *cobra.Command, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", userError("read %s: %w", file, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", sysError("read stdin: %w", err)
	}
	return string(data), nil
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key> [version]",
		Short: "Print the content of a version (default: latest)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			arch, err := a.open()
			if err != nil {
				return err
			}
			defer arch.Detach()

			var id, content string
			if len(args) == 2 {
				id = args[1]
				content, err = arch.Version(key, id)
			} else {
				var entry types.VersionEntry
				entry, content, err = arch.Latest(key)
				id = entry.ID
			}
			if err != nil {
				return historyError(key, err)
			}

			if a.jsonMode {
				return printJSON(cmd, map[string]string{"key": key, "version_id": id, "content": content})
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
}

// versionView is the JSON form of a chain entry.
type versionView struct {
	ID           string             `json:"id"`
	Timestamp    int64              `json:"timestamp"`
	DocumentType types.DocumentType `json:"document_type,omitempty"`
	Slug         string             `json:"slug"`
	Summary      string             `json:"summary,omitempty"`
	IsBase       bool               `json:"is_base"`
	Size         int                `json:"size,omitempty"`
	Added        int                `json:"added,omitempty"`
	Removed      int                `json:"removed,omitempty"`
	PatchError   string             `json:"patch_error,omitempty"`
}

func entryView(e types.VersionEntry) versionView {
	v := versionView{
		ID:           e.ID,
		Timestamp:    e.Timestamp,
		DocumentType: e.DocumentType,
		Slug:         e.Slug,
		Summary:      e.Summary,
		IsBase:       e.IsBase,
	}
	switch {
	case e.FullContent != nil:
		v.Size = len(*e.FullContent)
	case e.Delta != nil:
		added, removed, err := delta.Stat(*e.Delta)
		if err != nil {
			v.PatchError = err.Error()
			break
		}
		v.Added, v.Removed = added, removed
	}
	return v
}

func entryKind(e types.VersionEntry) string {
	if e.IsBase {
		return "base"
	}
	return "delta"
}

func newLogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "log <key>",
		Short: "List the versions of a document, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			arch, err := a.open()
			if err != nil {
				return err
			}
			defer arch.Detach()

			c, err := arch.History(key)
			if err != nil {
				return historyError(key, err)
			}

			views := make([]versionView, len(c))
			for i, e := range c {
				views[i] = entryView(e)
			}
			if a.jsonMode {
				return printJSON(cmd, views)
			}

			rows := make([][]string, 0, len(views))
			for _, v := range views {
				change := humanize.Bytes(uint64(v.Size))
				kind := "base"
				switch {
				case v.IsBase:
				case v.PatchError != "":
					kind = "delta"
					change = "unreadable patch"
				default:
					kind = "delta"
					change = fmt.Sprintf("+%d -%d", v.Added, v.Removed)
				}
				rows = append(rows, []string{
					v.ID,
					humanize.Time(time.UnixMilli(v.Timestamp)),
					kind,
					change,
					v.Summary,
				})
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("VERSION", "WHEN", "KIND", "CHANGE", "SUMMARY").
				Rows(rows...)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.String())
			fmt.Fprintln(out, newStyles(out).muted.Render(fmt.Sprintf("%d versions, %d deltas since last base", len(c), c.HeadRun())))
			return nil
		},
	}
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <key> <from> [to]",
		Short: "Show the changes between two versions (default to: latest)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, from := args[0], args[1]
			arch, err := a.open()
			if err != nil {
				return err
			}
			defer arch.Detach()

			oldContent, err := arch.Version(key, from)
			if err != nil {
				return historyError(key, err)
			}
			var to, newContent string
			if len(args) == 3 {
				to = args[2]
				newContent, err = arch.Version(key, to)
			} else {
				var entry types.VersionEntry
				entry, newContent, err = arch.Latest(key)
				to = entry.ID
			}
			if err != nil {
				return historyError(key, err)
			}

			p := delta.New(a.cfg.GetContextLines(), nil).Create(oldContent, newContent)
			if a.jsonMode {
				return printJSON(cmd, map[string]any{"key": key, "from": from, "to": to, "patch": p.Patch})
			}
			out := cmd.OutOrStdout()
			st := newStyles(out)
			fmt.Fprintln(out, st.title.Render(fmt.Sprintf("%s: %s -> %s", key, from, to)))
			if p.Patch == "" {
				fmt.Fprintln(out, st.muted.Render("no changes"))
				return nil
			}
			fmt.Fprint(out, st.renderPatch(p.Patch))
			return nil
		},
	}
}
