package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/inkwell/internal/registry"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

func newRegisterCmd(a *app) *cobra.Command {
	var id, docType string
	cmd := &cobra.Command{
		Use:   "register <slug>",
		Short: "Add or update a document in the registry",
		Long:  "Record the stable id of a document under its current slug. Without --id a new id is generated.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
				return sysError("create data dir: %w", err)
			}
			reg, err := registry.OpenFile(registryPath(a.cfg))
			if err != nil {
				return sysError("open registry: %w", err)
			}

			if id == "" {
				id = newDocumentID(a.cfg.GetIDPrefixes())
			}
			doc := types.Document{ID: id, Slug: args[0], Type: types.DocumentType(docType)}
			if err := reg.Put(doc); err != nil {
				return userError("register %s: %w", args[0], err)
			}

			if a.jsonMode {
				return printJSON(cmd, doc)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", doc.Slug, doc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "document id (default: generated)")
	cmd.Flags().StringVar(&docType, "type", "", "document type (post or page)")
	return cmd
}

// newDocumentID returns a fresh id carrying the first configured prefix.
func newDocumentID(prefixes []string) string {
	prefix := ""
	if len(prefixes) > 0 {
		prefix = prefixes[0]
	}
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return prefix + u.String()
}
