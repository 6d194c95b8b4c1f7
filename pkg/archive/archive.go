// Package archive provides the public constructor for the document history
// archive while keeping the implementation internal.
package archive

import (
	"github.com/mesh-intelligence/inkwell/internal/archive"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// New creates a detached archive. Call Attach with a Config to open it.
//
// Example:
//
//	a := archive.New()
//	err := a.Attach(types.Config{
//	    Backend: types.BackendFile,
//	    DataDir: ".inkwell-db",
//	})
//	defer a.Detach()
//	entry, err := a.Append("hello-world", types.Snapshot{
//	    DocumentType: types.DocumentPost,
//	    Content:      "Hello",
//	})
func New() types.Archive {
	return archive.New()
}
