package report

import (
	"fmt"
	"io"

	"github.com/HerbHall/aciclean/pkg/models"
)

// Console prints each deletion as it happens. It implements purge.Observer.
type Console struct {
	w io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) BeforeDelete(dn models.DN) {
	fmt.Fprintf(c.w, "Deleting: %s\n", dn)
}

func (c *Console) AfterDelete(r models.OperationResult) {
	if r.Success {
		fmt.Fprintln(c.w, "  deleted")
		return
	}
	fmt.Fprintf(c.w, "  failed: %s\n", r.Detail)
}

// Summary prints the closing line of a run.
func (c *Console) Summary(r *models.PurgeReport) {
	if r.DryRun {
		fmt.Fprintf(c.w, "Dry run: %d endpoint(s) in %s would be deleted.\n", len(r.Attempted), r.EPGDN)
		for _, dn := range r.Attempted {
			fmt.Fprintf(c.w, "  %s\n", dn)
		}
		return
	}
	if len(r.Attempted) == 0 {
		fmt.Fprintf(c.w, "No endpoints found in %s.\n", r.EPGDN)
		return
	}
	fmt.Fprintf(c.w, "Done: %d deleted, %d failed.\n", len(r.Succeeded), len(r.Failed))
}
