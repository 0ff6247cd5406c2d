package purge

import (
	"fmt"
	"strings"

	"github.com/HerbHall/aciclean/pkg/models"
	"github.com/hashicorp/go-multierror"
)

// DeleteError describes one rejected deletion. It never aborts a batch;
// it is only surfaced through PurgeError.
type DeleteError struct {
	DN     models.DN
	Detail string
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("%s: %s", e.DN, e.Detail)
}

// PurgeError is returned when at least one deletion failed. The deletions
// that did succeed are kept so callers can tell partial from total failure.
type PurgeError struct {
	Succeeded []models.DN
	Failed    []models.OperationResult

	errs *multierror.Error
}

func newPurgeError(report *models.PurgeReport) *PurgeError {
	var errs *multierror.Error
	for _, f := range report.Failed {
		errs = multierror.Append(errs, &DeleteError{DN: f.DN, Detail: f.Detail})
	}
	errs.ErrorFormat = formatDeleteErrors
	return &PurgeError{
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		errs:      errs,
	}
}

func (e *PurgeError) Error() string {
	return e.errs.Error()
}

// Unwrap exposes every *DeleteError to errors.Is and errors.As.
func (e *PurgeError) Unwrap() []error {
	return e.errs.WrappedErrors()
}

// Partial reports whether some deletions succeeded despite the failures.
func (e *PurgeError) Partial() bool {
	return len(e.Succeeded) > 0
}

func formatDeleteErrors(errs []error) string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, "\t* "+err.Error())
	}
	return fmt.Sprintf("%d endpoint deletion(s) failed:\n%s", len(errs), strings.Join(lines, "\n"))
}
