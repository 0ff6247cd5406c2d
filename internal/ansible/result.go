package ansible

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/HerbHall/aciclean/internal/apic"
	"github.com/HerbHall/aciclean/internal/purge"
	"github.com/HerbHall/aciclean/pkg/models"
)

// Result is the JSON object Ansible reads back from the module.
type Result struct {
	Changed          bool     `json:"changed"`
	Failed           bool     `json:"failed,omitempty"`
	Msg              string   `json:"msg,omitempty"`
	EndpointsDeleted []string `json:"endpoints_deleted"`
	EndpointsFound   []string `json:"endpoints_found,omitempty"`
	Errors           []string `json:"errors"`
	RunID            string   `json:"run_id,omitempty"`
}

// Fail builds a failed result carrying only a message.
func Fail(msg string) Result {
	return Result{Failed: true, Msg: msg, EndpointsDeleted: []string{}, Errors: []string{}}
}

// NewResult translates a purge outcome into module output. Any failed
// deletion fails the task while keeping the list of deleted endpoints.
// In check mode, changed reports whether a real run would delete anything.
func NewResult(r *models.PurgeReport, runErr error) Result {
	res := Result{EndpointsDeleted: []string{}, Errors: []string{}}
	if r != nil {
		res.RunID = r.RunID
		for _, dn := range r.Succeeded {
			res.EndpointsDeleted = append(res.EndpointsDeleted, dn.String())
		}
		for _, f := range r.Failed {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", f.DN, f.Detail))
		}
		if r.DryRun {
			for _, dn := range r.Attempted {
				res.EndpointsFound = append(res.EndpointsFound, dn.String())
			}
			res.Changed = len(r.Attempted) > 0
		} else {
			res.Changed = r.Changed()
		}
	}
	if runErr == nil {
		return res
	}

	res.Failed = true
	var (
		authErr  *apic.AuthError
		queryErr *apic.QueryError
		purgeErr *purge.PurgeError
	)
	switch {
	case errors.As(runErr, &authErr):
		res.Msg = "Login failed: " + stageDetail(authErr.StatusCode, authErr.Body, authErr.Err)
	case errors.As(runErr, &queryErr):
		res.Msg = "Failed to get endpoints: " + stageDetail(queryErr.StatusCode, queryErr.Body, queryErr.Err)
	case errors.As(runErr, &purgeErr):
		res.Msg = "Some deletions failed."
	default:
		res.Msg = runErr.Error()
	}
	return res
}

func stageDetail(status int, body string, err error) string {
	if err != nil {
		if status == 0 {
			return err.Error()
		}
		return fmt.Sprintf("%d - %v", status, err)
	}
	return fmt.Sprintf("%d - %s", status, body)
}

// Write emits res as the module's single JSON object.
func Write(w io.Writer, res Result) error {
	if err := json.NewEncoder(w).Encode(res); err != nil {
		return fmt.Errorf("encode module result: %w", err)
	}
	return nil
}
