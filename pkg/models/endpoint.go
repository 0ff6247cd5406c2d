package models

import "time"

// DN is a distinguished name identifying a managed object in the APIC
// object tree. It is opaque once built and never parsed back into parts.
type DN string

func (d DN) String() string { return string(d) }

// Scope selects the endpoint group whose learned endpoints are purged.
type Scope struct {
	Tenant     string `json:"tenant" mapstructure:"tenant"`
	AppProfile string `json:"app_profile" mapstructure:"app_profile"`
	EPG        string `json:"epg" mapstructure:"epg"`
}

// OperationResult is the outcome of a single endpoint deletion.
type OperationResult struct {
	DN      DN     `json:"dn"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// PurgeReport summarizes one purge run against a single endpoint group.
type PurgeReport struct {
	RunID      string            `json:"run_id"`
	Controller string            `json:"controller,omitempty"`
	Scope      Scope             `json:"scope"`
	EPGDN      DN                `json:"epg_dn"`
	DryRun     bool              `json:"dry_run"`
	Attempted  []DN              `json:"attempted"`
	Succeeded  []DN              `json:"succeeded"`
	Failed     []OperationResult `json:"failed"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Changed reports whether the run removed anything from the controller.
func (r *PurgeReport) Changed() bool {
	return len(r.Succeeded) > 0
}

// OK reports whether every attempted deletion succeeded.
func (r *PurgeReport) OK() bool {
	return len(r.Failed) == 0
}

// RunStatus classifies a finished purge run.
type RunStatus string

const (
	RunSucceeded RunStatus = "success"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunDryRun    RunStatus = "dry_run"
)

// ClassifyRun derives the status of a run from its report and error.
// A nil report means the run never got past login.
func ClassifyRun(r *PurgeReport, err error) RunStatus {
	switch {
	case r == nil:
		return RunFailed
	case err == nil && r.DryRun:
		return RunDryRun
	case err == nil:
		return RunSucceeded
	case r.Changed():
		return RunPartial
	default:
		return RunFailed
	}
}
