// Package purge resolves an endpoint group to its learned endpoints and
// deletes them one at a time, in controller order, collecting an outcome
// for every item.
package purge

import (
	"context"
	"fmt"
	"time"

	"github.com/HerbHall/aciclean/internal/apic"
	"github.com/HerbHall/aciclean/internal/metrics"
	"github.com/HerbHall/aciclean/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// logoutTimeout bounds the logout issued when a run ends.
const logoutTimeout = 10 * time.Second

// EndpointAPI is the controller surface a purge needs. *apic.Session
// satisfies it.
type EndpointAPI interface {
	ListEndpoints(ctx context.Context, scope models.Scope) ([]models.DN, error)
	DeleteEndpoint(ctx context.Context, dn models.DN) models.OperationResult
}

// Observer is told about each deletion as it happens.
type Observer interface {
	BeforeDelete(dn models.DN)
	AfterDelete(result models.OperationResult)
}

// Purger deletes every learned endpoint of an endpoint group.
type Purger struct {
	logger   *zap.Logger
	dryRun   bool
	limiter  *rate.Limiter
	observer Observer
	metrics  *metrics.Collector
	now      func() time.Time
}

// Option configures a Purger.
type Option func(*Purger)

// WithDryRun lists endpoints without deleting them.
func WithDryRun(dryRun bool) Option {
	return func(p *Purger) { p.dryRun = dryRun }
}

// WithRateLimit paces deletions to rps requests per second. A zero or
// negative rps disables pacing. Ordering is unaffected.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *Purger) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithObserver streams per-item progress to o.
func WithObserver(o Observer) Option {
	return func(p *Purger) { p.observer = o }
}

// WithMetrics records outcomes on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Purger) { p.metrics = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Purger) { p.now = now }
}

// New creates a Purger.
func New(logger *zap.Logger, opts ...Option) *Purger {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Purger{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs the full workflow against client: login, purge, logout.
// A login failure returns the *apic.AuthError with a nil report and no
// further request is made. The session is released on every path.
func (p *Purger) Execute(ctx context.Context, client *apic.Client, creds models.Credentials, scope models.Scope) (*models.PurgeReport, error) {
	sess, err := client.Login(ctx, creds)
	if err != nil {
		p.observeRun(nil, err)
		return nil, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			p.logger.Warn("logout failed", zap.Error(err))
		}
	}()

	report, err := p.Purge(ctx, sess, scope)
	if report != nil {
		report.Controller = client.BaseURL()
	}
	return report, err
}

// Purge lists the endpoints of scope through api and deletes each one in
// response order. A listing failure is returned before anything is
// deleted. Individual delete failures are recorded and the loop carries
// on; if any occurred the returned error is a *PurgeError. The report is
// returned in every case once the run has started.
func (p *Purger) Purge(ctx context.Context, api EndpointAPI, scope models.Scope) (*models.PurgeReport, error) {
	report := &models.PurgeReport{
		RunID:     uuid.NewString(),
		Scope:     scope,
		EPGDN:     apic.ResolveDN(scope),
		DryRun:    p.dryRun,
		Attempted: []models.DN{},
		Succeeded: []models.DN{},
		Failed:    []models.OperationResult{},
		StartedAt: p.now(),
	}
	log := p.logger.With(
		zap.String("run_id", report.RunID),
		zap.String("epg_dn", report.EPGDN.String()),
	)

	dns, err := api.ListEndpoints(ctx, scope)
	if err != nil {
		report.FinishedAt = p.now()
		err = fmt.Errorf("list endpoints: %w", err)
		p.observeRun(report, err)
		log.Error("endpoint query failed", zap.Error(err))
		return report, err
	}
	log.Info("endpoints resolved", zap.Int("count", len(dns)), zap.Bool("dry_run", p.dryRun))

	if p.dryRun {
		report.Attempted = append(report.Attempted, dns...)
		report.FinishedAt = p.now()
		p.observeRun(report, nil)
		return report, nil
	}

	for _, dn := range dns {
		report.Attempted = append(report.Attempted, dn)
		result := p.deleteOne(ctx, api, dn)
		if result.Success {
			report.Succeeded = append(report.Succeeded, dn)
			log.Info("endpoint deleted", zap.String("dn", dn.String()))
		} else {
			report.Failed = append(report.Failed, result)
			log.Warn("endpoint delete failed",
				zap.String("dn", dn.String()),
				zap.String("detail", result.Detail),
			)
		}
	}
	report.FinishedAt = p.now()

	log.Info("purge finished",
		zap.Int("attempted", len(report.Attempted)),
		zap.Int("succeeded", len(report.Succeeded)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	if !report.OK() {
		err := newPurgeError(report)
		p.observeRun(report, err)
		return report, err
	}
	p.observeRun(report, nil)
	return report, nil
}

// deleteOne paces, issues and reports a single deletion.
func (p *Purger) deleteOne(ctx context.Context, api EndpointAPI, dn models.DN) models.OperationResult {
	if p.observer != nil {
		p.observer.BeforeDelete(dn)
	}

	var result models.OperationResult
	start := time.Now()
	if err := p.wait(ctx); err != nil {
		result = models.OperationResult{DN: dn, Detail: fmt.Sprintf("not attempted: %v", err)}
	} else {
		result = api.DeleteEndpoint(ctx, dn)
		result.DN = dn
	}

	if p.metrics != nil {
		p.metrics.ObserveDelete(result.Success, time.Since(start))
	}
	if p.observer != nil {
		p.observer.AfterDelete(result)
	}
	return result
}

// wait paces the next deletion. It fails once ctx is done, limiter or not.
func (p *Purger) wait(ctx context.Context) error {
	if p.limiter != nil {
		return p.limiter.Wait(ctx)
	}
	return ctx.Err()
}

func (p *Purger) observeRun(report *models.PurgeReport, err error) {
	if p.metrics != nil {
		p.metrics.ObserveRun(models.ClassifyRun(report, err), p.now())
	}
}
