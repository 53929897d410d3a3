package job

import (
	"context"
	"sync"
	"time"

	"github.com/kgbox/expiry-notifier/internal/application/fanout"
	"github.com/kgbox/expiry-notifier/internal/application/notify"
	"github.com/kgbox/expiry-notifier/internal/application/scan"
	"github.com/kgbox/expiry-notifier/internal/domain"
	"github.com/kgbox/expiry-notifier/internal/pkg/id"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Summary is returned to synchronous callers of a run.
type Summary struct {
	TenantsNotified      int `json:"tenants_notified"`
	NotificationsCreated int `json:"notifications_created"`
	TokensPruned         int `json:"tokens_pruned"`
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	// LatestForTenant returns the newest notification record for the tenant,
	// or domain.ErrNotFound when none exists.
	LatestForTenant(ctx context.Context, tenantID string) (*domain.Notification, error)
}

type tokenRemover interface {
	BatchDelete(ctx context.Context, tokens []string) error
}

// reportArchiver persists a run summary for later inspection. Best effort.
type reportArchiver interface {
	PutReport(ctx context.Context, key string, report any) error
}

// Job runs one scan-and-notify cycle. A single Job instance is shared by the
// scheduler and the on-demand HTTP path; the run lock keeps overlapping
// triggers from double-firing the fanout.
type Job struct {
	scanner     scan.Service
	dispatcher  fanout.Dispatcher
	notifs      notificationStore
	tokens      tokenRemover
	archive     reportArchiver // nil disables archiving
	log         *zap.Logger
	concurrency int

	mu      sync.Mutex
	running bool

	now func() time.Time
}

func New(scanner scan.Service, dispatcher fanout.Dispatcher, notifs notificationStore, tokens tokenRemover, archive reportArchiver, log *zap.Logger, concurrency int) *Job {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Job{
		scanner:     scanner,
		dispatcher:  dispatcher,
		notifs:      notifs,
		tokens:      tokens,
		archive:     archive,
		log:         log,
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (j *Job) tryLock() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

func (j *Job) unlock() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// tenantOutcome carries one tenant's results out of the fanout group.
type tenantOutcome struct {
	tenantID      string
	created       bool
	dispatched    bool
	invalidTokens []string
}

// Run executes one full cycle: scan, compose, dispatch per tenant, then one
// token-removal reconciliation pass. A scan failure aborts the run with
// nothing persisted; per-tenant failures are isolated, logged, and do not
// affect other tenants.
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	if !j.tryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer j.unlock()

	started := j.now()
	scanDate := started.Format("2006-01-02")

	aggs, err := j.scanner.Scan(ctx, "")
	if err != nil {
		j.log.Error("expiry scan failed, aborting run", zap.Error(err))
		return nil, err
	}

	var (
		outMu    sync.Mutex
		outcomes []tenantOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for tenantID, agg := range aggs {
		tenantID, agg := tenantID, agg
		g.Go(func() error {
			oc := j.processTenant(gctx, tenantID, agg, scanDate)
			if oc != nil {
				outMu.Lock()
				outcomes = append(outcomes, *oc)
				outMu.Unlock()
			}
			// Tenant errors are isolated inside processTenant; returning a
			// non-nil error here would cancel the sibling tenants.
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{}
	var invalid []string
	for _, oc := range outcomes {
		if oc.created {
			summary.NotificationsCreated++
		}
		if oc.dispatched {
			summary.TenantsNotified++
		}
		invalid = append(invalid, oc.invalidTokens...)
	}

	// Reconciliation: one removal pass over the union of invalid tokens.
	if len(invalid) > 0 {
		if err := j.tokens.BatchDelete(ctx, invalid); err != nil {
			j.log.Warn("invalid token pruning incomplete", zap.Int("tokens", len(invalid)), zap.Error(err))
		} else {
			summary.TokensPruned = len(invalid)
		}
	}

	if j.archive != nil {
		key := "expiry-scan/" + started.UTC().Format("2006-01-02T15-04-05Z") + ".json"
		if err := j.archive.PutReport(ctx, key, summary); err != nil {
			j.log.Warn("run report archive failed", zap.String("key", key), zap.Error(err))
		}
	}

	j.log.Info("expiry run complete",
		zap.Int("tenants_notified", summary.TenantsNotified),
		zap.Int("notifications_created", summary.NotificationsCreated),
		zap.Int("tokens_pruned", summary.TokensPruned),
		zap.Duration("took", j.now().Sub(started)))
	return summary, nil
}

// RunScheduled is the timer entry point. It has no caller to report to, so
// it only logs and always returns normally.
func (j *Job) RunScheduled(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil {
		if err == domain.ErrRunInProgress {
			j.log.Warn("scheduled trigger overlapped a running job, skipped")
			return
		}
		j.log.Error("scheduled expiry run failed", zap.Error(err))
	}
}

// processTenant composes, persists, and dispatches for one tenant. Any
// failure is logged and the tenant is skipped; nothing propagates.
func (j *Job) processTenant(ctx context.Context, tenantID string, agg *domain.TenantAggregate, scanDate string) *tenantOutcome {
	msg := notify.Compose(tenantID, agg)
	if msg == nil {
		return nil
	}

	if j.alreadyNotifiedToday(ctx, tenantID, scanDate) {
		j.log.Debug("tenant already notified for this scan date, skipping",
			zap.String("tenant_id", tenantID), zap.String("scan_date", scanDate))
		return nil
	}

	oc := &tenantOutcome{tenantID: tenantID}

	record := &domain.Notification{
		NotificationID: id.New(),
		TenantID:       tenantID,
		Title:          msg.Title,
		Body:           msg.Body,
		Type:           msg.Data["type"],
		ProductIDs:     notify.ProductIDs(agg),
		ScanDate:       scanDate,
		CreatedAt:      j.now().UTC(),
	}
	if err := j.notifs.Put(ctx, record); err != nil {
		j.log.Error("notification record not persisted",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return oc
	}
	oc.created = true

	res, err := j.dispatcher.Dispatch(ctx, tenantID, msg)
	if err != nil {
		j.log.Error("dispatch failed for tenant",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return oc
	}
	oc.dispatched = true
	oc.invalidTokens = res.InvalidTokens

	j.log.Info("tenant notified",
		zap.String("tenant_id", tenantID),
		zap.Int("expired", agg.ExpiredCount),
		zap.Int("near", agg.NearCount),
		zap.Int("sent", res.SuccessCount),
		zap.Int("failed", res.FailureCount),
		zap.Bool("broadcast", res.Broadcast))
	return oc
}

// alreadyNotifiedToday suppresses duplicate records when a run repeats
// within one scan date (a rerun after a crash, or an on-demand run on the
// same day as the schedule).
func (j *Job) alreadyNotifiedToday(ctx context.Context, tenantID, scanDate string) bool {
	latest, err := j.notifs.LatestForTenant(ctx, tenantID)
	if err != nil {
		// ErrNotFound or a lookup failure: proceed with notification.
		return false
	}
	return latest.ScanDate == scanDate
}
