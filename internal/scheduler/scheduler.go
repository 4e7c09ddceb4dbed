// Package scheduler drives the billing pipeline: it finds stores with a due
// cycle and closes one cycle per store per run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/pedidoz/billing/internal/billingcycle/domain"
	"github.com/pedidoz/billing/internal/clock"
	"github.com/pedidoz/billing/internal/config"
	feedomain "github.com/pedidoz/billing/internal/fee/domain"
	invoicedomain "github.com/pedidoz/billing/internal/invoice/domain"
	notificationdomain "github.com/pedidoz/billing/internal/notification/domain"
	obsmetrics "github.com/pedidoz/billing/internal/observability/metrics"
	"github.com/pedidoz/billing/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

const (
	jobCloseDueCycles  = "close_due_cycles"
	jobBootstrapCycles = "bootstrap_first_cycles"
	jobMarkOverdue     = "mark_overdue"

	jobTimeout = 10 * time.Minute
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Cfg     *config.BillingConfigHolder
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`

	FeeSvc     feedomain.Service
	CycleSvc   billingcycledomain.Service
	InvoiceSvc invoicedomain.Service
	NotifySvc  notificationdomain.Service
}

type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	cfg     *config.BillingConfigHolder
	metrics *obsmetrics.SchedulerMetrics

	feeSvc     feedomain.Service
	cycleSvc   billingcycledomain.Service
	invoiceSvc invoicedomain.Service
	notifySvc  notificationdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Cfg == nil ||
		p.FeeSvc == nil || p.CycleSvc == nil || p.InvoiceSvc == nil || p.NotifySvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		genID:   p.GenID,
		clock:   p.Clock,
		cfg:     p.Cfg,
		metrics: p.Metrics,

		feeSvc:     p.FeeSvc,
		cycleSvc:   p.CycleSvc,
		invoiceSvc: p.InvoiceSvc,
		notifySvc:  p.NotifySvc,
	}, nil
}

// RunOnce executes one full scheduler pass. Job failures are joined, never
// fatal to the other jobs.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, jobCloseDueCycles, s.CloseDueCyclesJob))
	err = errors.Join(err, s.runJob(parent, jobBootstrapCycles, s.BootstrapFirstCyclesJob))
	err = errors.Join(err, s.runJob(parent, jobMarkOverdue, s.MarkOverdueJob))
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.Get().RunInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context, run *jobRun) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()

	run := s.newJobRun(name)
	s.logJobStart(run)
	s.metrics.IncJobRun(name)

	err := fn(ctx, run)

	s.metrics.ObserveJobDuration(name, time.Since(start))
	s.metrics.AddStoresProcessed(name, run.processedCount)
	s.logJobFinish(run)
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout: the run stops where it is and the next
	// tick picks the remaining stores up again.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.String("run_id", run.runID),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// CloseDueCyclesJob bills every store whose billing control says a cycle has
// elapsed. A failing store is logged and skipped; it stays due and the next
// run retries it.
func (s *Scheduler) CloseDueCyclesJob(ctx context.Context, run *jobRun) error {
	cfg := s.cfg.Get()
	now := s.clock.Now()
	var jobErr error

	var after snowflake.ID
	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		stores, err := s.claimDueStores(ctx, now, after, cfg.BatchSize)
		if err != nil {
			s.logSchedulerError(run, "scheduler.claim.failed", 0, err)
			return errors.Join(jobErr, err)
		}
		if len(stores) == 0 {
			break
		}
		after = stores[len(stores)-1]

		for _, storeID := range stores {
			processed, err := s.processStore(ctx, run, storeID, now, cfg.StoreTimeout)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				s.logSchedulerError(run, "scheduler.store.process.failed", storeID, err)
				continue
			}
			if processed {
				run.AddProcessed(1)
			}
		}
	}

	return jobErr
}

// BootstrapFirstCyclesJob finds stores that accumulated a full cycle of fees
// before ever having a billing control, and runs their first settlement.
func (s *Scheduler) BootstrapFirstCyclesJob(ctx context.Context, run *jobRun) error {
	cfg := s.cfg.Get()
	now := s.clock.Now()
	cutoff := now.AddDate(0, 0, -cfg.CyclePeriodDays)
	var jobErr error

	var after snowflake.ID
	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		stores, err := s.fetchUncontrolledStores(ctx, cutoff, after, cfg.BatchSize)
		if err != nil {
			s.logSchedulerError(run, "scheduler.claim.failed", 0, err)
			return errors.Join(jobErr, err)
		}
		if len(stores) == 0 {
			break
		}
		after = stores[len(stores)-1]

		for _, storeID := range stores {
			processed, err := s.processStore(ctx, run, storeID, now, cfg.StoreTimeout)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				s.logSchedulerError(run, "scheduler.store.process.failed", storeID, err)
				continue
			}
			if processed {
				run.AddProcessed(1)
			}
		}
	}

	return jobErr
}

func (s *Scheduler) MarkOverdueJob(ctx context.Context, run *jobRun) error {
	now := s.clock.Now()
	updated, err := s.invoiceSvc.MarkOverdue(ctx, now)
	if err != nil {
		s.logSchedulerError(run, "scheduler.mark_overdue.failed", 0, err)
		return err
	}
	if updated > 0 {
		run.AddProcessed(int(updated))
		s.log.Info("invoices marked overdue", zap.Int64("count", updated))
	}
	return nil
}

// processStore runs one store's pipeline: resolve cycle, read fees,
// aggregate, settle, notify. It reports whether an invoice was committed.
func (s *Scheduler) processStore(parent context.Context, run *jobRun, storeID snowflake.ID, now time.Time, timeout time.Duration) (bool, error) {
	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	cycle, err := s.cycleSvc.Resolve(ctx, storeID)
	if err != nil {
		return false, err
	}
	if cycle == nil {
		// No fee history at all: skip, not fault.
		return false, nil
	}
	if cycle.End.After(now) {
		return false, nil
	}

	fees, err := s.feeSvc.ListUnsettledInWindow(ctx, storeID, cycle.Start, cycle.End)
	if err != nil {
		return false, err
	}

	agg := s.invoiceSvc.Aggregate(ctx, fees)
	if agg.Empty() {
		s.log.Debug("nothing to bill",
			zap.String("store_id", storeID.String()),
			zap.Time("cycle_start", cycle.Start),
			zap.Time("cycle_end", cycle.End),
		)
		return false, nil
	}

	invoice, err := s.invoiceSvc.SettleCycle(ctx, invoicedomain.SettleCycleRequest{
		StoreID:     storeID,
		Cycle:       *cycle,
		Aggregation: agg,
	})
	if err != nil {
		// A concurrent run got here first; its commit is just as good.
		if errors.Is(err, invoicedomain.ErrFeeAlreadySettled) || db.IsDuplicateKeyErr(err) {
			s.log.Warn("cycle already settled by another run",
				zap.String("store_id", storeID.String()),
				zap.Time("cycle_end", cycle.End),
			)
			return false, nil
		}
		return false, err
	}

	s.metrics.IncInvoicesCreated()
	s.metrics.AddFeesSettled(len(agg.FeeIDs))

	// Notification is best effort and outside the settlement transaction:
	// a failure here never invalidates the committed invoice.
	if err := s.notifySvc.InvoiceCreated(ctx, notificationdomain.InvoiceCreatedRequest{
		StoreID:   storeID,
		InvoiceID: invoice.ID,
		Total:     invoice.Total,
		DueAt:     invoice.DueAt,
	}); err != nil {
		s.metrics.IncNotifyFailure()
		s.log.Warn("invoice notification failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("store_id", storeID.String()),
			zap.Error(err),
		)
	}

	return true, nil
}
