package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldday/backend/internal/activities"
	"github.com/fieldday/backend/internal/models"
	"github.com/fieldday/backend/internal/notifications"
	"github.com/fieldday/backend/internal/orders"
	"github.com/fieldday/backend/internal/registrations"
	"github.com/fieldday/backend/pkg/queue"
)

// Worker runs the background loops: the notification job queue, the pending
// order expiry sweep and the time-driven activity status sweep.
type Worker struct {
	queue        *queue.Queue
	notifRepo    *notifications.Repository
	orderRepo    *orders.Repository
	activityRepo *activities.Repository
	regRepo      *registrations.Repository

	orderSweepInterval  time.Duration
	statusSweepInterval time.Duration

	logger *zap.Logger
}

// New creates a worker.
func New(q *queue.Queue, notifRepo *notifications.Repository, orderRepo *orders.Repository,
	activityRepo *activities.Repository, regRepo *registrations.Repository,
	orderSweep, statusSweep time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:               q,
		notifRepo:           notifRepo,
		orderRepo:           orderRepo,
		activityRepo:        activityRepo,
		regRepo:             regRepo,
		orderSweepInterval:  orderSweep,
		statusSweepInterval: statusSweep,
		logger:              logger,
	}
}

// Run starts all loops and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	go w.runJobs(ctx)
	go w.runOrderSweep(ctx)
	w.runStatusSweep(ctx)
}

// runJobs is the queue loop: dequeue, process, retry on error.
func (w *Worker) runJobs(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("job worker stopping")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := w.process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := w.queue.Retry(ctx, job); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}

// process executes one job.
func (w *Worker) process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	n := &models.Notification{
		UserID: payload.UserID,
		Type:   payload.Type,
		Title:  payload.Title,
		Body:   payload.Body,
	}
	if err := w.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// runOrderSweep periodically expires pending orders past their payment window
// and notifies the owners.
func (w *Worker) runOrderSweep(ctx context.Context) {
	ticker := time.NewTicker(w.orderSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("order sweep stopping")
			return
		case <-ticker.C:
			expired, err := w.orderRepo.ExpireOverdue(ctx, time.Now())
			if err != nil {
				w.logger.Error("order sweep failed", zap.Error(err))
				continue
			}
			for i := range expired {
				o := &expired[i]
				n := &models.Notification{
					UserID: o.UserID,
					Type:   models.NotificationOrderExpired,
					Title:  "Order expired",
					Body:   "Order " + o.OrderNo + " expired before payment.",
				}
				if err := w.notifRepo.Create(ctx, n); err != nil {
					w.logger.Warn("expiry notification failed", zap.Error(err), zap.String("order_id", o.ID.String()))
				}
			}
			if len(expired) > 0 {
				w.logger.Info("expired overdue orders", zap.Int("count", len(expired)))
			}
		}
	}
}

// runStatusSweep periodically applies time-driven activity transitions
// (published -> ongoing -> completed) and completes the registrations of
// finished activities.
func (w *Worker) runStatusSweep(ctx context.Context) {
	ticker := time.NewTicker(w.statusSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("status sweep stopping")
			return
		case <-ticker.C:
			now := time.Now()
			started, err := w.activityRepo.StartDue(ctx, now)
			if err != nil {
				w.logger.Error("start sweep failed", zap.Error(err))
			}
			completed, err := w.activityRepo.CompleteDue(ctx, now)
			if err != nil {
				w.logger.Error("complete sweep failed", zap.Error(err))
			}
			regs, err := w.regRepo.CompleteForFinishedActivities(ctx)
			if err != nil {
				w.logger.Error("registration completion sweep failed", zap.Error(err))
			}
			if started > 0 || completed > 0 || regs > 0 {
				w.logger.Info("status sweep applied transitions",
					zap.Int64("started", started),
					zap.Int64("completed", completed),
					zap.Int64("registrations_completed", regs))
			}
		}
	}
}
