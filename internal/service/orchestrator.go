package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aniladanir/bulk-messenger-service/internal/cache"
	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	reportRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/report"
	"github.com/aniladanir/bulk-messenger-service/internal/templater"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultChannel        = "whatsapp"
	DefaultBatchRetention = 24 * time.Hour
)

type OrchestratorConfig struct {
	Costs domain.Costs
	// ReportTimeout is how long a dispatched batch waits for its delivery report.
	// Zero keeps batches dispatched forever.
	ReportTimeout   time.Duration
	RefundOnTimeout bool
	// BatchRetention is how long prepared, failed and reconciled batches stay
	// in memory. Defaults to DefaultBatchRetention.
	BatchRetention time.Duration
	// CacheTTL bounds how long batch snapshots stay in the cache.
	CacheTTL time.Duration
	MaxRetry *int
}

// Orchestrator turns contact selections into dispatched batches and matches
// delivery reports back to them.
type Orchestrator struct {
	ledger     *Ledger
	reports    reportRepo.Repository
	dispatcher dispatcher.Dispatcher
	cache      cache.Cache
	tracker    *Tracker
	cfg        OrchestratorConfig
	retrier    *storageRetrier
	now        func() time.Time
	logger     *slog.Logger
}

// NewOrchestrator creates the orchestrator. cache may be nil.
func NewOrchestrator(ledger *Ledger, reports reportRepo.Repository, d dispatcher.Dispatcher, c cache.Cache, cfg OrchestratorConfig, logger *slog.Logger) (*Orchestrator, error) {
	retrier, err := newStorageRetrier(cfg.MaxRetry, logger)
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.BatchRetention <= 0 {
		cfg.BatchRetention = DefaultBatchRetention
	}
	return &Orchestrator{
		ledger:     ledger,
		reports:    reports,
		dispatcher: d,
		cache:      c,
		tracker:    NewTracker(),
		cfg:        cfg,
		retrier:    retrier,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}, nil
}

// PrepareBatch renders one message per contact. A contact uses its own template
// when templatesByContactID has one, the default template otherwise. If any
// contact fails to render no batch is produced.
func (o *Orchestrator) PrepareBatch(ctx context.Context, userID string, campaign *domain.Campaign, contacts []domain.Contact, templatesByContactID map[int][]string, defaultTemplate []string, channel string) (*domain.SendBatch, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, domain.InvalidInputf("campaign is required")
	}
	if campaign.UserID != userID {
		return nil, domain.NewNotFound("campaign", campaign.ID)
	}
	if len(contacts) == 0 {
		return nil, domain.ErrEmptySelection
	}
	if channel = strings.TrimSpace(channel); channel == "" {
		channel = DefaultChannel
	}

	batch := &domain.SendBatch{
		ID:         uuid.NewString(),
		UserID:     userID,
		CampaignID: campaign.ID,
		Channel:    channel,
		State:      domain.BatchPrepared,
		CreatedAt:  o.now(),
		Items:      make([]domain.BatchItem, 0, len(contacts)),
	}

	seen := make(map[int]struct{}, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		if c.CampaignID != campaign.ID {
			return nil, domain.InvalidInputf("contact %d does not belong to campaign %d", c.ID, campaign.ID)
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}

		tmpl, ok := templatesByContactID[c.ID]
		if !ok {
			tmpl = defaultTemplate
		}
		fragments, err := templater.Render(tmpl, templater.FieldsOf(c))
		if err != nil {
			return nil, fmt.Errorf("render message for contact %d: %w", c.ID, err)
		}

		batch.Items = append(batch.Items, domain.BatchItem{
			ContactID: c.ID,
			Phone:     c.Phone,
			Name:      c.Name,
			Fragments: fragments,
		})
	}

	if err := o.tracker.add(batch); err != nil {
		return nil, err
	}

	o.logger.Debug("batch prepared",
		slog.String("batchId", batch.ID),
		slog.Int("campaignId", campaign.ID),
		slog.Int("items", len(batch.Items)))
	return cloneBatch(batch), nil
}

// Send reserves credits for the batch and hands it to the dispatcher.
// When credits are insufficient nothing is dispatched and the batch stays
// prepared, so the caller may earn credits and call Send again.
func (o *Orchestrator) Send(ctx context.Context, batch *domain.SendBatch, perMessageCost int) (*domain.SendBatch, error) {
	if batch == nil {
		return nil, domain.InvalidInputf("batch is required")
	}
	if perMessageCost <= 0 {
		return nil, domain.InvalidInputf("per message cost must be positive, got %d", perMessageCost)
	}

	if _, known := o.tracker.get(batch.ID); !known {
		if batch.State != domain.BatchPrepared {
			return nil, fmt.Errorf("%w: batch %s is %s", domain.ErrInvalidTransition, batch.ID, batch.State)
		}
		if err := o.tracker.add(batch); err != nil {
			return nil, err
		}
	}

	reserved, err := o.tracker.transition(batch.ID, domain.BatchPrepared, domain.BatchReserved, nil)
	if err != nil {
		return nil, err
	}
	batchLogger := o.logger.With(slog.String("batchId", reserved.ID), slog.String("userId", reserved.UserID))

	res, err := o.reserve(ctx, reserved, perMessageCost)
	if err != nil {
		if _, tErr := o.tracker.transition(reserved.ID, domain.BatchReserved, domain.BatchPrepared, nil); tErr != nil {
			batchLogger.Error("failed to release batch", "error", tErr.Error())
		}
		var insufficient *domain.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			return nil, &domain.BatchError{BatchID: reserved.ID, Err: err}
		}
		return nil, err
	}
	reserved.Cost = res.Charged

	if err := o.dispatcher.Dispatch(ctx, dispatcher.NewRequest(reserved)); err != nil {
		if errors.Is(err, dispatcher.ErrRejected) {
			batchLogger.Error("dispatch rejected", "error", err.Error())
			o.refund(ctx, reserved, "dispatch rejected")
			if _, tErr := o.tracker.transition(reserved.ID, domain.BatchReserved, domain.BatchFailed, nil); tErr != nil {
				batchLogger.Error("failed to mark batch failed", "error", tErr.Error())
			}
			return nil, &domain.BatchError{BatchID: reserved.ID, Err: err}
		}

		// the dispatcher may hold the batch already, so the spend stands and
		// the batch waits for its report like any other
		batchLogger.Warn("dispatch outcome unknown, keeping batch dispatched", "error", err.Error())
		dispatched, dErr := o.markDispatched(ctx, reserved, res)
		if dErr != nil {
			return nil, dErr
		}
		return dispatched, &domain.BatchError{
			BatchID: reserved.ID,
			Err:     fmt.Errorf("%w: %v", domain.ErrDispatchUnconfirmed, err),
		}
	}

	return o.markDispatched(ctx, reserved, res)
}

func (o *Orchestrator) markDispatched(ctx context.Context, reserved *domain.SendBatch, res domain.Reservation) (*domain.SendBatch, error) {
	dispatchedAt := o.now()
	dispatched, err := o.tracker.transition(reserved.ID, domain.BatchReserved, domain.BatchDispatched, func(b *domain.SendBatch) {
		b.Cost = res.Charged
		b.DispatchedAt = &dispatchedAt
	})
	if err != nil {
		return nil, err
	}

	batchLogger := o.logger.With(slog.String("batchId", dispatched.ID), slog.String("userId", dispatched.UserID))
	if others := o.tracker.overlapping(dispatched.ID); len(others) > 0 {
		batchLogger.Warn("dispatched batch shares phones with other pending batches; reports without batch id may be ambiguous",
			"batches", others)
	}

	o.mirror(ctx, batchKey(dispatched.ID), dispatched)

	batchLogger.Info("batch dispatched",
		slog.Int("items", len(dispatched.Items)),
		slog.Int("cost", dispatched.Cost),
		slog.Int("balance", res.NewBalance))
	return dispatched, nil
}

// Reconcile consumes a delivery report and marks every item of the matched
// batch with whether its phone is in the success list.
func (o *Orchestrator) Reconcile(ctx context.Context, report domain.DeliveryReport) (*domain.ReconciledBatch, error) {
	rb, err := o.tracker.reconcile(report, o.now())
	if err != nil {
		o.logger.Warn("delivery report not matched",
			slog.String("batchId", report.BatchID),
			slog.Int("sentCount", report.SentCount),
			slog.Int("successes", len(report.SuccessList)))
		return nil, err
	}

	var cost int
	if batch, ok := o.tracker.get(rb.BatchID); ok {
		cost = batch.Cost
	}
	msg := &domain.SentMessage{
		UserID:       rb.UserID,
		BatchID:      rb.BatchID,
		CampaignID:   rb.CampaignID,
		Channel:      rb.Channel,
		Cost:         cost,
		SentCount:    rb.SentCount,
		SuccessCount: rb.SuccessCount(),
		Items:        datatypes.JSONSlice[domain.ReconciledItem](rb.Items),
	}
	err = o.retrier.do(ctx, "saveReport", func() error {
		msg.ID = 0
		return o.reports.Save(ctx, msg)
	})
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		// hand the batch back so a redelivered report can reconcile it
		if _, tErr := o.tracker.transition(rb.BatchID, domain.BatchReconciled, domain.BatchDispatched, nil); tErr != nil {
			o.logger.Error("failed to revert reconciliation", slog.String("batchId", rb.BatchID), "error", tErr.Error())
		}
		return nil, err
	}

	o.mirror(ctx, reconciledKey(rb.BatchID), rb)
	o.forget(ctx, batchKey(rb.BatchID))

	o.logger.Info("batch reconciled",
		slog.String("batchId", rb.BatchID),
		slog.Int("items", len(rb.Items)),
		slog.Int("successes", msg.SuccessCount))
	return rb, nil
}

// Resend prepares a new batch over the chosen items of a reconciled batch.
// The new batch is charged again when sent.
func (o *Orchestrator) Resend(ctx context.Context, batchID string, contactIDs []int) (*domain.SendBatch, error) {
	if len(contactIDs) == 0 {
		return nil, domain.ErrEmptySelection
	}

	rb, err := o.Reconciled(ctx, batchID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[int]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		wanted[id] = struct{}{}
	}

	batch := &domain.SendBatch{
		ID:         uuid.NewString(),
		UserID:     rb.UserID,
		CampaignID: rb.CampaignID,
		Channel:    rb.Channel,
		State:      domain.BatchPrepared,
		CreatedAt:  o.now(),
	}
	for _, it := range rb.Items {
		if _, ok := wanted[it.ContactID]; ok {
			batch.Items = append(batch.Items, cloneItem(it.BatchItem))
		}
	}
	if len(batch.Items) == 0 {
		return nil, domain.ErrEmptySelection
	}

	if err := o.tracker.add(batch); err != nil {
		return nil, err
	}
	return cloneBatch(batch), nil
}

// Batch returns the current snapshot of a batch.
func (o *Orchestrator) Batch(ctx context.Context, id string) (*domain.SendBatch, error) {
	if b, ok := o.tracker.get(id); ok {
		return b, nil
	}

	if o.cache != nil {
		var b domain.SendBatch
		if err := cache.GetJSON(ctx, o.cache, batchKey(id), &b); err == nil {
			return &b, nil
		}
	}
	return nil, domain.NewNotFound("batch", id)
}

// Reconciled returns the reconciled view of a batch.
func (o *Orchestrator) Reconciled(ctx context.Context, id string) (*domain.ReconciledBatch, error) {
	if rb, ok := o.tracker.reconciledBatch(id); ok {
		return rb, nil
	}

	if o.cache != nil {
		var rb domain.ReconciledBatch
		if err := cache.GetJSON(ctx, o.cache, reconciledKey(id), &rb); err == nil {
			return &rb, nil
		}
	}
	return nil, domain.NewNotFound("reconciled batch", id)
}

// Expire abandons dispatched batches whose report did not arrive within the
// report timeout, refunding them when configured, and drops settled batches
// older than the batch retention. It returns the abandoned count.
func (o *Orchestrator) Expire(ctx context.Context) int {
	abandoned := o.tracker.expire(o.now(), o.cfg.ReportTimeout, o.cfg.BatchRetention)
	for _, b := range abandoned {
		o.logger.Warn("batch abandoned without delivery report",
			slog.String("batchId", b.ID),
			slog.String("userId", b.UserID),
			slog.Int("cost", b.Cost))
		if o.cfg.RefundOnTimeout {
			o.refund(ctx, b, "report timeout")
		}
		o.forget(ctx, batchKey(b.ID))
	}
	return len(abandoned)
}

// MessageReport lists the user's reconciled batches, newest first.
func (o *Orchestrator) MessageReport(ctx context.Context, userID string) ([]domain.SentMessage, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	var msgs []domain.SentMessage
	err := o.retrier.do(ctx, "messageReport", func() (err error) {
		msgs, err = o.reports.List(ctx, userID)
		return err
	})
	return msgs, err
}

func (o *Orchestrator) reserve(ctx context.Context, b *domain.SendBatch, perMessageCost int) (domain.Reservation, error) {
	ids := b.ContactIDs()
	if len(ids) == 0 {
		return domain.Reservation{}, domain.ErrEmptySelection
	}
	if minCost := o.cfg.Costs.MinMessageBatch; minCost > perMessageCost*countDistinct(ids) {
		return o.ledger.Reserve(ctx, b.UserID, minCost)
	}
	return o.ledger.ReserveForIDs(ctx, b.UserID, ids, perMessageCost)
}

func (o *Orchestrator) refund(ctx context.Context, b *domain.SendBatch, reason string) {
	if b.Cost <= 0 {
		return
	}
	if _, err := o.ledger.Refund(ctx, b.UserID, b.Cost); err != nil {
		o.logger.Error("failed to refund batch",
			slog.String("batchId", b.ID),
			slog.String("reason", reason),
			slog.Int("amount", b.Cost),
			"error", err.Error())
	}
}

// mirror writes a snapshot to the cache; the cache is best effort
func (o *Orchestrator) mirror(ctx context.Context, key string, v any) {
	if o.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, o.cache, key, v, o.cfg.CacheTTL); err != nil {
		o.logger.Error("failed to cache batch", slog.String("key", key), "error", err.Error())
	}
}

func (o *Orchestrator) forget(ctx context.Context, key string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Delete(ctx, key); err != nil {
		o.logger.Error("failed to evict batch", slog.String("key", key), "error", err.Error())
	}
}

func batchKey(id string) string {
	return "dispatched_batch:" + id
}

func reconciledKey(id string) string {
	return "reconciled_batch:" + id
}
