package service

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
)

// allowed batch state transitions
var transitions = map[domain.BatchState][]domain.BatchState{
	domain.BatchPrepared:   {domain.BatchReserved, domain.BatchAbandoned},
	domain.BatchReserved:   {domain.BatchPrepared, domain.BatchDispatched, domain.BatchFailed},
	domain.BatchDispatched: {domain.BatchReconciled, domain.BatchAbandoned},
	domain.BatchReconciled: {domain.BatchDispatched},
}

type trackedBatch struct {
	batch      *domain.SendBatch
	phones     map[string]struct{}
	reconciled *domain.ReconciledBatch
}

// Tracker keeps batches in memory from preparation until reconciliation and
// owns their state machine. Callers only ever receive copies.
type Tracker struct {
	mtx     sync.Mutex
	batches map[string]*trackedBatch
}

func NewTracker() *Tracker {
	return &Tracker{batches: make(map[string]*trackedBatch)}
}

func (t *Tracker) add(b *domain.SendBatch) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if _, ok := t.batches[b.ID]; ok {
		return domain.InvalidInputf("batch %s already exists", b.ID)
	}
	t.batches[b.ID] = newTracked(cloneBatch(b))
	return nil
}

// transition moves a batch from one state to another and applies mutate under the lock.
func (t *Tracker) transition(id string, from, to domain.BatchState, mutate func(*domain.SendBatch)) (*domain.SendBatch, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	tb, ok := t.batches[id]
	if !ok {
		return nil, domain.NewNotFound("batch", id)
	}
	if tb.batch.State != from || !slices.Contains(transitions[from], to) {
		return nil, fmt.Errorf("%w: %s -> %s, batch is %s", domain.ErrInvalidTransition, from, to, tb.batch.State)
	}

	tb.batch.State = to
	if mutate != nil {
		mutate(tb.batch)
	}
	if to != domain.BatchReconciled {
		tb.reconciled = nil
	}
	return cloneBatch(tb.batch), nil
}

func (t *Tracker) get(id string) (*domain.SendBatch, bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	tb, ok := t.batches[id]
	if !ok {
		return nil, false
	}
	return cloneBatch(tb.batch), true
}

func (t *Tracker) reconciledBatch(id string) (*domain.ReconciledBatch, bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	tb, ok := t.batches[id]
	if !ok || tb.reconciled == nil {
		return nil, false
	}
	return cloneReconciled(tb.reconciled), true
}

// reconcile matches the report to a dispatched batch and marks it reconciled.
// A report naming its batch is matched by id; otherwise the oldest dispatched
// batch containing every reported phone wins. A report with neither a batch id
// nor a success list only matches when a single dispatched batch fits it.
func (t *Tracker) reconcile(report domain.DeliveryReport, now time.Time) (*domain.ReconciledBatch, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	success := make(map[string]struct{}, len(report.SuccessList))
	for _, p := range report.SuccessList {
		success[domain.NormalizePhone(p)] = struct{}{}
	}

	tb := t.match(report, success)
	if tb == nil {
		return nil, domain.ErrNoMatchingBatch
	}

	rb := &domain.ReconciledBatch{
		BatchID:      tb.batch.ID,
		UserID:       tb.batch.UserID,
		CampaignID:   tb.batch.CampaignID,
		Channel:      tb.batch.Channel,
		SentCount:    report.SentCount,
		ReconciledAt: now,
		Items:        make([]domain.ReconciledItem, 0, len(tb.batch.Items)),
	}
	for _, it := range tb.batch.Items {
		_, ok := success[it.Phone]
		rb.Items = append(rb.Items, domain.ReconciledItem{BatchItem: cloneItem(it), Exists: ok})
	}

	tb.batch.State = domain.BatchReconciled
	tb.reconciled = rb
	return cloneReconciled(rb), nil
}

func (t *Tracker) match(report domain.DeliveryReport, success map[string]struct{}) *trackedBatch {
	if report.BatchID != "" {
		tb, ok := t.batches[report.BatchID]
		if !ok || tb.batch.State != domain.BatchDispatched {
			return nil
		}
		return tb
	}
	if len(success) == 0 {
		return t.matchEmpty(report.SentCount)
	}

	var best *trackedBatch
	for _, tb := range t.batches {
		if tb.batch.State != domain.BatchDispatched || !tb.covers(success) {
			continue
		}
		if best == nil || dispatchedBefore(tb.batch, best.batch) {
			best = tb
		}
	}
	return best
}

// matchEmpty resolves a report carrying no phones. Every dispatched batch
// covers it, so it matches the only dispatched batch, or the only one whose
// size equals sentCount. Anything else is ambiguous.
func (t *Tracker) matchEmpty(sentCount int) *trackedBatch {
	var only, sized *trackedBatch
	var dispatched, sizedCount int
	for _, tb := range t.batches {
		if tb.batch.State != domain.BatchDispatched {
			continue
		}
		dispatched++
		only = tb
		if sentCount > 0 && len(tb.batch.Items) == sentCount {
			sizedCount++
			sized = tb
		}
	}

	switch {
	case dispatched == 1:
		return only
	case sizedCount == 1:
		return sized
	default:
		return nil
	}
}

// overlapping lists the dispatched batches other than id sharing a phone with it.
func (t *Tracker) overlapping(id string) []string {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	self, ok := t.batches[id]
	if !ok {
		return nil
	}

	var ids []string
	for otherID, tb := range t.batches {
		if otherID == id || tb.batch.State != domain.BatchDispatched {
			continue
		}
		for p := range self.phones {
			if _, ok := tb.phones[p]; ok {
				ids = append(ids, otherID)
				break
			}
		}
	}
	slices.Sort(ids)
	return ids
}

// expire abandons dispatched batches whose report did not arrive within
// reportTimeout; a non-positive timeout keeps them waiting. Prepared, failed
// and reconciled batches are dropped once older than retention.
func (t *Tracker) expire(now time.Time, reportTimeout, retention time.Duration) (abandoned []*domain.SendBatch) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	reportDeadline := now.Add(-reportTimeout)
	keepAfter := now.Add(-retention)
	for id, tb := range t.batches {
		switch tb.batch.State {
		case domain.BatchDispatched:
			if reportTimeout > 0 && tb.batch.DispatchedAt != nil && tb.batch.DispatchedAt.Before(reportDeadline) {
				tb.batch.State = domain.BatchAbandoned
				abandoned = append(abandoned, cloneBatch(tb.batch))
				delete(t.batches, id)
			}
		case domain.BatchPrepared, domain.BatchFailed:
			if retention > 0 && tb.batch.CreatedAt.Before(keepAfter) {
				delete(t.batches, id)
			}
		case domain.BatchReconciled:
			if retention > 0 && tb.reconciled != nil && tb.reconciled.ReconciledAt.Before(keepAfter) {
				delete(t.batches, id)
			}
		}
	}
	return abandoned
}

// size is the number of batches currently tracked.
func (t *Tracker) size() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.batches)
}

func newTracked(b *domain.SendBatch) *trackedBatch {
	phones := make(map[string]struct{}, len(b.Items))
	for _, it := range b.Items {
		phones[it.Phone] = struct{}{}
	}
	return &trackedBatch{batch: b, phones: phones}
}

func (tb *trackedBatch) covers(success map[string]struct{}) bool {
	for p := range success {
		if _, ok := tb.phones[p]; !ok {
			return false
		}
	}
	return true
}

func dispatchedBefore(a, b *domain.SendBatch) bool {
	if a.DispatchedAt == nil || b.DispatchedAt == nil {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.DispatchedAt.Equal(*b.DispatchedAt) {
		return a.ID < b.ID
	}
	return a.DispatchedAt.Before(*b.DispatchedAt)
}

func cloneItem(it domain.BatchItem) domain.BatchItem {
	it.Fragments = slices.Clone(it.Fragments)
	return it
}

func cloneBatch(b *domain.SendBatch) *domain.SendBatch {
	c := *b
	if b.DispatchedAt != nil {
		at := *b.DispatchedAt
		c.DispatchedAt = &at
	}
	c.Items = make([]domain.BatchItem, len(b.Items))
	for i, it := range b.Items {
		c.Items[i] = cloneItem(it)
	}
	return &c
}

func cloneReconciled(r *domain.ReconciledBatch) *domain.ReconciledBatch {
	c := *r
	c.Items = make([]domain.ReconciledItem, len(r.Items))
	for i, it := range r.Items {
		c.Items[i] = domain.ReconciledItem{BatchItem: cloneItem(it.BatchItem), Exists: it.Exists}
	}
	return &c
}
