package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/bulk-messenger-service/internal/testutil"
)

type sendFixture struct {
	*env
	campaign *domain.Campaign
	contacts []domain.Contact
}

// newSendFixture seeds a campaign with contacts A, B and C and an account holding balance credits.
func newSendFixture(t *testing.T, cfg OrchestratorConfig, balance int) *sendFixture {
	t.Helper()

	e := newEnv(t, cfg)
	campaign := testutil.SeedCampaign(t, e.db, "u1", "c", "city")
	f := &sendFixture{env: e, campaign: campaign}
	for _, c := range []struct{ name, phone string }{{"Ann", "A"}, {"Bob", "B"}, {"Cem", "C"}} {
		contact := testutil.SeedContact(t, e.db, campaign.ID, c.name, c.phone, map[string]string{"city": "Izmir"})
		f.contacts = append(f.contacts, *contact)
	}
	testutil.SeedAccount(t, e.db, "u1", balance, false)
	return f
}

func (f *sendFixture) prepare(t *testing.T) *domain.SendBatch {
	t.Helper()
	batch, err := f.orchestrator.PrepareBatch(context.Background(), "u1", f.campaign, f.contacts, nil, []string{"Hi {{name}}", "from {{city}}"}, "")
	if err != nil {
		t.Fatalf("prepare batch: %v", err)
	}
	return batch
}

func TestPrepareBatch(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 0)

	custom := map[int][]string{f.contacts[1].ID: {"Yo {{name}} {{phone}}"}}
	batch, err := f.orchestrator.PrepareBatch(context.Background(), "u1", f.campaign,
		append(f.contacts, f.contacts[0]), custom, []string{"Hi {{name}}", "from {{city}}"}, "")
	if err != nil {
		t.Fatalf("prepare batch: %v", err)
	}

	if batch.State != domain.BatchPrepared || batch.Channel != DefaultChannel {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if len(batch.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(batch.Items))
	}
	if got := batch.Items[0].Fragments; len(got) != 2 || got[0] != "Hi Ann" || got[1] != "from Izmir" {
		t.Fatalf("unexpected fragments %q", got)
	}
	if got := batch.Items[1].Fragments; len(got) != 1 || got[0] != "Yo Bob B" {
		t.Fatalf("unexpected custom fragments %q", got)
	}
}

func TestPrepareBatchRenderFailureProducesNoBatch(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 0)

	tooLong := make([]byte, 1001)
	for i := range tooLong {
		tooLong[i] = 'x'
	}
	custom := map[int][]string{f.contacts[2].ID: {string(tooLong)}}

	_, err := f.orchestrator.PrepareBatch(context.Background(), "u1", f.campaign, f.contacts, custom, []string{"Hi"}, "")
	if !errors.Is(err, domain.ErrTemplateTooLarge) {
		t.Fatalf("expected ErrTemplateTooLarge, got %v", err)
	}

	if _, err := f.orchestrator.PrepareBatch(context.Background(), "u1", f.campaign, nil, nil, []string{"Hi"}, ""); !errors.Is(err, domain.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}

	foreign := f.contacts[0]
	foreign.CampaignID = f.campaign.ID + 1
	if _, err := f.orchestrator.PrepareBatch(context.Background(), "u1", f.campaign, []domain.Contact{foreign}, nil, []string{"Hi"}, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSendInsufficientCredits(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 5)
	batch := f.prepare(t)

	_, err := f.orchestrator.Send(context.Background(), batch, 2)

	var insufficient *domain.InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if insufficient.Required != 6 || insufficient.Available != 5 {
		t.Fatalf("got %+v, want required 6 available 5", insufficient)
	}
	var batchErr *domain.BatchError
	if !errors.As(err, &batchErr) || batchErr.BatchID != batch.ID {
		t.Fatalf("expected BatchError for %s, got %v", batch.ID, err)
	}
	if got := f.balance(t, "u1"); got != 5 {
		t.Fatalf("balance %d, want 5", got)
	}
	if n := f.dispatcher.calls(); n != 0 {
		t.Fatalf("dispatcher called %d times", n)
	}

	// the batch stays prepared and can be sent once credits are earned
	current, err := f.orchestrator.Batch(context.Background(), batch.ID)
	if err != nil || current.State != domain.BatchPrepared {
		t.Fatalf("unexpected batch after decline: %+v, %v", current, err)
	}
	if _, err := f.ledger.Grant(context.Background(), "u1", 1); err != nil {
		t.Fatalf("grant: %v", err)
	}
	sent, err := f.orchestrator.Send(context.Background(), batch, 2)
	if err != nil {
		t.Fatalf("send after grant: %v", err)
	}
	if sent.State != domain.BatchDispatched || f.balance(t, "u1") != 0 {
		t.Fatalf("unexpected batch after grant %+v", sent)
	}
}

func TestSendDispatches(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 10)
	batch := f.prepare(t)

	sent, err := f.orchestrator.Send(context.Background(), batch, 2)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.State != domain.BatchDispatched || sent.Cost != 6 || sent.DispatchedAt == nil {
		t.Fatalf("unexpected batch %+v", sent)
	}
	if got := f.balance(t, "u1"); got != 4 {
		t.Fatalf("balance %d, want 4", got)
	}
	if n := f.dispatcher.calls(); n != 1 {
		t.Fatalf("dispatcher called %d times, want 1", n)
	}
	req := f.dispatcher.reqs[0]
	if req.BatchID != batch.ID || len(req.Messages) != 3 {
		t.Fatalf("unexpected dispatch request %+v", req)
	}
	if !f.cache.has(batchKey(batch.ID)) {
		t.Fatal("dispatched batch was not cached")
	}

	if _, err := f.orchestrator.Send(context.Background(), batch, 2); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second send: expected ErrInvalidTransition, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 4 {
		t.Fatalf("second send charged, balance %d", got)
	}
}

func TestSendMinimumBatchCost(t *testing.T) {
	costs := domain.DefaultCosts()
	costs.MinMessageBatch = 10
	f := newSendFixture(t, OrchestratorConfig{Costs: costs}, 12)

	sent, err := f.orchestrator.Send(context.Background(), f.prepare(t), 2)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Cost != 10 || f.balance(t, "u1") != 2 {
		t.Fatalf("got cost %d balance %d, want 10 and 2", sent.Cost, f.balance(t, "u1"))
	}
}

func TestSendDispatchRejectedRefunds(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 10)
	f.dispatcher.err = fmt.Errorf("%w: status 400", dispatcher.ErrRejected)
	batch := f.prepare(t)

	_, err := f.orchestrator.Send(context.Background(), batch, 2)
	if !errors.Is(err, dispatcher.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var batchErr *domain.BatchError
	if !errors.As(err, &batchErr) || batchErr.BatchID != batch.ID {
		t.Fatalf("expected BatchError for %s, got %v", batch.ID, err)
	}
	if got := f.balance(t, "u1"); got != 10 {
		t.Fatalf("balance %d, want refunded 10", got)
	}
	current, err := f.orchestrator.Batch(context.Background(), batch.ID)
	if err != nil || current.State != domain.BatchFailed {
		t.Fatalf("unexpected batch %+v, %v", current, err)
	}
}

func TestSendDispatchUnconfirmedKeepsSpend(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 10)
	f.dispatcher.err = fmt.Errorf("post batch: %w", context.DeadlineExceeded)
	ctx := context.Background()
	batch := f.prepare(t)

	sent, err := f.orchestrator.Send(ctx, batch, 2)
	if !errors.Is(err, domain.ErrDispatchUnconfirmed) {
		t.Fatalf("expected ErrDispatchUnconfirmed, got %v", err)
	}
	if errors.Is(err, dispatcher.ErrRejected) {
		t.Fatalf("unconfirmed dispatch reported as rejected: %v", err)
	}
	if sent == nil || sent.State != domain.BatchDispatched || sent.Cost != 6 {
		t.Fatalf("unexpected batch %+v", sent)
	}
	if got := f.balance(t, "u1"); got != 4 {
		t.Fatalf("balance %d, want 4", got)
	}

	// the dispatcher did take the batch and reports on it later
	rb, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{BatchID: batch.ID, SentCount: 3, SuccessList: []string{"A"}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rb.SuccessCount() != 1 {
		t.Fatalf("unexpected reconciled batch %+v", rb)
	}
}

func TestPrepareBatchRejectsForeignCampaign(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 10)

	var notFound *domain.NotFoundError
	_, err := f.orchestrator.PrepareBatch(context.Background(), "u2", f.campaign, f.contacts, nil, []string{"Hi"}, "")
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 10)
	ctx := context.Background()
	batch, err := f.orchestrator.Send(ctx, f.prepare(t), 2)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	rb, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{SentCount: 3, SuccessList: []string{"A", "C"}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rb.BatchID != batch.ID || len(rb.Items) != 3 {
		t.Fatalf("unexpected reconciled batch %+v", rb)
	}
	want := map[string]bool{"A": true, "B": false, "C": true}
	for _, it := range rb.Items {
		if it.Exists != want[it.Phone] {
			t.Errorf("item %s exists=%v, want %v", it.Phone, it.Exists, want[it.Phone])
		}
	}

	msgs, err := f.orchestrator.MessageReport(ctx, "u1")
	if err != nil {
		t.Fatalf("message report: %v", err)
	}
	if len(msgs) != 1 || msgs[0].BatchID != batch.ID || msgs[0].SuccessCount != 2 || msgs[0].Cost != 6 {
		t.Fatalf("unexpected message report %+v", msgs)
	}

	if !f.cache.has(reconciledKey(batch.ID)) || f.cache.has(batchKey(batch.ID)) {
		t.Fatal("cache does not reflect reconciliation")
	}

	// a batch is reconciled only once
	if _, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{SentCount: 3, SuccessList: []string{"A"}}); !errors.Is(err, domain.ErrNoMatchingBatch) {
		t.Fatalf("expected ErrNoMatchingBatch, got %v", err)
	}
}

func TestReconcileUnknownPhone(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 10)
	if _, err := f.orchestrator.Send(context.Background(), f.prepare(t), 2); err != nil {
		t.Fatalf("send: %v", err)
	}

	_, err := f.orchestrator.Reconcile(context.Background(), domain.DeliveryReport{SentCount: 1, SuccessList: []string{"Z"}})
	if !errors.Is(err, domain.ErrNoMatchingBatch) {
		t.Fatalf("expected ErrNoMatchingBatch, got %v", err)
	}
}

func TestReconcileByBatchID(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 20)
	ctx := context.Background()

	first, err := f.orchestrator.Send(ctx, f.prepare(t), 2)
	if err != nil {
		t.Fatalf("send first: %v", err)
	}
	second, err := f.orchestrator.Send(ctx, f.prepare(t), 2)
	if err != nil {
		t.Fatalf("send second: %v", err)
	}

	rb, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{BatchID: second.ID, SentCount: 3, SuccessList: []string{"B"}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rb.BatchID != second.ID {
		t.Fatalf("reconciled %s, want %s", rb.BatchID, second.ID)
	}

	// without a batch id the remaining dispatched batch is matched
	rb, err = f.orchestrator.Reconcile(ctx, domain.DeliveryReport{SentCount: 3, SuccessList: []string{"A"}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rb.BatchID != first.ID {
		t.Fatalf("reconciled %s, want %s", rb.BatchID, first.ID)
	}
}

func TestResend(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 10)
	ctx := context.Background()

	batch, err := f.orchestrator.Send(ctx, f.prepare(t), 2)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{BatchID: batch.ID, SentCount: 3, SuccessList: []string{"A", "C"}}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if _, err := f.orchestrator.Resend(ctx, batch.ID, nil); !errors.Is(err, domain.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}

	resend, err := f.orchestrator.Resend(ctx, batch.ID, []int{f.contacts[1].ID})
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if resend.ID == batch.ID || resend.State != domain.BatchPrepared || len(resend.Items) != 1 || resend.Items[0].Phone != "B" {
		t.Fatalf("unexpected resend batch %+v", resend)
	}

	sent, err := f.orchestrator.Send(ctx, resend, 2)
	if err != nil {
		t.Fatalf("send resend: %v", err)
	}
	if sent.Cost != 2 || f.balance(t, "u1") != 2 {
		t.Fatalf("resend cost %d balance %d, want 2 and 2", sent.Cost, f.balance(t, "u1"))
	}

	var notFound *domain.NotFoundError
	if _, err := f.orchestrator.Resend(ctx, "missing", []int{1}); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestExpire(t *testing.T) {
	tests := []struct {
		name        string
		refund      bool
		wantBalance int
	}{
		{name: "keeps credits", refund: false, wantBalance: 4},
		{name: "refunds", refund: true, wantBalance: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSendFixture(t, OrchestratorConfig{ReportTimeout: time.Minute, RefundOnTimeout: tt.refund}, 10)
			ctx := context.Background()

			batch, err := f.orchestrator.Send(ctx, f.prepare(t), 2)
			if err != nil {
				t.Fatalf("send: %v", err)
			}

			if n := f.orchestrator.Expire(ctx); n != 0 {
				t.Fatalf("expired %d fresh batches", n)
			}

			now := time.Now().UTC().Add(2 * time.Minute)
			f.orchestrator.now = func() time.Time { return now }

			if n := f.orchestrator.Expire(ctx); n != 1 {
				t.Fatalf("expired %d batches, want 1", n)
			}
			if got := f.balance(t, "u1"); got != tt.wantBalance {
				t.Fatalf("balance %d, want %d", got, tt.wantBalance)
			}
			if f.cache.has(batchKey(batch.ID)) {
				t.Fatal("abandoned batch still cached")
			}

			if _, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{BatchID: batch.ID, SuccessList: []string{"A"}}); !errors.Is(err, domain.ErrNoMatchingBatch) {
				t.Fatalf("expected ErrNoMatchingBatch, got %v", err)
			}
		})
	}
}

func TestReconcileEmptyReportDoesNotCrossUsers(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 10)
	ctx := context.Background()

	testutil.SeedAccount(t, f.db, "u2", 10, false)
	other := testutil.SeedCampaign(t, f.db, "u2", "other")
	xavier := testutil.SeedContact(t, f.db, other.ID, "Xavier", "X", nil)

	mine, err := f.orchestrator.Send(ctx, f.prepare(t), 2)
	if err != nil {
		t.Fatalf("send u1: %v", err)
	}
	prepared, err := f.orchestrator.PrepareBatch(ctx, "u2", other, []domain.Contact{*xavier}, nil, []string{"Hi {{name}}"}, "")
	if err != nil {
		t.Fatalf("prepare u2: %v", err)
	}
	theirs, err := f.orchestrator.Send(ctx, prepared, 2)
	if err != nil {
		t.Fatalf("send u2: %v", err)
	}

	// an all failed report without batch id fits either batch
	if _, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{}); !errors.Is(err, domain.ErrNoMatchingBatch) {
		t.Fatalf("expected ErrNoMatchingBatch, got %v", err)
	}
	msgs, err := f.orchestrator.MessageReport(ctx, "u1")
	if err != nil || len(msgs) != 0 {
		t.Fatalf("ambiguous report was recorded: %+v, %v", msgs, err)
	}

	// its sent count points at u2's single message batch
	rb, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{SentCount: 1})
	if err != nil {
		t.Fatalf("reconcile by sent count: %v", err)
	}
	if rb.BatchID != theirs.ID || rb.UserID != "u2" || rb.SuccessCount() != 0 {
		t.Fatalf("unexpected reconciled batch %+v", rb)
	}

	current, err := f.orchestrator.Batch(ctx, mine.ID)
	if err != nil || current.State != domain.BatchDispatched {
		t.Fatalf("u1 batch changed: %+v, %v", current, err)
	}
}

func TestExpirePrunesSettledBatchesByDefault(t *testing.T) {
	f := newSendFixture(t, OrchestratorConfig{}, 20)
	ctx := context.Background()

	for range 5 {
		f.prepare(t)
	}
	sent, err := f.orchestrator.Send(ctx, f.prepare(t), 2)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	done, err := f.orchestrator.Send(ctx, f.prepare(t), 2)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.orchestrator.Reconcile(ctx, domain.DeliveryReport{BatchID: done.ID, SentCount: 3}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n := f.orchestrator.tracker.size(); n != 7 {
		t.Fatalf("tracking %d batches, want 7", n)
	}

	if n := f.orchestrator.Expire(ctx); n != 0 || f.orchestrator.tracker.size() != 7 {
		t.Fatalf("fresh batches pruned: abandoned=%d tracked=%d", n, f.orchestrator.tracker.size())
	}

	later := time.Now().UTC().Add(DefaultBatchRetention + time.Hour)
	f.orchestrator.now = func() time.Time { return later }

	// without a report timeout the dispatched batch keeps waiting
	if n := f.orchestrator.Expire(ctx); n != 0 {
		t.Fatalf("abandoned %d batches without a report timeout", n)
	}
	if n := f.orchestrator.tracker.size(); n != 1 {
		t.Fatalf("tracking %d batches after expiry, want 1", n)
	}
	if current, err := f.orchestrator.Batch(ctx, sent.ID); err != nil || current.State != domain.BatchDispatched {
		t.Fatalf("dispatched batch lost: %+v, %v", current, err)
	}
}
