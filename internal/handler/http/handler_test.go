package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	accountRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/account"
	campaignRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/campaign"
	reportRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/report"
	"github.com/aniladanir/bulk-messenger-service/internal/service"
	"github.com/aniladanir/bulk-messenger-service/internal/testutil"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	reqs []dispatcher.Request
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req dispatcher.Request) error {
	d.reqs = append(d.reqs, req)
	return nil
}

type testServer struct {
	t          *testing.T
	db         *gorm.DB
	handler    http.Handler
	dispatcher *recordingDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	logger := testutil.Logger(t)
	costs := domain.DefaultCosts()
	maxRetry := 3

	ledger, err := service.NewLedger(accountRepo.NewAccountRepository(db), costs, &maxRetry, logger)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	store, err := service.NewCampaignStore(campaignRepo.NewCampaignRepository(db), ledger, costs, &maxRetry, logger)
	if err != nil {
		t.Fatalf("new campaign store: %v", err)
	}
	d := &recordingDispatcher{}
	orchestrator, err := service.NewOrchestrator(ledger, reportRepo.NewReportRepository(db), d, nil,
		service.OrchestratorConfig{Costs: costs, MaxRetry: &maxRetry}, logger)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	h := NewHttpHandler(":0", Services{
		Ledger:       ledger,
		Campaigns:    store,
		Importer:     service.NewImporter(store, ledger, costs, logger),
		Orchestrator: orchestrator,
		Costs:        costs,
	}, logger)

	return &testServer{t: t, db: db, handler: h.server.Handler, dispatcher: d}
}

func (s *testServer) do(method, path, user string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userIDHeader, user)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("got status %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
}

func TestRequiresUser(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do(http.MethodGet, "/accounts/me", "", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodGet, "/accounts/me", "u1", nil), http.StatusOK)
}

func TestAccountRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/accounts/me/reward", "u1", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[balanceResponse](t, rec); got.Balance != 10 {
		t.Fatalf("balance %d, want 10", got.Balance)
	}

	rec = s.do(http.MethodPost, "/accounts/me/grant", "u1", grantRequest{Amount: 5})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[balanceResponse](t, rec); got.Balance != 15 {
		t.Fatalf("balance %d, want 15", got.Balance)
	}

	expectStatus(t, s.do(http.MethodPost, "/accounts/me/grant", "u1", grantRequest{Amount: -5}), http.StatusBadRequest)

	rec = s.do(http.MethodPut, "/accounts/me/premium", "u1", map[string]bool{"premium": true})
	expectStatus(t, rec, http.StatusOK)
	if acc := decode[domain.Account](t, rec); !acc.IsPremium || acc.Balance != 15 {
		t.Fatalf("unexpected account %+v", acc)
	}
	expectStatus(t, s.do(http.MethodPut, "/accounts/me/premium", "u1", `{}`), http.StatusBadRequest)
}

func TestCampaignAndContactRoutes(t *testing.T) {
	s := newTestServer(t)
	testutil.SeedAccount(t, s.db, "u1", 14, false)

	rec := s.do(http.MethodPost, "/campaigns", "u1", campaignRequest{Name: "Sale", ExtraFieldKeys: []string{"City"}})
	expectStatus(t, rec, http.StatusCreated)
	campaign := decode[domain.Campaign](t, rec)
	if campaign.UserID != "u1" {
		t.Fatalf("unexpected owner %q", campaign.UserID)
	}
	base := fmt.Sprintf("/campaigns/%d", campaign.ID)

	rec = s.do(http.MethodPost, base+"/contacts", "u1", domain.ContactInput{Name: "Ann", Phone: "100"})
	expectStatus(t, rec, http.StatusCreated)
	ann := decode[service.ImportOutcome](t, rec)
	if ann.Charged != 2 || ann.Balance != 2 {
		t.Fatalf("unexpected outcome %+v", ann)
	}

	// duplicate is free
	rec = s.do(http.MethodPost, base+"/contacts", "u1", domain.ContactInput{Name: "Ann", Phone: "100"})
	expectStatus(t, rec, http.StatusOK)
	if out := decode[service.ImportOutcome](t, rec); out.Charged != 0 || len(out.Duplicates) != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	rec = s.do(http.MethodPost, base+"/contacts/estimate", "u1", "Bob,200\nCem,300\nAnn,100\n")
	expectStatus(t, rec, http.StatusBadRequest)

	req := httptest.NewRequest(http.MethodPost, base+"/contacts/estimate", strings.NewReader("Bob,200\nCem,300\nAnn,100\n"))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set(userIDHeader, "u1")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if quote := decode[service.ImportQuote](t, rec); quote.NewCount != 2 || quote.Duplicates != 1 || quote.Cost != 4 {
		t.Fatalf("unexpected quote %+v", quote)
	}

	// 2 new contacts cost 4, balance is 2
	rec = s.do(http.MethodPost, base+"/contacts/import", "u1", contactsRequest{Contacts: []domain.ContactInput{
		{Name: "Bob", Phone: "200"}, {Name: "Cem", Phone: "300"},
	}})
	expectStatus(t, rec, http.StatusPaymentRequired)
	if resp := decode[errorResponse](t, rec); resp.Required != 4 || resp.Available == nil || *resp.Available != 2 {
		t.Fatalf("unexpected error response %+v", resp)
	}

	// renaming spends the last 2 credits
	expectStatus(t, s.do(http.MethodPut, base, "u1", campaignRequest{Name: "Sale 2"}), http.StatusOK)
	rec = s.do(http.MethodGet, "/accounts/me", "u1", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[balanceResponse](t, rec); got.Balance != 0 {
		t.Fatalf("balance %d, want 0", got.Balance)
	}

	contactPath := fmt.Sprintf("/contacts/%d", ann.InsertedIDs[0])
	expectStatus(t, s.do(http.MethodPut, contactPath, "u1", updateContactRequest{ContactInput: domain.ContactInput{Name: "Ann B", Phone: "100"}}), http.StatusPaymentRequired)
	expectStatus(t, s.do(http.MethodPost, "/campaigns", "u1", campaignRequest{Name: "Another"}), http.StatusPaymentRequired)

	rec = s.do(http.MethodGet, base, "u1", nil)
	expectStatus(t, rec, http.StatusOK)
	var got struct {
		Name         string   `json:"name"`
		Placeholders []string `json:"placeholders"`
		ContactCount int64    `json:"contact_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode campaign: %v", err)
	}
	if got.Name != "Sale 2" || got.ContactCount != 1 || len(got.Placeholders) != 3 {
		t.Fatalf("unexpected campaign %+v", got)
	}

	// other users neither see nor change the campaign
	testutil.SeedAccount(t, s.db, "u2", 20, false)
	expectStatus(t, s.do(http.MethodGet, base, "u2", nil), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodPut, base, "u2", campaignRequest{Name: "Mine"}), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodPut, contactPath, "u2", updateContactRequest{ContactInput: domain.ContactInput{Name: "Eve", Phone: "100"}}), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodPost, base+"/contacts", "u2", domain.ContactInput{Name: "Eve", Phone: "900"}), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodDelete, base, "u2", nil), http.StatusNoContent)
	rec = s.do(http.MethodGet, "/campaigns", "u2", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decode[[]domain.Campaign](t, rec); len(list) != 0 {
		t.Fatalf("u2 sees campaigns %+v", list)
	}
	expectStatus(t, s.do(http.MethodGet, base, "u1", nil), http.StatusOK)

	expectStatus(t, s.do(http.MethodGet, "/campaigns/abc", "u1", nil), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodGet, "/campaigns/999", "u1", nil), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodDelete, "/contacts", "u1", deleteContactsRequest{}), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodDelete, base, "u1", nil), http.StatusNoContent)
	expectStatus(t, s.do(http.MethodGet, base, "u1", nil), http.StatusNotFound)
}

func TestSendAndReportRoutes(t *testing.T) {
	s := newTestServer(t)
	campaign := testutil.SeedCampaign(t, s.db, "u1", "c")
	a := testutil.SeedContact(t, s.db, campaign.ID, "Ann", "A", nil)
	b := testutil.SeedContact(t, s.db, campaign.ID, "Bob", "B", nil)
	c := testutil.SeedContact(t, s.db, campaign.ID, "Cem", "C", nil)
	testutil.SeedAccount(t, s.db, "u1", 5, false)
	testutil.SeedAccount(t, s.db, "u2", 10, false)

	path := fmt.Sprintf("/campaigns/%d/send", campaign.ID)
	send := sendRequest{ContactIDs: []int{c.ID, a.ID, b.ID}, Template: []string{"Hi {{name}}"}}

	rec := s.do(http.MethodPost, path, "u1", send)
	expectStatus(t, rec, http.StatusPaymentRequired)
	resp := decode[errorResponse](t, rec)
	if resp.Required != 6 || *resp.Available != 5 || resp.BatchID == "" {
		t.Fatalf("unexpected error response %+v", resp)
	}
	if len(s.dispatcher.reqs) != 0 {
		t.Fatal("batch dispatched without credits")
	}

	// the campaign is not u2's to send
	expectStatus(t, s.do(http.MethodPost, path, "u2", send), http.StatusNotFound)

	expectStatus(t, s.do(http.MethodPost, "/accounts/me/grant", "u1", grantRequest{Amount: 5}), http.StatusOK)
	rec = s.do(http.MethodPost, path, "u1", send)
	expectStatus(t, rec, http.StatusAccepted)
	batch := decode[domain.SendBatch](t, rec)
	if batch.State != domain.BatchDispatched || batch.Cost != 6 {
		t.Fatalf("unexpected batch %+v", batch)
	}
	// items follow the order of contact_ids
	if len(batch.Items) != 3 || batch.Items[0].Phone != "C" || batch.Items[1].Phone != "A" || batch.Items[2].Phone != "B" {
		t.Fatalf("unexpected item order %+v", batch.Items)
	}

	expectStatus(t, s.do(http.MethodGet, "/batches/"+batch.ID, "u2", nil), http.StatusNotFound)

	rec = s.do(http.MethodPost, "/reports", "", `{"sent_count":3,"success_list":"[{\"phone\":\"A\"},{\"phone\":\"C\"}]"}`)
	expectStatus(t, rec, http.StatusOK)
	rb := decode[domain.ReconciledBatch](t, rec)
	if rb.BatchID != batch.ID || rb.SuccessCount() != 2 {
		t.Fatalf("unexpected reconciled batch %+v", rb)
	}

	expectStatus(t, s.do(http.MethodPost, "/reports", "", `{"sent_count":3,"success_list":["A"]}`), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodPost, "/reports", "", `{"sent_count":3,"success_list":7}`), http.StatusBadRequest)

	rec = s.do(http.MethodGet, "/batches/"+batch.ID, "u1", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[batchResponse](t, rec); got.Reconciled == nil || got.Batch.State != domain.BatchReconciled {
		t.Fatalf("unexpected batch response %+v", got)
	}

	expectStatus(t, s.do(http.MethodPost, "/batches/"+batch.ID+"/resend", "u2", resendRequest{ContactIDs: []int{b.ID}}), http.StatusNotFound)
	rec = s.do(http.MethodPost, "/batches/"+batch.ID+"/resend", "u1", resendRequest{ContactIDs: []int{b.ID}})
	expectStatus(t, rec, http.StatusAccepted)
	if resent := decode[domain.SendBatch](t, rec); resent.Cost != 2 || len(resent.Items) != 1 {
		t.Fatalf("unexpected resend %+v", resent)
	}

	rec = s.do(http.MethodGet, "/reports", "u1", nil)
	expectStatus(t, rec, http.StatusOK)
	if msgs := decode[[]domain.SentMessage](t, rec); len(msgs) != 1 || msgs[0].SuccessCount != 2 {
		t.Fatalf("unexpected reports %+v", msgs)
	}
}

func TestPreviewRoute(t *testing.T) {
	s := newTestServer(t)
	campaign := testutil.SeedCampaign(t, s.db, "u1", "c", "city")
	a := testutil.SeedContact(t, s.db, campaign.ID, "Ann", "A", map[string]string{"city": "Izmir"})
	b := testutil.SeedContact(t, s.db, campaign.ID, "Bob", "B", map[string]string{"city": "Bursa"})
	path := fmt.Sprintf("/campaigns/%d/preview", campaign.ID)

	rec := s.do(http.MethodPost, path, "u1", previewRequest{ContactIDs: []int{b.ID, a.ID}, Template: []string{"Hi {{name}}", "in {{city}}"}})
	expectStatus(t, rec, http.StatusOK)
	items := decode[[]previewItem](t, rec)
	if len(items) != 2 || items[0].ContactID != b.ID || items[1].Fragments[0] != "Hi Ann" || items[1].Fragments[1] != "in Izmir" {
		t.Fatalf("unexpected preview %+v", items)
	}

	expectStatus(t, s.do(http.MethodPost, path, "u1", previewRequest{ContactIDs: []int{a.ID}, Template: []string{strings.Repeat("x", 1001)}}), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, path, "u1", previewRequest{Template: []string{"Hi"}}), http.StatusBadRequest)
	expectStatus(t, s.do(http.MethodPost, path, "u2", previewRequest{ContactIDs: []int{a.ID}, Template: []string{"Hi"}}), http.StatusNotFound)
}

func TestWriteErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: testutil.Logger(t)}

	tests := []struct {
		err  error
		want int
	}{
		{domain.InvalidInputf("bad"), http.StatusBadRequest},
		{domain.ErrEmptySelection, http.StatusBadRequest},
		{fmt.Errorf("render: %w", domain.ErrTemplateTooLarge), http.StatusBadRequest},
		{domain.NewNotFound("campaign", 1), http.StatusNotFound},
		{domain.ErrNoMatchingBatch, http.StatusNotFound},
		{&domain.BatchError{BatchID: "b", Err: &domain.InsufficientCreditsError{Required: 2, Available: 1}}, http.StatusPaymentRequired},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{fmt.Errorf("%w: locked", domain.ErrStorageUnavailable), http.StatusServiceUnavailable},
		{&domain.BatchError{BatchID: "b", Err: fmt.Errorf("%w: status 400", dispatcher.ErrRejected)}, http.StatusBadGateway},
		{&domain.BatchError{BatchID: "b", Err: fmt.Errorf("%w: timeout", domain.ErrDispatchUnconfirmed)}, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		h.writeError(c, tt.err)
		if rec.Code != tt.want {
			t.Errorf("%v: got status %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}
