package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	accountRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/account"
	campaignRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/campaign"
	reportRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/report"
	"github.com/aniladanir/bulk-messenger-service/internal/testutil"
	"gorm.io/gorm"
)

type fakeDispatcher struct {
	mtx  sync.Mutex
	reqs []dispatcher.Request
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req dispatcher.Request) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reqs = append(f.reqs, req)
	return nil
}

func (f *fakeDispatcher) calls() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return len(f.reqs)
}

var errCacheMiss = errors.New("miss")

type fakeCache struct {
	mtx  sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Set(_ context.Context, key, val string, _ time.Duration) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.data[key] = val
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", errCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeCache) has(key string) bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	_, ok := f.data[key]
	return ok
}

type env struct {
	db           *gorm.DB
	ledger       *Ledger
	store        *CampaignStore
	importer     *Importer
	orchestrator *Orchestrator
	dispatcher   *fakeDispatcher
	cache        *fakeCache
}

func newEnv(t *testing.T, cfg OrchestratorConfig) *env {
	t.Helper()

	db := testutil.DB(t)
	logger := testutil.Logger(t)
	maxRetry := 3
	cfg.MaxRetry = &maxRetry
	if cfg.Costs == (domain.Costs{}) {
		cfg.Costs = domain.DefaultCosts()
	}

	ledger, err := NewLedger(accountRepo.NewAccountRepository(db), cfg.Costs, &maxRetry, logger)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	store, err := NewCampaignStore(campaignRepo.NewCampaignRepository(db), ledger, cfg.Costs, &maxRetry, logger)
	if err != nil {
		t.Fatalf("new campaign store: %v", err)
	}

	d := &fakeDispatcher{}
	c := newFakeCache()
	o, err := NewOrchestrator(ledger, reportRepo.NewReportRepository(db), d, c, cfg, logger)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	return &env{
		db:           db,
		ledger:       ledger,
		store:        store,
		importer:     NewImporter(store, ledger, cfg.Costs, logger),
		orchestrator: o,
		dispatcher:   d,
		cache:        c,
	}
}

func (e *env) balance(t *testing.T, userID string) int {
	t.Helper()
	acc, err := e.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return acc.Balance
}

// contactCount counts the stored contacts of a campaign regardless of its owner.
func (e *env) contactCount(t *testing.T, campaignID int) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&domain.Contact{}).Where("campaign_id = ?", campaignID).Count(&n).Error; err != nil {
		t.Fatalf("count contacts: %v", err)
	}
	return n
}
