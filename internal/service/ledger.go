package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	accountRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/account"
)

// Ledger gates credit costing actions. Every balance mutation is a single
// storage transaction; callers never compute balances themselves.
type Ledger struct {
	repo    accountRepo.Repository
	costs   domain.Costs
	retrier *storageRetrier
	logger  *slog.Logger
}

func NewLedger(repo accountRepo.Repository, costs domain.Costs, maxRetry *int, logger *slog.Logger) (*Ledger, error) {
	retrier, err := newStorageRetrier(maxRetry, logger)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		repo:    repo,
		costs:   costs,
		retrier: retrier,
		logger:  logger,
	}, nil
}

// Reserve atomically deducts cost from the user's balance. It fails with
// *domain.InsufficientCreditsError without touching the balance when the balance
// does not cover the cost. Premium accounts are never charged.
func (l *Ledger) Reserve(ctx context.Context, userID string, cost int) (domain.Reservation, error) {
	if err := validateUser(userID); err != nil {
		return domain.Reservation{}, err
	}
	if cost <= 0 {
		return domain.Reservation{}, domain.InvalidInputf("cost must be positive, got %d", cost)
	}

	var res domain.Reservation
	err := l.retrier.do(ctx, "reserve", func() (err error) {
		res, err = l.repo.Reserve(ctx, userID, cost)
		return err
	})
	if err != nil {
		var insufficient *domain.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			l.logger.Info("reservation declined",
				slog.String("userId", userID),
				slog.Int("required", insufficient.Required),
				slog.Int("available", insufficient.Available))
		}
		return domain.Reservation{}, err
	}

	l.logger.Info("credits reserved",
		slog.String("userId", userID),
		slog.Int("charged", res.Charged),
		slog.Int("balance", res.NewBalance))
	return res, nil
}

// ReserveForIDs reserves perItemCost for every distinct id.
func (l *Ledger) ReserveForIDs(ctx context.Context, userID string, ids []int, perItemCost int) (domain.Reservation, error) {
	n := countDistinct(ids)
	if n == 0 {
		return domain.Reservation{}, domain.ErrEmptySelection
	}
	if perItemCost <= 0 {
		return domain.Reservation{}, domain.InvalidInputf("per item cost must be positive, got %d", perItemCost)
	}
	return l.Reserve(ctx, userID, perItemCost*n)
}

// Grant adds earned credits to the balance.
func (l *Ledger) Grant(ctx context.Context, userID string, amount int) (int, error) {
	balance, err := l.credit(ctx, "grant", userID, amount)
	if err != nil {
		return 0, err
	}
	l.logger.Info("credits granted", slog.String("userId", userID), slog.Int("amount", amount), slog.Int("balance", balance))
	return balance, nil
}

// Refund gives back credits of a reservation that was not used.
func (l *Ledger) Refund(ctx context.Context, userID string, amount int) (int, error) {
	balance, err := l.credit(ctx, "refund", userID, amount)
	if err != nil {
		return 0, err
	}
	l.logger.Info("credits refunded", slog.String("userId", userID), slog.Int("amount", amount), slog.Int("balance", balance))
	return balance, nil
}

// ClaimReward grants the reward of an earned credit action, e.g. a watched ad.
func (l *Ledger) ClaimReward(ctx context.Context, userID string) (int, error) {
	return l.Grant(ctx, userID, l.costs.Reward)
}

func (l *Ledger) Balance(ctx context.Context, userID string) (*domain.Account, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	var acc *domain.Account
	err := l.retrier.do(ctx, "balance", func() (err error) {
		acc, err = l.repo.Get(ctx, userID)
		return err
	})
	return acc, err
}

func (l *Ledger) SetPremium(ctx context.Context, userID string, premium bool) (*domain.Account, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	var acc *domain.Account
	err := l.retrier.do(ctx, "setPremium", func() (err error) {
		acc, err = l.repo.SetPremium(ctx, userID, premium)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("premium changed", slog.String("userId", userID), slog.Bool("premium", premium))
	return acc, nil
}

func (l *Ledger) credit(ctx context.Context, op, userID string, amount int) (int, error) {
	if err := validateUser(userID); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, domain.InvalidInputf("amount must be positive, got %d", amount)
	}

	var balance int
	err := l.retrier.do(ctx, op, func() (err error) {
		balance, err = l.repo.Credit(ctx, userID, amount)
		return err
	})
	return balance, err
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.InvalidInputf("user id is required")
	}
	return nil
}

func countDistinct(ids []int) int {
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
