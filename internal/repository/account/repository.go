package repository

import (
	"context"
	"errors"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/bulk-messenger-service/internal/persistant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Get(ctx context.Context, userID string) (*domain.Account, error)
	Reserve(ctx context.Context, userID string, cost int) (domain.Reservation, error)
	Credit(ctx context.Context, userID string, amount int) (int, error)
	SetPremium(ctx context.Context, userID string, premium bool) (*domain.Account, error)
}

type repo struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// Get returns the account of the user. A user without an account row has an empty balance.
func (r *repo) Get(ctx context.Context, userID string) (*domain.Account, error) {
	var acc domain.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.Account{UserID: userID}, nil
	}
	if err != nil {
		return nil, persistant.Classify(err)
	}
	return &acc, nil
}

// Reserve deducts cost from the balance if the balance covers it.
// Premium accounts are never charged.
func (r *repo) Reserve(ctx context.Context, userID string, cost int) (res domain.Reservation, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// lock the account row so concurrent reservations queue behind each other
		var acc domain.Account
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).Take(&acc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.InsufficientCreditsError{Required: cost, Available: 0}
		}
		if err != nil {
			return err
		}

		if acc.IsPremium {
			res.NewBalance = acc.Balance
			return nil
		}

		if acc.Balance < cost {
			return &domain.InsufficientCreditsError{Required: cost, Available: acc.Balance}
		}

		// the balance precondition keeps the deduction safe even where row locks are unsupported
		upd := tx.Model(&domain.Account{}).
			Where("user_id = ? AND balance >= ?", userID, cost).
			Update("balance", gorm.Expr("balance - ?", cost))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			if err := tx.Where("user_id = ?", userID).Take(&acc).Error; err != nil {
				return err
			}
			return &domain.InsufficientCreditsError{Required: cost, Available: acc.Balance}
		}

		res = domain.Reservation{NewBalance: acc.Balance - cost, Charged: cost}
		return nil
	})
	if err != nil {
		return domain.Reservation{}, persistant.Classify(err)
	}

	return res, nil
}

// Credit adds amount to the balance, creating the account if it does not exist yet.
func (r *repo) Credit(ctx context.Context, userID string, amount int) (newBalance int, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAccount(tx, userID); err != nil {
			return err
		}

		if err := tx.Model(&domain.Account{}).
			Where("user_id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}

		var acc domain.Account
		if err := tx.Where("user_id = ?", userID).Take(&acc).Error; err != nil {
			return err
		}
		newBalance = acc.Balance
		return nil
	})

	return newBalance, persistant.Classify(err)
}

// SetPremium toggles the premium flag of the account.
func (r *repo) SetPremium(ctx context.Context, userID string, premium bool) (*domain.Account, error) {
	var acc domain.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAccount(tx, userID); err != nil {
			return err
		}

		if err := tx.Model(&domain.Account{}).
			Where("user_id = ?", userID).
			Update("is_premium", premium).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", userID).Take(&acc).Error
	})
	if err != nil {
		return nil, persistant.Classify(err)
	}
	return &acc, nil
}

func ensureAccount(tx *gorm.DB, userID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Account{UserID: userID}).Error
}
