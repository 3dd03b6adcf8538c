package domain

import "time"

// Account holds the credit balance of a single user.
type Account struct {
	UserID    string    `gorm:"primaryKey;type:varchar(128)" json:"user_id"`
	Balance   int       `gorm:"type:int;not null;default:0" json:"balance"`
	IsPremium bool      `gorm:"not null;default:false" json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Costs is the credit price list applied by the ledger callers.
type Costs struct {
	PerMessage      int `json:"per_message"`
	MinMessageBatch int `json:"min_message_batch"`
	ContactInsert   int `json:"contact_insert"`
	ContactUpdate   int `json:"contact_update"`
	CampaignInsert  int `json:"campaign_insert"`
	CampaignUpdate  int `json:"campaign_update"`
	Reward          int `json:"reward"`
}

func DefaultCosts() Costs {
	return Costs{
		PerMessage:     2,
		ContactInsert:  2,
		ContactUpdate:  2,
		CampaignInsert: 10,
		CampaignUpdate: 2,
		Reward:         10,
	}
}

// Reservation is the outcome of a successful credit reservation.
// Charged is zero for premium accounts.
type Reservation struct {
	NewBalance int `json:"new_balance"`
	Charged    int `json:"charged"`
}
