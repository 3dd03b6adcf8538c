package domain

import (
	"time"

	"gorm.io/datatypes"
)

type BatchState string

const (
	BatchPrepared   BatchState = "prepared"
	BatchReserved   BatchState = "reserved"
	BatchDispatched BatchState = "dispatched"
	BatchReconciled BatchState = "reconciled"
	BatchFailed     BatchState = "failed"
	BatchAbandoned  BatchState = "abandoned"
)

// BatchItem is one personalized message of a batch.
type BatchItem struct {
	ContactID int      `json:"contact_id"`
	Phone     string   `json:"phone"`
	Name      string   `json:"name"`
	Fragments []string `json:"fragments"`
}

// SendBatch is the set of rendered messages produced by one send request.
// Items must not be modified once the batch is dispatched.
type SendBatch struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	CampaignID   int         `json:"campaign_id"`
	Channel      string      `json:"channel"`
	State        BatchState  `json:"state"`
	Cost         int         `json:"cost"`
	CreatedAt    time.Time   `json:"created_at"`
	DispatchedAt *time.Time  `json:"dispatched_at,omitempty"`
	Items        []BatchItem `json:"items"`
}

func (b *SendBatch) ContactIDs() []int {
	ids := make([]int, 0, len(b.Items))
	for _, it := range b.Items {
		ids = append(ids, it.ContactID)
	}
	return ids
}

func (b *SendBatch) Phones() []string {
	phones := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		phones = append(phones, it.Phone)
	}
	return phones
}

// DeliveryReport is the asynchronous outcome of a dispatched batch.
// BatchID is optional; without it the report is correlated by phone set.
type DeliveryReport struct {
	BatchID     string   `json:"batch_id,omitempty"`
	SentCount   int      `json:"sent_count"`
	SuccessList []string `json:"success_list"`
}

type ReconciledItem struct {
	BatchItem
	Exists bool `json:"exists"`
}

type ReconciledBatch struct {
	BatchID      string           `json:"batch_id"`
	UserID       string           `json:"user_id"`
	CampaignID   int              `json:"campaign_id"`
	Channel      string           `json:"channel"`
	SentCount    int              `json:"sent_count"`
	ReconciledAt time.Time        `json:"reconciled_at"`
	Items        []ReconciledItem `json:"items"`
}

func (r *ReconciledBatch) SuccessCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Exists {
			n++
		}
	}
	return n
}

// SentMessage is the persisted log entry of a reconciled batch.
type SentMessage struct {
	ID           int                                 `gorm:"primaryKey" json:"id"`
	UserID       string                              `gorm:"type:varchar(128);not null;index" json:"user_id"`
	BatchID      string                              `gorm:"type:varchar(64);not null;uniqueIndex" json:"batch_id"`
	CampaignID   int                                 `gorm:"not null;index" json:"campaign_id"`
	Channel      string                              `gorm:"type:varchar(64)" json:"channel"`
	Cost         int                                 `gorm:"type:int;not null" json:"cost"`
	SentCount    int                                 `gorm:"type:int;not null" json:"sent_count"`
	SuccessCount int                                 `gorm:"type:int;not null" json:"success_count"`
	Items        datatypes.JSONSlice[ReconciledItem] `json:"items"`
	CreatedAt    time.Time                           `json:"created_at"`
}
