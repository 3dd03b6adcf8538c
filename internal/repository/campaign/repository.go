package repository

import (
	"context"
	"errors"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/bulk-messenger-service/internal/persistant"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// phoneLookupChunk bounds the number of bind variables of a single IN query
const phoneLookupChunk = 500

type Repository interface {
	CreateCampaign(ctx context.Context, campaign *domain.Campaign) error
	GetCampaign(ctx context.Context, userID string, id int) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context, userID string) ([]domain.Campaign, error)
	UpdateCampaign(ctx context.Context, userID string, id int, name, description string) (*domain.Campaign, error)
	DeleteCampaign(ctx context.Context, userID string, id int) error

	InsertContact(ctx context.Context, userID string, contact *domain.Contact) (domain.InsertResult, error)
	UpdateContact(ctx context.Context, userID string, id int, in domain.ContactInput, checkDuplicate bool) (domain.UpdateResult, error)
	DeleteContacts(ctx context.Context, userID string, ids []int) error
	ListContacts(ctx context.Context, userID string, campaignID int) ([]domain.Contact, error)
	GetContacts(ctx context.Context, userID string, campaignID int, ids []int) ([]domain.Contact, error)
	CountContacts(ctx context.Context, userID string, campaignID int) (int64, error)
	ExistingPhones(ctx context.Context, userID string, campaignID int, phones []string) (map[string]struct{}, error)
}

type repo struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) Repository {
	return &repo{db: db}
}

// ownedCampaigns selects the ids of the user's campaigns, for use as a subquery.
func ownedCampaigns(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&domain.Campaign{}).Select("id").Where("user_id = ?", userID)
}

func (r *repo) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	return persistant.Classify(r.db.WithContext(ctx).Omit("Contacts").Create(campaign).Error)
}

func (r *repo) GetCampaign(ctx context.Context, userID string, id int) (*domain.Campaign, error) {
	var c domain.Campaign
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFound("campaign", id)
	}
	if err != nil {
		return nil, persistant.Classify(err)
	}
	return &c, nil
}

func (r *repo) ListCampaigns(ctx context.Context, userID string) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&campaigns).Error
	return campaigns, persistant.Classify(err)
}

func (r *repo) UpdateCampaign(ctx context.Context, userID string, id int, name, description string) (*domain.Campaign, error) {
	var c domain.Campaign
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFound("campaign", id)
			}
			return err
		}
		return tx.Model(&c).Updates(map[string]any{
			"name":        name,
			"description": description,
		}).Error
	})
	if err != nil {
		return nil, persistant.Classify(err)
	}
	c.Name, c.Description = name, description
	return &c, nil
}

// DeleteCampaign removes the campaign together with all of its contacts.
// Deleting a missing or foreign campaign is a no-op.
func (r *repo) DeleteCampaign(ctx context.Context, userID string, id int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&domain.Campaign{}).Where("id = ? AND user_id = ?", id, userID).Count(&owned).Error; err != nil {
			return err
		}
		if owned == 0 {
			return nil
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&domain.Contact{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Campaign{}).Error
	})
	return persistant.Classify(err)
}

// InsertContact stores the contact unless its phone already exists in the campaign.
// The unique index on (campaign_id, phone) decides races between concurrent inserts.
func (r *repo) InsertContact(ctx context.Context, userID string, contact *domain.Contact) (domain.InsertResult, error) {
	result := domain.InsertResult{Phone: contact.Phone}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaigns int64
		if err := tx.Model(&domain.Campaign{}).
			Where("id = ? AND user_id = ?", contact.CampaignID, userID).
			Count(&campaigns).Error; err != nil {
			return err
		}
		if campaigns == 0 {
			return domain.NewNotFound("campaign", contact.CampaignID)
		}

		var existing domain.Contact
		err := tx.Select("id").
			Where("campaign_id = ? AND phone = ?", contact.CampaignID, contact.Phone).
			Take(&existing).Error
		if err == nil {
			result.Status = domain.StatusDuplicate
			result.ContactID = existing.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(contact).Error; err != nil {
			return err
		}
		result.Status = domain.StatusInserted
		result.ContactID = contact.ID
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost the race against a concurrent insert of the same phone
		return domain.InsertResult{Status: domain.StatusDuplicate, Phone: contact.Phone}, nil
	}
	if err != nil {
		return domain.InsertResult{}, persistant.Classify(err)
	}

	return result, nil
}

func (r *repo) UpdateContact(ctx context.Context, userID string, id int, in domain.ContactInput, checkDuplicate bool) (domain.UpdateResult, error) {
	result := domain.UpdateResult{Status: domain.StatusUpdated}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c domain.Contact
		if err := tx.Where("id = ? AND campaign_id IN (?)", id, ownedCampaigns(tx, userID)).Take(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFound("contact", id)
			}
			return err
		}

		if checkDuplicate {
			var clashes int64
			if err := tx.Model(&domain.Contact{}).
				Where("campaign_id = ? AND phone = ? AND id <> ?", c.CampaignID, in.Phone, id).
				Count(&clashes).Error; err != nil {
				return err
			}
			if clashes > 0 {
				result = domain.UpdateResult{Status: domain.StatusDuplicate, Phone: in.Phone}
				return nil
			}
		}

		return tx.Model(&c).Updates(map[string]any{
			"name":         in.Name,
			"phone":        in.Phone,
			"extra_fields": datatypes.NewJSONType(in.ExtraFields),
		}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.UpdateResult{Status: domain.StatusDuplicate, Phone: in.Phone}, nil
	}
	if err != nil {
		return domain.UpdateResult{}, persistant.Classify(err)
	}

	return result, nil
}

// DeleteContacts removes all given contacts of the user or none of them.
// Contacts of other users' campaigns are left untouched.
func (r *repo) DeleteContacts(ctx context.Context, userID string, ids []int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("id IN ? AND campaign_id IN (?)", ids, ownedCampaigns(tx, userID)).
			Delete(&domain.Contact{}).Error
	})
	return persistant.Classify(err)
}

func (r *repo) ListContacts(ctx context.Context, userID string, campaignID int) ([]domain.Contact, error) {
	db := r.db.WithContext(ctx)

	var contacts []domain.Contact
	err := db.Where("campaign_id = ? AND campaign_id IN (?)", campaignID, ownedCampaigns(db, userID)).
		Order("id").Find(&contacts).Error
	return contacts, persistant.Classify(err)
}

func (r *repo) GetContacts(ctx context.Context, userID string, campaignID int, ids []int) ([]domain.Contact, error) {
	db := r.db.WithContext(ctx)

	var contacts []domain.Contact
	err := db.Where("campaign_id = ? AND campaign_id IN (?) AND id IN ?", campaignID, ownedCampaigns(db, userID), ids).
		Order("id").Find(&contacts).Error
	return contacts, persistant.Classify(err)
}

func (r *repo) CountContacts(ctx context.Context, userID string, campaignID int) (int64, error) {
	db := r.db.WithContext(ctx)

	var count int64
	err := db.Model(&domain.Contact{}).
		Where("campaign_id = ? AND campaign_id IN (?)", campaignID, ownedCampaigns(db, userID)).
		Count(&count).Error
	return count, persistant.Classify(err)
}

// ExistingPhones returns the subset of phones already stored in the campaign.
func (r *repo) ExistingPhones(ctx context.Context, userID string, campaignID int, phones []string) (map[string]struct{}, error) {
	db := r.db.WithContext(ctx)

	existing := make(map[string]struct{})
	for start := 0; start < len(phones); start += phoneLookupChunk {
		end := min(start+phoneLookupChunk, len(phones))

		var found []string
		if err := db.Model(&domain.Contact{}).
			Where("campaign_id = ? AND campaign_id IN (?) AND phone IN ?", campaignID, ownedCampaigns(db, userID), phones[start:end]).
			Pluck("phone", &found).Error; err != nil {
			return nil, persistant.Classify(err)
		}
		for _, p := range found {
			existing[p] = struct{}{}
		}
	}
	return existing, nil
}
