package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	campaignRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/campaign"
	"gorm.io/datatypes"
)

// CampaignStore owns the lifecycle of campaigns and their contacts.
// A phone number is stored at most once per campaign, and every campaign is
// visible to its owner only. Creating and updating campaigns and updating
// contacts is paid for through the ledger.
type CampaignStore struct {
	repo    campaignRepo.Repository
	ledger  *Ledger
	costs   domain.Costs
	retrier *storageRetrier
	logger  *slog.Logger
}

func NewCampaignStore(repo campaignRepo.Repository, ledger *Ledger, costs domain.Costs, maxRetry *int, logger *slog.Logger) (*CampaignStore, error) {
	retrier, err := newStorageRetrier(maxRetry, logger)
	if err != nil {
		return nil, err
	}
	return &CampaignStore{
		repo:    repo,
		ledger:  ledger,
		costs:   costs,
		retrier: retrier,
		logger:  logger,
	}, nil
}

func (s *CampaignStore) CreateCampaign(ctx context.Context, userID, name, description string, extraFieldKeys []string) (*domain.Campaign, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.InvalidInputf("campaign name is required")
	}

	res, err := s.charge(ctx, userID, s.costs.CampaignInsert)
	if err != nil {
		return nil, err
	}

	c := &domain.Campaign{
		UserID:         userID,
		Name:           name,
		Description:    description,
		ExtraFieldKeys: domain.NormalizeFieldKeys(extraFieldKeys),
	}
	if err := s.retrier.do(ctx, "createCampaign", func() error {
		c.ID = 0
		return s.repo.CreateCampaign(ctx, c)
	}); err != nil {
		s.refund(ctx, userID, res, "createCampaign")
		return nil, err
	}

	s.logger.Info("campaign created",
		slog.Int("campaignId", c.ID),
		slog.String("userId", userID),
		slog.Int("charged", res.Charged))
	return c, nil
}

func (s *CampaignStore) GetCampaign(ctx context.Context, userID string, id int) (*domain.Campaign, error) {
	var c *domain.Campaign
	err := s.retrier.do(ctx, "getCampaign", func() (err error) {
		c, err = s.repo.GetCampaign(ctx, userID, id)
		return err
	})
	return c, err
}

func (s *CampaignStore) ListCampaigns(ctx context.Context, userID string) ([]domain.Campaign, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	var campaigns []domain.Campaign
	err := s.retrier.do(ctx, "listCampaigns", func() (err error) {
		campaigns, err = s.repo.ListCampaigns(ctx, userID)
		return err
	})
	return campaigns, err
}

func (s *CampaignStore) UpdateCampaign(ctx context.Context, userID string, id int, name, description string) (*domain.Campaign, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.InvalidInputf("campaign name is required")
	}

	res, err := s.charge(ctx, userID, s.costs.CampaignUpdate)
	if err != nil {
		return nil, err
	}

	var c *domain.Campaign
	err = s.retrier.do(ctx, "updateCampaign", func() (err error) {
		c, err = s.repo.UpdateCampaign(ctx, userID, id, name, description)
		return err
	})
	if err != nil {
		s.refund(ctx, userID, res, "updateCampaign")
		return nil, err
	}
	return c, nil
}

// DeleteCampaignByID deletes the campaign and all of its contacts in one transaction.
// Deleting is free.
func (s *CampaignStore) DeleteCampaignByID(ctx context.Context, userID string, id int) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if id <= 0 {
		return domain.InvalidInputf("campaign id must be positive, got %d", id)
	}
	if err := s.retrier.do(ctx, "deleteCampaign", func() error {
		return s.repo.DeleteCampaign(ctx, userID, id)
	}); err != nil {
		return err
	}

	s.logger.Info("campaign deleted", slog.Int("campaignId", id), slog.String("userId", userID))
	return nil
}

// InsertContact stores a contact, or reports a duplicate without touching
// the store when the phone already exists in the campaign.
func (s *CampaignStore) InsertContact(ctx context.Context, userID string, campaignID int, in domain.ContactInput) (domain.InsertResult, error) {
	if err := validateUser(userID); err != nil {
		return domain.InsertResult{}, err
	}
	contact, err := newContact(campaignID, in)
	if err != nil {
		return domain.InsertResult{}, err
	}

	var result domain.InsertResult
	err = s.retrier.do(ctx, "insertContact", func() (err error) {
		contact.ID = 0
		result, err = s.repo.InsertContact(ctx, userID, contact)
		return err
	})
	return result, err
}

// BulkImport inserts every contact independently, in input order.
// Duplicates are collected, not treated as failures, and earlier inserts are
// kept when a later one fails.
func (s *CampaignStore) BulkImport(ctx context.Context, userID string, campaignID int, contacts []domain.ContactInput) (domain.ImportResult, error) {
	result := domain.ImportResult{InsertedIDs: []int{}, Duplicates: []string{}}
	if len(contacts) == 0 {
		return result, domain.ErrEmptySelection
	}

	// reject bad rows up front so a caller error never leaves a half import behind
	for i, in := range contacts {
		if _, err := newContact(campaignID, in); err != nil {
			return result, fmt.Errorf("contact %d: %w", i, err)
		}
	}

	for _, in := range contacts {
		res, err := s.InsertContact(ctx, userID, campaignID, in)
		if err != nil {
			s.logger.Error("bulk import stopped",
				slog.Int("campaignId", campaignID),
				slog.Int("inserted", len(result.InsertedIDs)),
				"error", err.Error())
			return result, err
		}
		switch res.Status {
		case domain.StatusInserted:
			result.InsertedIDs = append(result.InsertedIDs, res.ContactID)
		case domain.StatusDuplicate:
			result.Duplicates = append(result.Duplicates, res.Phone)
		}
	}

	s.logger.Info("bulk import finished",
		slog.Int("campaignId", campaignID),
		slog.Int("inserted", len(result.InsertedIDs)),
		slog.Int("duplicates", len(result.Duplicates)))
	return result, nil
}

// EstimateImport counts how many of the phones would be stored by an import.
// Phones repeated inside the request count as duplicates after their first occurrence.
func (s *CampaignStore) EstimateImport(ctx context.Context, userID string, campaignID int, phones []string) (domain.ImportEstimate, error) {
	if len(phones) == 0 {
		return domain.ImportEstimate{}, domain.ErrEmptySelection
	}

	normalized := make([]string, 0, len(phones))
	for _, p := range phones {
		normalized = append(normalized, domain.NormalizePhone(p))
	}

	if _, err := s.GetCampaign(ctx, userID, campaignID); err != nil {
		return domain.ImportEstimate{}, err
	}

	var existing map[string]struct{}
	err := s.retrier.do(ctx, "estimateImport", func() (err error) {
		existing, err = s.repo.ExistingPhones(ctx, userID, campaignID, normalized)
		return err
	})
	if err != nil {
		return domain.ImportEstimate{}, err
	}

	var est domain.ImportEstimate
	seen := make(map[string]struct{}, len(normalized))
	for _, p := range normalized {
		_, stored := existing[p]
		_, repeated := seen[p]
		if stored || repeated || p == "" {
			est.Duplicates++
			continue
		}
		seen[p] = struct{}{}
		est.NewCount++
	}
	return est, nil
}

// UpdateContact rewrites a contact. With checkDuplicate the new phone must not
// belong to another contact of the same campaign. A duplicate is not charged.
func (s *CampaignStore) UpdateContact(ctx context.Context, userID string, contactID int, in domain.ContactInput, checkDuplicate bool) (domain.UpdateResult, error) {
	if err := validateUser(userID); err != nil {
		return domain.UpdateResult{}, err
	}
	if contactID <= 0 {
		return domain.UpdateResult{}, domain.InvalidInputf("contact id must be positive, got %d", contactID)
	}
	in, err := normalizeInput(in)
	if err != nil {
		return domain.UpdateResult{}, err
	}

	res, err := s.charge(ctx, userID, s.costs.ContactUpdate)
	if err != nil {
		return domain.UpdateResult{}, err
	}

	var result domain.UpdateResult
	err = s.retrier.do(ctx, "updateContact", func() (err error) {
		result, err = s.repo.UpdateContact(ctx, userID, contactID, in, checkDuplicate)
		return err
	})
	if err != nil || result.Status == domain.StatusDuplicate {
		s.refund(ctx, userID, res, "updateContact")
	}
	return result, err
}

// DeleteContacts deletes all given contacts or none. Missing ids are ignored.
func (s *CampaignStore) DeleteContacts(ctx context.Context, userID string, ids []int) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return domain.InvalidInputf("no contact ids given")
	}
	for _, id := range ids {
		if id <= 0 {
			return domain.InvalidInputf("contact id must be positive, got %d", id)
		}
	}

	if err := s.retrier.do(ctx, "deleteContacts", func() error {
		return s.repo.DeleteContacts(ctx, userID, ids)
	}); err != nil {
		return err
	}

	s.logger.Info("contacts deleted", slog.String("userId", userID), slog.Int("count", len(ids)))
	return nil
}

func (s *CampaignStore) ListContacts(ctx context.Context, userID string, campaignID int) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := s.retrier.do(ctx, "listContacts", func() (err error) {
		contacts, err = s.repo.ListContacts(ctx, userID, campaignID)
		return err
	})
	return contacts, err
}

// GetContacts returns the contacts of the campaign among ids, in the order the
// ids were given. Unknown and repeated ids are skipped.
func (s *CampaignStore) GetContacts(ctx context.Context, userID string, campaignID int, ids []int) ([]domain.Contact, error) {
	if len(ids) == 0 {
		return nil, domain.ErrEmptySelection
	}

	var contacts []domain.Contact
	err := s.retrier.do(ctx, "getContacts", func() (err error) {
		contacts, err = s.repo.GetContacts(ctx, userID, campaignID, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orderByIDs(contacts, ids), nil
}

func (s *CampaignStore) CountContacts(ctx context.Context, userID string, campaignID int) (int64, error) {
	var count int64
	err := s.retrier.do(ctx, "countContacts", func() (err error) {
		count, err = s.repo.CountContacts(ctx, userID, campaignID)
		return err
	})
	return count, err
}

// charge reserves cost for a paid store operation. A non-positive cost is free.
func (s *CampaignStore) charge(ctx context.Context, userID string, cost int) (domain.Reservation, error) {
	if cost <= 0 {
		return domain.Reservation{}, nil
	}
	return s.ledger.Reserve(ctx, userID, cost)
}

func (s *CampaignStore) refund(ctx context.Context, userID string, res domain.Reservation, op string) {
	if res.Charged <= 0 {
		return
	}
	if _, err := s.ledger.Refund(ctx, userID, res.Charged); err != nil {
		s.logger.Error("failed to refund charge",
			slog.String("operation", op),
			slog.String("userId", userID),
			slog.Int("amount", res.Charged),
			"error", err.Error())
	}
}

func orderByIDs(contacts []domain.Contact, ids []int) []domain.Contact {
	byID := make(map[int]domain.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	out := make([]domain.Contact, 0, len(contacts))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, c)
		delete(byID, id)
	}
	return out
}

func newContact(campaignID int, in domain.ContactInput) (*domain.Contact, error) {
	if campaignID <= 0 {
		return nil, domain.InvalidInputf("campaign id must be positive, got %d", campaignID)
	}
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}
	return &domain.Contact{
		CampaignID:  campaignID,
		Name:        in.Name,
		Phone:       in.Phone,
		ExtraFields: datatypes.NewJSONType(in.ExtraFields),
	}, nil
}

func normalizeInput(in domain.ContactInput) (domain.ContactInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = domain.NormalizePhone(in.Phone)
	in.ExtraFields = domain.NormalizeFields(in.ExtraFields)

	if in.Name == "" {
		return in, domain.InvalidInputf("contact name is required")
	}
	if in.Phone == "" {
		return in, domain.InvalidInputf("contact phone is required")
	}
	return in, nil
}
