package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
)

// ImportQuote is the pre-flight result of an import: what it would store and cost.
type ImportQuote struct {
	domain.ImportEstimate
	Cost int `json:"cost"`
}

type ImportOutcome struct {
	domain.ImportResult
	Charged int `json:"charged"`
	Balance int `json:"balance"`
}

// Importer charges contact imports so that only stored contacts are paid for.
type Importer struct {
	store  *CampaignStore
	ledger *Ledger
	costs  domain.Costs
	logger *slog.Logger
}

func NewImporter(store *CampaignStore, ledger *Ledger, costs domain.Costs, logger *slog.Logger) *Importer {
	return &Importer{
		store:  store,
		ledger: ledger,
		costs:  costs,
		logger: logger,
	}
}

func (i *Importer) Quote(ctx context.Context, userID string, campaignID int, contacts []domain.ContactInput) (ImportQuote, error) {
	phones := make([]string, 0, len(contacts))
	for _, c := range contacts {
		phones = append(phones, c.Phone)
	}

	est, err := i.store.EstimateImport(ctx, userID, campaignID, phones)
	if err != nil {
		return ImportQuote{}, err
	}
	return ImportQuote{ImportEstimate: est, Cost: est.NewCount * i.costs.ContactInsert}, nil
}

// Import reserves credits for the contacts expected to be new, imports them and
// refunds the share of contacts that turned out to be duplicates meanwhile.
func (i *Importer) Import(ctx context.Context, userID string, campaignID int, contacts []domain.ContactInput) (*ImportOutcome, error) {
	quote, err := i.Quote(ctx, userID, campaignID, contacts)
	if err != nil {
		return nil, err
	}

	var res domain.Reservation
	if quote.Cost > 0 {
		if res, err = i.ledger.Reserve(ctx, userID, quote.Cost); err != nil {
			return nil, err
		}
	} else {
		acc, err := i.ledger.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		res.NewBalance = acc.Balance
	}

	result, importErr := i.store.BulkImport(ctx, userID, campaignID, contacts)

	outcome := &ImportOutcome{ImportResult: result, Balance: res.NewBalance}
	outcome.Charged = min(res.Charged, len(result.InsertedIDs)*i.costs.ContactInsert)

	if unused := res.Charged - outcome.Charged; unused > 0 {
		balance, err := i.ledger.Refund(ctx, userID, unused)
		if err != nil {
			i.logger.Error("failed to refund unused import credits",
				slog.String("userId", userID),
				slog.Int("amount", unused),
				"error", err.Error())
			return outcome, errors.Join(importErr, fmt.Errorf("refund %d credits: %w", unused, err))
		}
		outcome.Balance = balance
	}

	if importErr != nil {
		return outcome, importErr
	}
	return outcome, nil
}

// AddContact imports a single contact.
func (i *Importer) AddContact(ctx context.Context, userID string, campaignID int, in domain.ContactInput) (*ImportOutcome, error) {
	return i.Import(ctx, userID, campaignID, []domain.ContactInput{in})
}

// ParseCSV reads "name,phone,extra..." rows. Extra columns become field_1..field_n.
// Rows without a name or a phone are skipped.
func ParseCSV(r io.Reader) ([]domain.ContactInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var out []domain.ContactInput
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.InvalidInputf("malformed csv: %v", err)
		}
		if len(record) < 2 {
			continue
		}

		name := strings.TrimSpace(record[0])
		phone := SanitizePhone(record[1])
		if name == "" || phone == "" {
			continue
		}

		fields := make(map[string]string, len(record)-2)
		for idx, val := range record[2:] {
			fields[fmt.Sprintf("field_%d", idx+1)] = strings.TrimSpace(val)
		}
		out = append(out, domain.ContactInput{Name: name, Phone: phone, ExtraFields: fields})
	}

	if len(out) == 0 {
		return nil, domain.ErrEmptySelection
	}
	return out, nil
}

// SanitizePhone keeps digits and a single leading plus sign.
func SanitizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
