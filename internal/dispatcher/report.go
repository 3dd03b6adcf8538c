package dispatcher

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
)

// ReportPayload is a delivery report as posted back by a dispatcher.
// SuccessList is either an array of phones, an array of {"phone": ...} objects,
// or a JSON string holding one of the two.
type ReportPayload struct {
	BatchID     string          `json:"batch_id"`
	SentCount   int             `json:"sent_count"`
	SuccessList json.RawMessage `json:"success_list" swaggertype:"array,string"`
}

func (p ReportPayload) Report() (domain.DeliveryReport, error) {
	if p.SentCount < 0 {
		return domain.DeliveryReport{}, domain.InvalidInputf("sent_count must not be negative, got %d", p.SentCount)
	}
	phones, err := ParseSuccessList(p.SuccessList)
	if err != nil {
		return domain.DeliveryReport{}, err
	}
	return domain.DeliveryReport{
		BatchID:     strings.TrimSpace(p.BatchID),
		SentCount:   p.SentCount,
		SuccessList: phones,
	}, nil
}

// DecodeReport parses a raw report message body.
func DecodeReport(body []byte) (domain.DeliveryReport, error) {
	var p ReportPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.DeliveryReport{}, domain.InvalidInputf("malformed report: %v", err)
	}
	return p.Report()
}

// ParseSuccessList extracts the normalized phones of a success list.
// An absent or empty list yields no phones.
func ParseSuccessList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	// stringified list
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, domain.InvalidInputf("malformed success_list: %v", err)
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return nil, nil
		}
		if inner[0] != '[' {
			return nil, domain.InvalidInputf("success_list string must hold a JSON array")
		}
		return parseEntries([]byte(inner))
	}

	return parseEntries(raw)
}

func parseEntries(raw []byte) ([]string, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, domain.InvalidInputf("success_list must be an array: %v", err)
	}

	phones := make([]string, 0, len(entries))
	for i, e := range entries {
		var phone string
		if err := json.Unmarshal(e, &phone); err != nil {
			var obj struct {
				Phone string `json:"phone"`
			}
			if err := json.Unmarshal(e, &obj); err != nil {
				return nil, domain.InvalidInputf("success_list entry %d is neither a phone nor an object with a phone", i)
			}
			phone = obj.Phone
		}
		if phone = domain.NormalizePhone(phone); phone != "" {
			phones = append(phones, phone)
		}
	}
	return phones, nil
}
