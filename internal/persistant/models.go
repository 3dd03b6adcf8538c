package persistant

import "github.com/aniladanir/bulk-messenger-service/internal/domain"

// Models returns every model that has to be migrated, parents first.
func Models() []any {
	return []any{
		&domain.Account{},
		&domain.Campaign{},
		&domain.Contact{},
		&domain.SentMessage{},
	}
}
