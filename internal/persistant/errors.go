package persistant

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"gorm.io/gorm"
)

// transient messages reported by the drivers as plain text
var transientMarkers = []string{
	"database is locked",
	"database table is locked",
	"connection refused",
	"connection reset",
	"broken pipe",
	"too many connections",
	"the database system is starting up",
	"the database system is shutting down",
	"could not serialize access",
	"deadlock detected",
}

// Classify converts transient storage failures into domain.ErrStorageUnavailable.
// Domain errors, gorm.ErrRecordNotFound and gorm.ErrDuplicatedKey are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
