package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
)

// ErrStaleVersion is returned when a guarded update lost a race against a
// concurrent writer.
var ErrStaleVersion = errors.New("stale version")

func notFound(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Validation(apperr.ErrNotFound, entity, id.String())
	}
	return err
}
