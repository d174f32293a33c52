package actions

import (
	"errors"
	"fmt"

	"github.com/philios33/predictor2-backend-sub000/internal/entity"
)

// UnknownEntityError reports a referential integrity violation: a write
// referenced an entity id that does not exist. The triggering write is
// rejected wholly; nothing is partially written.
type UnknownEntityError struct {
	Kind entity.Kind
	ID   string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown %s id %q", e.Kind, e.ID)
}

// IsUnknownEntity reports whether err is a referential integrity
// violation. Uses errors.As to handle wrapped errors.
func IsUnknownEntity(err error) bool {
	var ue *UnknownEntityError
	return errors.As(err, &ue)
}
