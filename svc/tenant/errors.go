package tenant

import (
	"fmt"

	"github.com/dmitrymomot/mailhub/pkg/apperr"
)

var (
	ErrNotFound          = fmt.Errorf("mail service %w", apperr.ErrNotFound)
	ErrConflict          = fmt.Errorf("mail service %w", apperr.ErrConflict)
	ErrInvalidServiceKey = fmt.Errorf("invalid service key: %w", apperr.ErrValidation)
)
