package template

import (
	"fmt"

	"github.com/dmitrymomot/mailhub/pkg/apperr"
)

var (
	ErrNotFound            = fmt.Errorf("template %w", apperr.ErrNotFound)
	ErrConflict            = fmt.Errorf("template %w", apperr.ErrConflict)
	ErrInvalidTemplateType = fmt.Errorf("invalid template type: %w", apperr.ErrValidation)
)
