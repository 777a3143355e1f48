package extract

import (
	"errors"

	"github.com/graceskyliz/ocr3/internal/common"
)

// isTyped reports whether err already carries a pipeline sentinel.
func isTyped(err error) bool {
	return errors.Is(err, common.ErrUnsupportedFormat) ||
		errors.Is(err, common.ErrValidation) ||
		errors.Is(err, common.ErrBackend) ||
		errors.Is(err, common.ErrNotFound)
}
