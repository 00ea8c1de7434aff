package service

import (
	"context"
	"errors"

	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/sentinel"
)

// ErrBatchSealed is returned when a row is recorded against, or a seal is
// requested for, a batch that is already sealed.
var ErrBatchSealed = dErrors.New(dErrors.CodeInvalidState, "batch is already sealed")

// IsInfrastructure reports whether err means a store or broker could not be
// used, as opposed to a business failure of one row. Infrastructure errors
// abort the run; they are never recorded as row outcomes.
func IsInfrastructure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sentinel.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		dErrors.HasCode(err, dErrors.CodeUnavailable) ||
		dErrors.HasCode(err, dErrors.CodeTimeout)
}
