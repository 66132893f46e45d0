// Package discount 提供折扣码发放、校验与核销服务
package discount

import (
	"github.com/dumeirei/idle-market-backend/internal/common/errors"
)

// reasonErrors 校验失败原因到业务错误码的映射
var reasonErrors = map[Reason]*errors.AppError{
	ReasonInvalidCode:    errors.ErrDiscountNotFound,
	ReasonNotStarted:     errors.ErrDiscountNotStarted,
	ReasonExpired:        errors.ErrDiscountExpired,
	ReasonUsageLimit:     errors.ErrDiscountUsedUp,
	ReasonBelowMinOrder:  errors.ErrDiscountBelowMinOrder,
	ReasonOwnerNotMatch:  errors.ErrDiscountOwnerMismatch,
	ReasonItemNotMatch:   errors.ErrDiscountItemMismatch,
	ReasonNotAllowedUser: errors.ErrDiscountNotAllowed,
	ReasonAssignNotStart: errors.ErrAssignmentNotStarted,
	ReasonAssignExpired:  errors.ErrAssignmentExpired,
	ReasonPerUserLimit:   errors.ErrAssignmentLimitUsed,
}

// Err 返回原因对应的业务错误
func (r Reason) Err() *errors.AppError {
	if appErr, ok := reasonErrors[r]; ok {
		return appErr
	}
	return errors.ErrOperationFailed
}
