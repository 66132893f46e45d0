// Package discount 提供折扣码发放、校验与核销服务
package discount

import (
	"math"
	"time"

	"github.com/dumeirei/idle-market-backend/internal/models"
)

// Reason 校验失败原因，按固定顺序短路返回，调用方据此展示精确提示
type Reason string

const (
	ReasonInvalidCode     Reason = "INVALID_CODE"
	ReasonNotStarted      Reason = "NOT_STARTED"
	ReasonExpired         Reason = "EXPIRED"
	ReasonUsageLimit      Reason = "USAGE_LIMIT"
	ReasonBelowMinOrder   Reason = "BELOW_MIN_ORDER"
	ReasonOwnerNotMatch   Reason = "OWNER_NOT_MATCH"
	ReasonItemNotMatch    Reason = "ITEM_NOT_MATCH"
	ReasonNotAllowedUser  Reason = "NOT_ALLOWED_USER"
	ReasonAssignNotStart  Reason = "ASSIGN_NOT_STARTED"
	ReasonAssignExpired   Reason = "ASSIGN_EXPIRED"
	ReasonPerUserLimit    Reason = "PER_USER_LIMIT"
)

// RedemptionContext 一次核销请求的上下文
type RedemptionContext struct {
	BaseAmount int64  // 订单金额（分）
	OwnerID    *int64 // 订单卖家，可选
	ItemID     *int64 // 订单物品，可选
	UserID     *int64 // 当前用户，非公开码必填
}

// CheckCode 按固定顺序评估折扣码级别规则，返回第一条未通过的原因
// 授予记录（非公开码）的检查由 CheckAssignment 单独完成
func CheckCode(d *models.DiscountCode, rc RedemptionContext, now time.Time) (Reason, bool) {
	if now.Before(d.StartAt) {
		return ReasonNotStarted, false
	}
	if now.After(d.EndAt) {
		return ReasonExpired, false
	}
	if d.UsageLimit > 0 && d.UsedCount >= d.UsageLimit {
		return ReasonUsageLimit, false
	}
	if d.MinOrderAmount > 0 && rc.BaseAmount < d.MinOrderAmount {
		return ReasonBelowMinOrder, false
	}
	if d.OwnerID != nil && rc.OwnerID != nil && *d.OwnerID != *rc.OwnerID {
		return ReasonOwnerNotMatch, false
	}
	if d.ItemID != nil && rc.ItemID != nil && *d.ItemID != *rc.ItemID {
		return ReasonItemNotMatch, false
	}
	return "", true
}

// CheckAssignment 评估非公开折扣码的用户授予记录
// assignment 为 nil 表示该用户没有有效授予
func CheckAssignment(assignment *models.DiscountAssignment, now time.Time) (Reason, bool) {
	if assignment == nil || !assignment.Active {
		return ReasonNotAllowedUser, false
	}
	if assignment.EffectiveFrom != nil && now.Before(*assignment.EffectiveFrom) {
		return ReasonAssignNotStart, false
	}
	if assignment.EffectiveTo != nil && now.After(*assignment.EffectiveTo) {
		return ReasonAssignExpired, false
	}
	if assignment.PerUserLimit > 0 && assignment.UsedCount >= assignment.PerUserLimit {
		return ReasonPerUserLimit, false
	}
	return "", true
}

// ComputeAmount 计算折扣金额（分）
// 最终结果统一向下取整并收敛到 [0, baseAmount]，中间值不做独立舍入
func ComputeAmount(d *models.DiscountCode, baseAmount int64) int64 {
	var raw float64
	switch d.Kind {
	case models.DiscountKindPercent:
		raw = float64(baseAmount) * d.Value / 100
	case models.DiscountKindFixed:
		raw = d.Value
	default:
		return 0
	}

	if d.MaxDiscountAmount > 0 && raw > float64(d.MaxDiscountAmount) {
		raw = float64(d.MaxDiscountAmount)
	}

	amount := int64(math.Floor(raw))
	if amount < 0 {
		amount = 0
	}
	if amount > baseAmount {
		amount = baseAmount
	}
	return amount
}
