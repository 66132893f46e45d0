// Package models 定义数据模型
package models

import (
	"time"
)

// DiscountCode 折扣码模型
// 金额字段统一使用最小货币单位（分），percent 类型的 Value 为 [0,100] 的百分比
type DiscountCode struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code              string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`
	Kind              string    `gorm:"type:varchar(20);not null" json:"kind"`
	Value             float64   `gorm:"type:decimal(10,2);not null" json:"value"`
	MaxDiscountAmount int64     `gorm:"not null;default:0" json:"max_discount_amount"`
	MinOrderAmount    int64     `gorm:"not null;default:0" json:"min_order_amount"`
	StartAt           time.Time `gorm:"not null" json:"start_at"`
	EndAt             time.Time `gorm:"not null" json:"end_at"`
	UsageLimit        int       `gorm:"not null;default:0" json:"usage_limit"`
	UsedCount         int       `gorm:"not null;default:0" json:"used_count"`
	OwnerID           *int64    `gorm:"index" json:"owner_id,omitempty"`
	ItemID            *int64    `gorm:"index" json:"item_id,omitempty"`
	IsPublic          bool      `gorm:"not null;default:true" json:"is_public"`
	Active            bool      `gorm:"not null;default:true" json:"active"`
	Description       *string   `gorm:"type:varchar(255)" json:"description,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Assignments []DiscountAssignment `gorm:"foreignKey:DiscountID" json:"assignments,omitempty"`
}

// TableName 表名
func (DiscountCode) TableName() string {
	return "discount_codes"
}

// DiscountKind 折扣类型
const (
	DiscountKindFixed   = "fixed"   // 固定金额（分）
	DiscountKindPercent = "percent" // 百分比折扣
)

// DiscountAssignment 折扣码用户授予记录
// 仅对非公开折扣码（is_public = false）参与校验
type DiscountAssignment struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	DiscountID    int64      `gorm:"not null;uniqueIndex:idx_assignment_discount_user" json:"discount_id"`
	UserID        int64      `gorm:"not null;uniqueIndex:idx_assignment_discount_user;index" json:"user_id"`
	PerUserLimit  int        `gorm:"not null;default:0" json:"per_user_limit"`
	UsedCount     int        `gorm:"not null;default:0" json:"used_count"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	Active        bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Discount *DiscountCode `gorm:"foreignKey:DiscountID" json:"discount,omitempty"`
}

// TableName 表名
func (DiscountAssignment) TableName() string {
	return "discount_assignments"
}
