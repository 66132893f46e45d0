// Package helpers 提供测试辅助函数
package helpers

import (
	"math/rand"
	"time"

	"github.com/dumeirei/idle-market-backend/internal/models"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCode 生成随机折扣码
func RandomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeCharset[rand.Intn(len(codeCharset))]
	}
	return string(b)
}

// RandomInt 生成 [min, max] 范围的随机整数
func RandomInt(min, max int) int {
	return min + rand.Intn(max-min+1)
}

// NewTestDiscount 创建测试折扣码（固定金额、公开、有效期内）
func NewTestDiscount() *models.DiscountCode {
	return &models.DiscountCode{
		Code:           RandomCode(10),
		Kind:           models.DiscountKindFixed,
		Value:          500,
		MinOrderAmount: 2000,
		StartAt:        time.Now().Add(-time.Hour),
		EndAt:          time.Now().Add(24 * time.Hour),
		UsageLimit:     100,
		IsPublic:       true,
		Active:         true,
	}
}

// NewTestPercentDiscount 创建百分比折扣码
func NewTestPercentDiscount(percent float64, cap int64) *models.DiscountCode {
	d := NewTestDiscount()
	d.Kind = models.DiscountKindPercent
	d.Value = percent
	d.MaxDiscountAmount = cap
	return d
}

// NewTestAssignment 创建测试授予记录
func NewTestAssignment(discountID, userID int64, limit int) *models.DiscountAssignment {
	return &models.DiscountAssignment{
		DiscountID:   discountID,
		UserID:       userID,
		PerUserLimit: limit,
		Active:       true,
	}
}
