package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/idle-market-backend/internal/models"
)

// DiscountAssignmentRepository 折扣码授予记录仓储
type DiscountAssignmentRepository struct {
	db *gorm.DB
}

// NewDiscountAssignmentRepository 创建折扣码授予记录仓储
func NewDiscountAssignmentRepository(db *gorm.DB) *DiscountAssignmentRepository {
	return &DiscountAssignmentRepository{db: db}
}

// Create 创建授予记录
func (r *DiscountAssignmentRepository) Create(ctx context.Context, assignment *models.DiscountAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

// GetByDiscountAndUser 获取用户在指定折扣码下的授予记录
func (r *DiscountAssignmentRepository) GetByDiscountAndUser(ctx context.Context, discountID, userID int64) (*models.DiscountAssignment, error) {
	var assignment models.DiscountAssignment
	err := r.db.WithContext(ctx).
		Where("discount_id = ? AND user_id = ?", discountID, userID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetActiveByDiscountAndUser 获取用户在指定折扣码下启用中的授予记录
func (r *DiscountAssignmentRepository) GetActiveByDiscountAndUser(ctx context.Context, discountID, userID int64) (*models.DiscountAssignment, error) {
	var assignment models.DiscountAssignment
	err := r.db.WithContext(ctx).
		Where("discount_id = ? AND user_id = ? AND active = ?", discountID, userID, true).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// UpdateFields 更新授予记录指定字段
func (r *DiscountAssignmentRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.DiscountAssignment{}).Where("id = ?", id).Updates(fields).Error
}

// ListByDiscount 获取折扣码下的授予记录列表
func (r *DiscountAssignmentRepository) ListByDiscount(ctx context.Context, discountID int64, offset, limit int) ([]*models.DiscountAssignment, int64, error) {
	var assignments []*models.DiscountAssignment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.DiscountAssignment{}).
		Where("discount_id = ?", discountID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

// IncrementUsedCount 增加用户已使用次数（带个人上限守卫，超限时不更新任何行）
func (r *DiscountAssignmentRepository) IncrementUsedCount(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.DiscountAssignment{}).
		Where("id = ? AND (per_user_limit = 0 OR used_count < per_user_limit)", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementUsedCount 减少用户已使用次数（订单退款恢复额度）
func (r *DiscountAssignmentRepository) DecrementUsedCount(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.DiscountAssignment{}).
		Where("id = ? AND used_count > 0", id).
		UpdateColumn("used_count", gorm.Expr("used_count - 1"))
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Deactivate 停用授予记录
func (r *DiscountAssignmentRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.DiscountAssignment{}).
		Where("id = ?", id).
		Update("active", false).Error
}

// DeactivateExpired 批量停用授予有效期已结束的记录，返回受影响行数
func (r *DiscountAssignmentRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.DiscountAssignment{}).
		Where("active = ? AND effective_to IS NOT NULL AND effective_to <= ?", true, now).
		Update("active", false)
	return result.RowsAffected, result.Error
}
