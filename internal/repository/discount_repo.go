// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/idle-market-backend/internal/models"
)

// DiscountRepository 折扣码仓储
type DiscountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository 创建折扣码仓储
func NewDiscountRepository(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// Create 创建折扣码
func (r *DiscountRepository) Create(ctx context.Context, discount *models.DiscountCode) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

// GetByID 根据 ID 获取折扣码
func (r *DiscountRepository) GetByID(ctx context.Context, id int64) (*models.DiscountCode, error) {
	var discount models.DiscountCode
	err := r.db.WithContext(ctx).First(&discount, id).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// GetByCode 根据折扣码获取记录（不限状态，码已在服务层归一化为大写）
func (r *DiscountRepository) GetByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var discount models.DiscountCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// GetActiveByCode 根据折扣码获取启用中的记录
func (r *DiscountRepository) GetActiveByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var discount models.DiscountCode
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// ExistsByCode 判断折扣码是否已存在
func (r *DiscountRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// Update 更新折扣码
func (r *DiscountRepository) Update(ctx context.Context, discount *models.DiscountCode) error {
	return r.db.WithContext(ctx).Save(discount).Error
}

// UpdateFields 更新指定字段
func (r *DiscountRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.DiscountCode{}).Where("id = ?", id).Updates(fields).Error
}

// DiscountListParams 折扣码列表查询参数
type DiscountListParams struct {
	Offset   int
	Limit    int
	Active   *bool
	IsPublic *bool
	Kind     string
	OwnerID  *int64
	ItemID   *int64
	Keyword  string
}

// List 获取折扣码列表（管理端）
func (r *DiscountRepository) List(ctx context.Context, params DiscountListParams) ([]*models.DiscountCode, int64, error) {
	var discounts []*models.DiscountCode
	var total int64

	query := r.db.WithContext(ctx).Model(&models.DiscountCode{})

	// 过滤条件
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.IsPublic != nil {
		query = query.Where("is_public = ?", *params.IsPublic)
	}
	if params.Kind != "" {
		query = query.Where("kind = ?", params.Kind)
	}
	if params.OwnerID != nil {
		query = query.Where("owner_id = ?", *params.OwnerID)
	}
	if params.ItemID != nil {
		query = query.Where("item_id = ?", *params.ItemID)
	}
	if params.Keyword != "" {
		query = query.Where("code LIKE ?", "%"+params.Keyword+"%")
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 查询列表
	if err := query.Order("created_at DESC").Offset(params.Offset).Limit(params.Limit).Find(&discounts).Error; err != nil {
		return nil, 0, err
	}

	return discounts, total, nil
}

// ListAvailableForUser 获取用户当前可用的折扣码列表
// 公开码取有效期内且未达全局上限的；非公开码取用户持有有效授予记录的
func (r *DiscountRepository) ListAvailableForUser(ctx context.Context, userID int64, offset, limit int) ([]*models.DiscountCode, int64, error) {
	var discounts []*models.DiscountCode
	var total int64
	now := time.Now()

	query := r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Joins("LEFT JOIN discount_assignments AS da ON da.discount_id = discount_codes.id AND da.user_id = ? AND da.active = ?", userID, true).
		Where("discount_codes.active = ?", true).
		Where("discount_codes.start_at <= ?", now).
		Where("discount_codes.end_at >= ?", now).
		Where("discount_codes.usage_limit = 0 OR discount_codes.used_count < discount_codes.usage_limit").
		Where("discount_codes.is_public = ? OR da.id IS NOT NULL", true)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("discount_codes.created_at DESC").Offset(offset).Limit(limit).Find(&discounts).Error; err != nil {
		return nil, 0, err
	}

	return discounts, total, nil
}

// IncrementUsedCount 增加已核销数量（带上限守卫，超限时不更新任何行）
func (r *DiscountRepository) IncrementUsedCount(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementUsedCount 减少已核销数量（订单退款恢复额度）
func (r *DiscountRepository) DecrementUsedCount(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("id = ? AND used_count > 0", id).
		UpdateColumn("used_count", gorm.Expr("used_count - 1"))
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// DeactivateExpired 批量停用已过有效期的折扣码，返回受影响行数
func (r *DiscountRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("active = ? AND end_at <= ?", true, now).
		Update("active", false)
	return result.RowsAffected, result.Error
}
