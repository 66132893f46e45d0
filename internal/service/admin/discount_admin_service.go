// Package admin 提供管理端服务
package admin

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/idle-market-backend/internal/common/config"
	"github.com/dumeirei/idle-market-backend/internal/common/errors"
	"github.com/dumeirei/idle-market-backend/internal/common/metrics"
	"github.com/dumeirei/idle-market-backend/internal/common/utils"
	"github.com/dumeirei/idle-market-backend/internal/models"
	"github.com/dumeirei/idle-market-backend/internal/repository"
)

const (
	defaultCodeLength       = 10
	maxCodeLength           = 32
	defaultGenerateAttempts = 5
)

// DiscountAdminService 折扣码管理服务
type DiscountAdminService struct {
	db               *gorm.DB
	discountRepo     *repository.DiscountRepository
	assignmentRepo   *repository.DiscountAssignmentRepository
	operationLogRepo *repository.OperationLogRepository
	codeLength       int
	generateAttempts int
}

// NewDiscountAdminService 创建折扣码管理服务
func NewDiscountAdminService(
	db *gorm.DB,
	discountRepo *repository.DiscountRepository,
	assignmentRepo *repository.DiscountAssignmentRepository,
	operationLogRepo *repository.OperationLogRepository,
	cfg *config.Config,
) *DiscountAdminService {
	s := &DiscountAdminService{
		db:               db,
		discountRepo:     discountRepo,
		assignmentRepo:   assignmentRepo,
		operationLogRepo: operationLogRepo,
		codeLength:       defaultCodeLength,
		generateAttempts: defaultGenerateAttempts,
	}
	if cfg != nil {
		if cfg.Business.Discount.CodeLength > 0 {
			s.codeLength = cfg.Business.Discount.CodeLength
		}
		if cfg.Business.Discount.GenerateAttempts > 0 {
			s.generateAttempts = cfg.Business.Discount.GenerateAttempts
		}
	}
	return s
}

// IssueDiscountRequest 发放折扣码请求
type IssueDiscountRequest struct {
	Kind              string    `json:"kind" binding:"required,oneof=fixed percent"`
	Value             float64   `json:"value"`
	MaxDiscountAmount int64     `json:"max_discount_amount"`
	MinOrderAmount    int64     `json:"min_order_amount"`
	StartAt           time.Time `json:"start_at" binding:"required"`
	EndAt             time.Time `json:"end_at" binding:"required"`
	UsageLimit        int       `json:"usage_limit"`
	OwnerID           *int64    `json:"owner_id,omitempty"`
	ItemID            *int64    `json:"item_id,omitempty"`
	IsPublic          *bool     `json:"is_public,omitempty"`
	CodePrefix        string    `json:"code_prefix,omitempty"`
	CodeLength        int       `json:"code_length,omitempty"`
	Description       *string   `json:"description,omitempty"`
}

// validateIssueRequest 校验发放参数并做必要的收敛
func (s *DiscountAdminService) validateIssueRequest(req *IssueDiscountRequest) error {
	switch req.Kind {
	case models.DiscountKindFixed:
		// 固定金额向下取整到分，取整后必须为正
		req.Value = math.Floor(req.Value)
		if req.Value <= 0 {
			return errors.ErrDiscountValueInvalid
		}
	case models.DiscountKindPercent:
		// 百分比收敛到 [0,100]
		if req.Value < 0 {
			req.Value = 0
		}
		if req.Value > 100 {
			req.Value = 100
		}
	default:
		return errors.ErrDiscountKindInvalid
	}

	if !req.EndAt.After(req.StartAt) {
		return errors.ErrDiscountPeriodInvalid
	}
	// 金额类字段收敛到非负，负数按 0 处理
	if req.MaxDiscountAmount < 0 {
		req.MaxDiscountAmount = 0
	}
	if req.MinOrderAmount < 0 {
		req.MinOrderAmount = 0
	}
	if req.UsageLimit < 0 {
		return errors.ErrInvalidParams
	}
	return nil
}

// generateUniqueCode 生成未占用的折扣码，尝试若干次后放弃
func (s *DiscountAdminService) generateUniqueCode(ctx context.Context, prefix string, length int) (string, error) {
	if length <= 0 {
		length = s.codeLength
	}
	if length < 1 {
		length = 1
	}
	if length > maxCodeLength {
		length = maxCodeLength
	}

	// 前缀超过目标长度时截断，随机段长度允许为 0（码值完全由前缀决定）
	sanitized := utils.SanitizeCodePrefix(prefix)
	if len(sanitized) > length {
		sanitized = sanitized[:length]
	}
	randomLen := length - len(sanitized)

	for i := 0; i < s.generateAttempts; i++ {
		code := sanitized + utils.GenerateCode(randomLen)
		exists, err := s.discountRepo.ExistsByCode(ctx, code)
		if err != nil {
			return "", errors.ErrDatabaseError.WithError(err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.ErrDiscountGenerateFailed
}

// IssueDiscount 发放折扣码
func (s *DiscountAdminService) IssueDiscount(ctx context.Context, req *IssueDiscountRequest) (*models.DiscountCode, error) {
	if err := s.validateIssueRequest(req); err != nil {
		return nil, err
	}

	code, err := s.generateUniqueCode(ctx, req.CodePrefix, req.CodeLength)
	if err != nil {
		return nil, err
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	discount := &models.DiscountCode{
		Code:              code,
		Kind:              req.Kind,
		Value:             req.Value,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinOrderAmount:    req.MinOrderAmount,
		StartAt:           req.StartAt,
		EndAt:             req.EndAt,
		UsageLimit:        req.UsageLimit,
		OwnerID:           req.OwnerID,
		ItemID:            req.ItemID,
		IsPublic:          isPublic,
		Active:            true,
		Description:       req.Description,
	}

	if err := s.discountRepo.Create(ctx, discount); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordCodeIssued(discount.Kind)
	return discount, nil
}

// UpdateDiscountRequest 更新折扣码请求，零值字段不更新
type UpdateDiscountRequest struct {
	Value             *float64   `json:"value,omitempty"`
	MaxDiscountAmount *int64     `json:"max_discount_amount,omitempty"`
	MinOrderAmount    *int64     `json:"min_order_amount,omitempty"`
	StartAt           *time.Time `json:"start_at,omitempty"`
	EndAt             *time.Time `json:"end_at,omitempty"`
	UsageLimit        *int       `json:"usage_limit,omitempty"`
	Description       *string    `json:"description,omitempty"`
}

// UpdateDiscount 更新折扣码属性（码值与类型不可修改）
func (s *DiscountAdminService) UpdateDiscount(ctx context.Context, id int64, req *UpdateDiscountRequest) error {
	discount, err := s.discountRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrDiscountNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	fields := make(map[string]interface{})

	if req.Value != nil {
		value := *req.Value
		switch discount.Kind {
		case models.DiscountKindFixed:
			value = math.Floor(value)
			if value <= 0 {
				return errors.ErrDiscountValueInvalid
			}
		case models.DiscountKindPercent:
			if value < 0 {
				value = 0
			}
			if value > 100 {
				value = 100
			}
		}
		fields["value"] = value
	}
	if req.MaxDiscountAmount != nil {
		if *req.MaxDiscountAmount < 0 {
			return errors.ErrInvalidParams
		}
		fields["max_discount_amount"] = *req.MaxDiscountAmount
	}
	if req.MinOrderAmount != nil {
		if *req.MinOrderAmount < 0 {
			return errors.ErrInvalidParams
		}
		fields["min_order_amount"] = *req.MinOrderAmount
	}

	startAt := discount.StartAt
	endAt := discount.EndAt
	if req.StartAt != nil {
		startAt = *req.StartAt
		fields["start_at"] = startAt
	}
	if req.EndAt != nil {
		endAt = *req.EndAt
		fields["end_at"] = endAt
	}
	if !endAt.After(startAt) {
		return errors.ErrDiscountPeriodInvalid
	}

	if req.UsageLimit != nil {
		if *req.UsageLimit < 0 {
			return errors.ErrInvalidParams
		}
		fields["usage_limit"] = *req.UsageLimit
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}

	if len(fields) == 0 {
		return nil
	}

	if err := s.discountRepo.UpdateFields(ctx, id, fields); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// SetActive 启用或停用折扣码
func (s *DiscountAdminService) SetActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.mustGetDiscount(ctx, id); err != nil {
		return err
	}
	if err := s.discountRepo.UpdateFields(ctx, id, map[string]interface{}{"active": active}); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// SetPublic 修改折扣码可见性
// 设为公开后，存量授予记录保留但不再参与校验
func (s *DiscountAdminService) SetPublic(ctx context.Context, id int64, isPublic bool) error {
	if _, err := s.mustGetDiscount(ctx, id); err != nil {
		return err
	}
	if err := s.discountRepo.UpdateFields(ctx, id, map[string]interface{}{"is_public": isPublic}); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// DeleteDiscount 删除折扣码及其授予记录
func (s *DiscountAdminService) DeleteDiscount(ctx context.Context, id int64) error {
	if _, err := s.mustGetDiscount(ctx, id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("discount_id = ?", id).Delete(&models.DiscountAssignment{}).Error; err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if err := tx.Delete(&models.DiscountCode{}, id).Error; err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return nil
	})
}

// AssignUserEntry 单个用户的授予参数
type AssignUserEntry struct {
	UserID        int64      `json:"user_id" binding:"required"`
	PerUserLimit  int        `json:"per_user_limit"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

// AssignUsersRequest 批量授予请求
type AssignUsersRequest struct {
	Users []AssignUserEntry `json:"users" binding:"required,min=1,dive"`
}

// AssignUsers 将折扣码授予一批用户
// 授予动作会强制将折扣码转为非公开；重复授予覆盖限额与窗口但保留已用次数
func (s *DiscountAdminService) AssignUsers(ctx context.Context, discountID int64, req *AssignUsersRequest) error {
	for _, entry := range req.Users {
		if entry.PerUserLimit < 0 {
			return errors.ErrInvalidParams
		}
		if entry.EffectiveFrom != nil && entry.EffectiveTo != nil && !entry.EffectiveTo.After(*entry.EffectiveFrom) {
			return errors.ErrDiscountPeriodInvalid
		}
	}

	if _, err := s.mustGetDiscount(ctx, discountID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 授予即私有化
		if err := tx.Model(&models.DiscountCode{}).Where("id = ?", discountID).
			Update("is_public", false).Error; err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		for _, entry := range req.Users {
			assignment := &models.DiscountAssignment{
				DiscountID:    discountID,
				UserID:        entry.UserID,
				PerUserLimit:  entry.PerUserLimit,
				EffectiveFrom: entry.EffectiveFrom,
				EffectiveTo:   entry.EffectiveTo,
				Active:        true,
			}
			// 冲突时覆盖限额与窗口，used_count 不回置
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "discount_id"}, {Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"per_user_limit": entry.PerUserLimit,
					"effective_from": entry.EffectiveFrom,
					"effective_to":   entry.EffectiveTo,
					"active":         true,
				}),
			}).Create(assignment).Error
			if err != nil {
				return errors.ErrDatabaseError.WithError(err)
			}
		}
		return nil
	})
}

// UpdateAssignmentRequest 更新授予记录请求
type UpdateAssignmentRequest struct {
	PerUserLimit  *int       `json:"per_user_limit,omitempty"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	Active        *bool      `json:"active,omitempty"`
}

// UpdateAssignment 更新指定用户的授予记录
func (s *DiscountAdminService) UpdateAssignment(ctx context.Context, discountID, userID int64, req *UpdateAssignmentRequest) error {
	assignment, err := s.assignmentRepo.GetByDiscountAndUser(ctx, discountID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrAssignmentNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	fields := make(map[string]interface{})
	if req.PerUserLimit != nil {
		if *req.PerUserLimit < 0 {
			return errors.ErrInvalidParams
		}
		fields["per_user_limit"] = *req.PerUserLimit
	}
	if req.EffectiveFrom != nil {
		fields["effective_from"] = *req.EffectiveFrom
	}
	if req.EffectiveTo != nil {
		fields["effective_to"] = *req.EffectiveTo
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}

	if len(fields) == 0 {
		return nil
	}

	if err := s.assignmentRepo.UpdateFields(ctx, assignment.ID, fields); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// RevokeAssignment 撤销指定用户的授予
func (s *DiscountAdminService) RevokeAssignment(ctx context.Context, discountID, userID int64) error {
	assignment, err := s.assignmentRepo.GetByDiscountAndUser(ctx, discountID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrAssignmentNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	if err := s.assignmentRepo.Deactivate(ctx, assignment.ID); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// AdminDiscountListRequest 管理端折扣码列表请求
type AdminDiscountListRequest struct {
	Page     int
	PageSize int
	Active   *bool
	IsPublic *bool
	Kind     string
	OwnerID  *int64
	ItemID   *int64
	Keyword  string
}

// AdminDiscountListResponse 管理端折扣码列表响应
type AdminDiscountListResponse struct {
	List  []*models.DiscountCode `json:"list"`
	Total int64                  `json:"total"`
}

// GetDiscountList 获取折扣码列表（管理端）
func (s *DiscountAdminService) GetDiscountList(ctx context.Context, req *AdminDiscountListRequest) (*AdminDiscountListResponse, error) {
	params := repository.DiscountListParams{
		Offset:   (req.Page - 1) * req.PageSize,
		Limit:    req.PageSize,
		Active:   req.Active,
		IsPublic: req.IsPublic,
		Kind:     req.Kind,
		OwnerID:  req.OwnerID,
		ItemID:   req.ItemID,
		Keyword:  req.Keyword,
	}

	discounts, total, err := s.discountRepo.List(ctx, params)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return &AdminDiscountListResponse{List: discounts, Total: total}, nil
}

// GetDiscountDetail 获取折扣码详情（管理端）
func (s *DiscountAdminService) GetDiscountDetail(ctx context.Context, id int64) (*models.DiscountCode, error) {
	return s.mustGetDiscount(ctx, id)
}

// GetDiscountByCode 按码值获取折扣码详情（管理端，含停用的码）
func (s *DiscountAdminService) GetDiscountByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	discount, err := s.discountRepo.GetByCode(ctx, utils.NormalizeCode(code))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrDiscountNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return discount, nil
}

// AssignmentListResponse 授予记录列表响应
type AssignmentListResponse struct {
	List  []*models.DiscountAssignment `json:"list"`
	Total int64                        `json:"total"`
}

// GetAssignmentList 获取折扣码的授予记录列表
func (s *DiscountAdminService) GetAssignmentList(ctx context.Context, discountID int64, page, pageSize int) (*AssignmentListResponse, error) {
	if _, err := s.mustGetDiscount(ctx, discountID); err != nil {
		return nil, err
	}

	offset := (page - 1) * pageSize
	assignments, total, err := s.assignmentRepo.ListByDiscount(ctx, discountID, offset, pageSize)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return &AssignmentListResponse{List: assignments, Total: total}, nil
}

// OperationLogListResponse 操作日志列表响应
type OperationLogListResponse struct {
	List  []*models.OperationLog `json:"list"`
	Total int64                  `json:"total"`
}

// GetOperationLogList 获取操作日志列表
func (s *DiscountAdminService) GetOperationLogList(ctx context.Context, page, pageSize int, filters map[string]interface{}) (*OperationLogListResponse, error) {
	offset := (page - 1) * pageSize
	logs, total, err := s.operationLogRepo.List(ctx, offset, pageSize, filters)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return &OperationLogListResponse{List: logs, Total: total}, nil
}

func (s *DiscountAdminService) mustGetDiscount(ctx context.Context, id int64) (*models.DiscountCode, error) {
	discount, err := s.discountRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrDiscountNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return discount, nil
}
