// Package discount 提供折扣码发放、校验与核销服务
package discount

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/idle-market-backend/internal/common/cache"
	"github.com/dumeirei/idle-market-backend/internal/common/config"
	"github.com/dumeirei/idle-market-backend/internal/common/errors"
	"github.com/dumeirei/idle-market-backend/internal/common/metrics"
	"github.com/dumeirei/idle-market-backend/internal/common/qrcode"
	"github.com/dumeirei/idle-market-backend/internal/common/utils"
	"github.com/dumeirei/idle-market-backend/internal/models"
	"github.com/dumeirei/idle-market-backend/internal/repository"
)

// DiscountService 折扣码服务（用户端）
type DiscountService struct {
	db             *gorm.DB
	discountRepo   *repository.DiscountRepository
	assignmentRepo *repository.DiscountAssignmentRepository
	cacheTTL       time.Duration
	shareURLTmpl   string
	baseURL        string
}

// NewDiscountService 创建折扣码服务
func NewDiscountService(
	db *gorm.DB,
	discountRepo *repository.DiscountRepository,
	assignmentRepo *repository.DiscountAssignmentRepository,
	cfg *config.Config,
) *DiscountService {
	s := &DiscountService{
		db:             db,
		discountRepo:   discountRepo,
		assignmentRepo: assignmentRepo,
	}
	if cfg != nil {
		s.cacheTTL = time.Duration(cfg.Business.Discount.CacheTTL) * time.Second
		s.shareURLTmpl = cfg.Business.Discount.ShareURLTemplate
		s.baseURL = cfg.Server.BaseURL
	}
	return s
}

// DiscountItem 折扣码视图
type DiscountItem struct {
	ID                int64     `json:"id"`
	Code              string    `json:"code"`
	Kind              string    `json:"kind"`
	Value             float64   `json:"value"`
	MaxDiscountAmount int64     `json:"max_discount_amount"`
	MinOrderAmount    int64     `json:"min_order_amount"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	UsageLimit        int       `json:"usage_limit"`
	UsedCount         int       `json:"used_count"`
	RemainCount       *int      `json:"remain_count,omitempty"` // usage_limit = 0 时为空（不限量）
	OwnerID           *int64    `json:"owner_id,omitempty"`
	ItemID            *int64    `json:"item_id,omitempty"`
	IsPublic          bool      `json:"is_public"`
	Active            bool      `json:"active"`
	Description       *string   `json:"description,omitempty"`
}

func toDiscountItem(d *models.DiscountCode) *DiscountItem {
	item := &DiscountItem{
		ID:                d.ID,
		Code:              d.Code,
		Kind:              d.Kind,
		Value:             d.Value,
		MaxDiscountAmount: d.MaxDiscountAmount,
		MinOrderAmount:    d.MinOrderAmount,
		StartAt:           d.StartAt,
		EndAt:             d.EndAt,
		UsageLimit:        d.UsageLimit,
		UsedCount:         d.UsedCount,
		OwnerID:           d.OwnerID,
		ItemID:            d.ItemID,
		IsPublic:          d.IsPublic,
		Active:            d.Active,
		Description:       d.Description,
	}
	if d.UsageLimit > 0 {
		remain := d.UsageLimit - d.UsedCount
		if remain < 0 {
			remain = 0
		}
		item.RemainCount = &remain
	}
	return item
}

// DiscountListResponse 折扣码列表响应
type DiscountListResponse struct {
	List  []*DiscountItem `json:"list"`
	Total int64           `json:"total"`
}

// ListAvailable 获取当前用户可用的折扣码列表
// 取公开码与该用户持有有效授予的非公开码的并集
func (s *DiscountService) ListAvailable(ctx context.Context, userID int64, page, pageSize int) (*DiscountListResponse, error) {
	offset := (page - 1) * pageSize

	discounts, total, err := s.discountRepo.ListAvailableForUser(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	list := make([]*DiscountItem, 0, len(discounts))
	for _, d := range discounts {
		list = append(list, toDiscountItem(d))
	}

	return &DiscountListResponse{List: list, Total: total}, nil
}

// GetDetail 获取折扣码详情（带缓存）
func (s *DiscountService) GetDetail(ctx context.Context, id int64) (*DiscountItem, error) {
	cacheKey := cache.BuildKey(cache.KeyPrefixDiscount, fmt.Sprintf("%d", id))

	if s.cacheTTL > 0 && cache.GetClient() != nil {
		var cached DiscountItem
		if err := cache.Get(ctx, cacheKey, &cached); err == nil {
			metrics.RecordCacheHitGlobal("discount_cache")
			return &cached, nil
		}
		metrics.RecordCacheMissGlobal("discount_cache")
	}

	d, err := s.discountRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrDiscountNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	item := toDiscountItem(d)

	if s.cacheTTL > 0 && cache.GetClient() != nil {
		_ = cache.Set(ctx, cacheKey, item, s.cacheTTL)
	}

	return item, nil
}

// GetByCode 按码值查询折扣码（大小写不敏感）
func (s *DiscountService) GetByCode(ctx context.Context, code string) (*DiscountItem, error) {
	normalized := utils.NormalizeCode(code)
	if normalized == "" {
		return nil, errors.ErrInvalidParams
	}

	d, err := s.discountRepo.GetByCode(ctx, normalized)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrDiscountNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return toDiscountItem(d), nil
}

// ValidateRequest 校验请求
type ValidateRequest struct {
	Code       string `json:"code" binding:"required"`
	BaseAmount int64  `json:"base_amount" binding:"required,gt=0"`
	OwnerID    *int64 `json:"owner_id,omitempty"`
	ItemID     *int64 `json:"item_id,omitempty"`
	UserID     *int64 `json:"-"`
}

// ValidateResult 校验结果：valid 为 false 时 reason 携带唯一的失败原因
type ValidateResult struct {
	Valid    bool          `json:"valid"`
	Reason   Reason        `json:"reason,omitempty"`
	Message  string        `json:"message,omitempty"`
	Amount   int64         `json:"amount,omitempty"`
	Discount *DiscountItem `json:"discount,omitempty"`
}

func invalidResult(reason Reason) *ValidateResult {
	metrics.GetMetrics().RecordValidation(string(reason))
	return &ValidateResult{
		Valid:   false,
		Reason:  reason,
		Message: reason.Err().Message,
	}
}

// ValidateAndCompute 校验折扣码并计算折扣金额，无副作用
// 按固定顺序短路：存在性、时间窗口、总量上限、最低订单金额、卖家/物品匹配、用户授予
func (s *DiscountService) ValidateAndCompute(ctx context.Context, req *ValidateRequest) (*ValidateResult, error) {
	code := utils.NormalizeCode(req.Code)
	if code == "" {
		return nil, errors.ErrInvalidParams.WithMessage("折扣码不能为空")
	}

	d, err := s.discountRepo.GetActiveByCode(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return invalidResult(ReasonInvalidCode), nil
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	now := time.Now()
	rc := RedemptionContext{
		BaseAmount: req.BaseAmount,
		OwnerID:    req.OwnerID,
		ItemID:     req.ItemID,
		UserID:     req.UserID,
	}

	if reason, ok := CheckCode(d, rc, now); !ok {
		return invalidResult(reason), nil
	}

	if !d.IsPublic {
		if req.UserID == nil {
			return invalidResult(ReasonNotAllowedUser), nil
		}
		assignment, err := s.assignmentRepo.GetActiveByDiscountAndUser(ctx, d.ID, *req.UserID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if reason, ok := CheckAssignment(assignment, now); !ok {
			return invalidResult(reason), nil
		}
	}

	amount := ComputeAmount(d, req.BaseAmount)
	metrics.GetMetrics().RecordValidation("ok")

	return &ValidateResult{
		Valid:    true,
		Amount:   amount,
		Discount: toDiscountItem(d),
	}, nil
}

// RedeemResult 核销结果
type RedeemResult struct {
	DiscountID int64  `json:"discount_id"`
	Code       string `json:"code"`
	Kind       string `json:"kind"`
	Amount     int64  `json:"amount"`
	PayAmount  int64  `json:"pay_amount"`
}

// Redeem 校验并原子核销折扣码
// 校验与计数器递增在同一事务内完成，计数器使用条件更新防止并发超卖
func (s *DiscountService) Redeem(ctx context.Context, req *ValidateRequest) (*RedeemResult, error) {
	code := utils.NormalizeCode(req.Code)
	if code == "" {
		return nil, errors.ErrInvalidParams.WithMessage("折扣码不能为空")
	}

	var result *RedeemResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.DiscountCode
		if err := tx.Where("code = ? AND active = ?", code, true).First(&d).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrDiscountNotFound
			}
			return errors.ErrDatabaseError.WithError(err)
		}

		now := time.Now()
		rc := RedemptionContext{
			BaseAmount: req.BaseAmount,
			OwnerID:    req.OwnerID,
			ItemID:     req.ItemID,
			UserID:     req.UserID,
		}

		if reason, ok := CheckCode(&d, rc, now); !ok {
			return reason.Err()
		}

		var assignment *models.DiscountAssignment
		if !d.IsPublic {
			if req.UserID == nil {
				return errors.ErrDiscountNotAllowed
			}
			var a models.DiscountAssignment
			err := tx.Where("discount_id = ? AND user_id = ? AND active = ?", d.ID, *req.UserID, true).
				First(&a).Error
			if err != nil && err != gorm.ErrRecordNotFound {
				return errors.ErrDatabaseError.WithError(err)
			}
			if err == nil {
				assignment = &a
			}
			if reason, ok := CheckAssignment(assignment, now); !ok {
				return reason.Err()
			}
		}

		amount := ComputeAmount(&d, req.BaseAmount)

		// 条件递增在事务内通过仓储执行，usage_limit 已满时不更新任何行，防止并发核销超过上限
		if err := repository.NewDiscountRepository(tx).IncrementUsedCount(ctx, d.ID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.ErrDiscountUsedUp
			}
			return errors.ErrDatabaseError.WithError(err)
		}

		if assignment != nil {
			if err := repository.NewDiscountAssignmentRepository(tx).IncrementUsedCount(ctx, assignment.ID); err != nil {
				if err == gorm.ErrRecordNotFound {
					return errors.ErrAssignmentLimitUsed
				}
				return errors.ErrDatabaseError.WithError(err)
			}
		}

		result = &RedeemResult{
			DiscountID: d.ID,
			Code:       d.Code,
			Kind:       d.Kind,
			Amount:     amount,
			PayAmount:  req.BaseAmount - amount,
		}
		return nil
	})

	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			metrics.GetMetrics().RecordRedemption("unknown", "failed")
			return nil, appErr
		}
		return nil, err
	}

	metrics.GetMetrics().RecordRedemption(result.Kind, "success")
	s.invalidateCache(ctx, result.DiscountID)

	return result, nil
}

// Release 回退一次核销（订单取消等补偿场景）
func (s *DiscountService) Release(ctx context.Context, code string, userID *int64) error {
	normalized := utils.NormalizeCode(code)
	if normalized == "" {
		return errors.ErrInvalidParams.WithMessage("折扣码不能为空")
	}

	d, err := s.discountRepo.GetByCode(ctx, normalized)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrDiscountNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewDiscountRepository(tx).DecrementUsedCount(ctx, d.ID); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		if !d.IsPublic && userID != nil {
			assignmentRepo := repository.NewDiscountAssignmentRepository(tx)
			a, err := assignmentRepo.GetByDiscountAndUser(ctx, d.ID, *userID)
			if err != nil && err != gorm.ErrRecordNotFound {
				return errors.ErrDatabaseError.WithError(err)
			}
			if err == nil {
				if err := assignmentRepo.DecrementUsedCount(ctx, a.ID); err != nil {
					return errors.ErrDatabaseError.WithError(err)
				}
			}
		}

		s.invalidateCache(ctx, d.ID)
		return nil
	})
}

// ShareInfo 折扣码分享信息
type ShareInfo struct {
	Code     string `json:"code"`
	ShareURL string `json:"share_url"`
	QRCode   string `json:"qr_code"` // Data URL 格式的二维码图片
}

// GetShareInfo 生成折扣码分享链接与二维码
func (s *DiscountService) GetShareInfo(ctx context.Context, id int64) (*ShareInfo, error) {
	d, err := s.discountRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrDiscountNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if !d.IsPublic {
		return nil, errors.ErrDiscountNotAllowed.WithMessage("非公开折扣码不支持分享")
	}

	tmpl := s.shareURLTmpl
	if tmpl == "" {
		tmpl = "%s/d/%s"
	}
	shareURL := fmt.Sprintf(tmpl, s.baseURL, d.Code)

	qr, err := qrcode.NewGenerator().GenerateDataURL(shareURL)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	return &ShareInfo{
		Code:     d.Code,
		ShareURL: shareURL,
		QRCode:   qr,
	}, nil
}

func (s *DiscountService) invalidateCache(ctx context.Context, id int64) {
	if s.cacheTTL > 0 && cache.GetClient() != nil {
		_ = cache.Delete(ctx, cache.BuildKey(cache.KeyPrefixDiscount, fmt.Sprintf("%d", id)))
	}
}
