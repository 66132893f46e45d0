// Package scheduler 提供定时任务
package scheduler

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/idle-market-backend/internal/common/config"
	"github.com/dumeirei/idle-market-backend/internal/common/metrics"
	"github.com/dumeirei/idle-market-backend/internal/models"
	"github.com/dumeirei/idle-market-backend/internal/repository"
)

const defaultOperationLogKeepDays = 90

// TaskHandler 任务处理器
type TaskHandler struct {
	db               *gorm.DB
	discountRepo     *repository.DiscountRepository
	assignmentRepo   *repository.DiscountAssignmentRepository
	operationLogRepo *repository.OperationLogRepository
	logKeepDays      int
	scanInterval     time.Duration
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(
	db *gorm.DB,
	discountRepo *repository.DiscountRepository,
	assignmentRepo *repository.DiscountAssignmentRepository,
	operationLogRepo *repository.OperationLogRepository,
	cfg *config.Config,
) *TaskHandler {
	h := &TaskHandler{
		db:               db,
		discountRepo:     discountRepo,
		assignmentRepo:   assignmentRepo,
		operationLogRepo: operationLogRepo,
		logKeepDays:      defaultOperationLogKeepDays,
		scanInterval:     1 * time.Minute,
	}
	if cfg != nil {
		if cfg.Business.Discount.OperationLogKeep > 0 {
			h.logKeepDays = cfg.Business.Discount.OperationLogKeep
		}
		if cfg.Business.Discount.ExpireScanInterval > 0 {
			h.scanInterval = time.Duration(cfg.Business.Discount.ExpireScanInterval) * time.Second
		}
	}
	return h
}

// DeactivateExpiredDiscounts 停用已过期的折扣码
// 过期码不参与校验，停用只是让列表查询和缓存不再返回它们
func (h *TaskHandler) DeactivateExpiredDiscounts(ctx context.Context) error {
	count, err := h.discountRepo.DeactivateExpired(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Printf("[Task] Deactivated %d expired discounts", count)
	}
	return nil
}

// DeactivateExpiredAssignments 停用窗口已结束的授予记录
func (h *TaskHandler) DeactivateExpiredAssignments(ctx context.Context) error {
	count, err := h.assignmentRepo.DeactivateExpired(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Printf("[Task] Deactivated %d expired assignments", count)
	}
	return nil
}

// CleanupOperationLogs 清理过期的操作日志
func (h *TaskHandler) CleanupOperationLogs(ctx context.Context) error {
	before := time.Now().AddDate(0, 0, -h.logKeepDays)

	count, err := h.operationLogRepo.DeleteBefore(ctx, before)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Printf("[Task] Deleted %d operation logs older than %d days", count, h.logKeepDays)
	}
	return nil
}

// RefreshActiveDiscountGauge 刷新当前有效折扣码数量指标
func (h *TaskHandler) RefreshActiveDiscountGauge(ctx context.Context) error {
	var count int64
	now := time.Now()

	err := h.db.WithContext(ctx).Model(&models.DiscountCode{}).
		Where("active = ?", true).
		Where("start_at <= ? AND end_at >= ?", now, now).
		Count(&count).Error
	if err != nil {
		return err
	}

	metrics.GetMetrics().SetActiveDiscounts(float64(count))
	return nil
}

// SetupTasks 设置所有任务
func SetupTasks(scheduler *Scheduler, handler *TaskHandler) {
	// 按配置间隔停用过期折扣码与授予记录
	scheduler.AddTask("DeactivateExpiredDiscounts", handler.scanInterval, handler.DeactivateExpiredDiscounts)
	scheduler.AddTask("DeactivateExpiredAssignments", handler.scanInterval, handler.DeactivateExpiredAssignments)

	// 每分钟刷新有效折扣码指标
	scheduler.AddTask("RefreshActiveDiscountGauge", 1*time.Minute, handler.RefreshActiveDiscountGauge)

	// 每小时清理过期操作日志
	scheduler.AddTask("CleanupOperationLogs", 1*time.Hour, handler.CleanupOperationLogs)
}
