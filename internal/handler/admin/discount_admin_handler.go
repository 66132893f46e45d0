// Package admin 提供管理端 HTTP Handler
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/idle-market-backend/internal/common/handler"
	"github.com/dumeirei/idle-market-backend/internal/common/response"
	adminService "github.com/dumeirei/idle-market-backend/internal/service/admin"
)

// DiscountAdminHandler 折扣码管理处理器
type DiscountAdminHandler struct {
	discountAdminService *adminService.DiscountAdminService
}

// NewDiscountAdminHandler 创建折扣码管理处理器
func NewDiscountAdminHandler(svc *adminService.DiscountAdminService) *DiscountAdminHandler {
	return &DiscountAdminHandler{discountAdminService: svc}
}

// IssueDiscount 发放折扣码
// @Summary 发放折扣码
// @Tags 管理端-折扣码
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body admin.IssueDiscountRequest true "发放请求"
// @Success 200 {object} response.Response{data=models.DiscountCode}
// @Router /api/v1/admin/discounts [post]
func (h *DiscountAdminHandler) IssueDiscount(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	var req adminService.IssueDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	discount, err := h.discountAdminService.IssueDiscount(c.Request.Context(), &req)
	handler.MustSucceed(c, err, discount)
}

// UpdateDiscount 更新折扣码
// @Summary 更新折扣码属性
// @Tags 管理端-折扣码
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Param request body admin.UpdateDiscountRequest true "更新请求"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/discounts/{id} [put]
func (h *DiscountAdminHandler) UpdateDiscount(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	var req adminService.UpdateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	err := h.discountAdminService.UpdateDiscount(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, nil)
}

// UpdateStatusRequest 启停请求
type UpdateStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// UpdateStatus 启用或停用折扣码
// @Summary 启用或停用折扣码
// @Tags 管理端-折扣码
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Param request body UpdateStatusRequest true "启停请求"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/discounts/{id}/status [put]
func (h *DiscountAdminHandler) UpdateStatus(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	err := h.discountAdminService.SetActive(c.Request.Context(), id, *req.Active)
	handler.MustSucceed(c, err, nil)
}

// UpdateVisibilityRequest 可见性请求
type UpdateVisibilityRequest struct {
	IsPublic *bool `json:"is_public" binding:"required"`
}

// UpdateVisibility 修改折扣码可见性
// @Summary 修改折扣码可见性
// @Tags 管理端-折扣码
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Param request body UpdateVisibilityRequest true "可见性请求"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/discounts/{id}/visibility [put]
func (h *DiscountAdminHandler) UpdateVisibility(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	var req UpdateVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	err := h.discountAdminService.SetPublic(c.Request.Context(), id, *req.IsPublic)
	handler.MustSucceed(c, err, nil)
}

// DeleteDiscount 删除折扣码
// @Summary 删除折扣码及其授予记录
// @Tags 管理端-折扣码
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/discounts/{id} [delete]
func (h *DiscountAdminHandler) DeleteDiscount(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	err := h.discountAdminService.DeleteDiscount(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// GetDiscountList 获取折扣码列表
// @Summary 获取折扣码列表（管理端）
// @Tags 管理端-折扣码
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param active query bool false "启用状态"
// @Param is_public query bool false "是否公开"
// @Param kind query string false "折扣类型" Enums(fixed, percent)
// @Param owner_id query int false "卖家ID"
// @Param item_id query int false "物品ID"
// @Param keyword query string false "码值关键字"
// @Success 200 {object} response.Response{data=admin.AdminDiscountListResponse}
// @Router /api/v1/admin/discounts [get]
func (h *DiscountAdminHandler) GetDiscountList(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	p := handler.BindPagination(c)

	req := &adminService.AdminDiscountListRequest{
		Page:     p.Page,
		PageSize: p.PageSize,
		Kind:     c.Query("kind"),
		Keyword:  c.Query("keyword"),
	}

	if v := c.Query("active"); v != "" {
		active := v == "true"
		req.Active = &active
	}
	if v := c.Query("is_public"); v != "" {
		isPublic := v == "true"
		req.IsPublic = &isPublic
	}

	ownerID, ok := handler.ParseQueryID(c, "owner_id", "卖家")
	if !ok {
		return
	}
	req.OwnerID = ownerID

	itemID, ok := handler.ParseQueryID(c, "item_id", "物品")
	if !ok {
		return
	}
	req.ItemID = itemID

	result, err := h.discountAdminService.GetDiscountList(c.Request.Context(), req)
	if handler.HandleError(c, err) {
		return
	}

	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}

// GetDiscountDetail 获取折扣码详情
// @Summary 获取折扣码详情（管理端）
// @Tags 管理端-折扣码
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Success 200 {object} response.Response{data=models.DiscountCode}
// @Router /api/v1/admin/discounts/{id} [get]
func (h *DiscountAdminHandler) GetDiscountDetail(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	discount, err := h.discountAdminService.GetDiscountDetail(c.Request.Context(), id)
	handler.MustSucceed(c, err, discount)
}

// GetDiscountByCode 按码值获取折扣码详情
// @Summary 按码值查询折扣码（管理端，含已停用）
// @Tags 管理端-折扣码
// @Produce json
// @Security Bearer
// @Param code path string true "折扣码"
// @Success 200 {object} response.Response{data=models.DiscountCode}
// @Router /api/v1/admin/discounts/code/{code} [get]
func (h *DiscountAdminHandler) GetDiscountByCode(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, "折扣码不能为空")
		return
	}

	discount, err := h.discountAdminService.GetDiscountByCode(c.Request.Context(), code)
	handler.MustSucceed(c, err, discount)
}

// AssignUsers 批量授予折扣码
// @Summary 将折扣码授予一批用户
// @Tags 管理端-折扣码
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Param request body admin.AssignUsersRequest true "授予请求"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/discounts/{id}/assignments [post]
func (h *DiscountAdminHandler) AssignUsers(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	var req adminService.AssignUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	err := h.discountAdminService.AssignUsers(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, nil)
}

// GetAssignmentList 获取授予记录列表
// @Summary 获取折扣码的授予记录列表
// @Tags 管理端-折扣码
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=admin.AssignmentListResponse}
// @Router /api/v1/admin/discounts/{id}/assignments [get]
func (h *DiscountAdminHandler) GetAssignmentList(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	p := handler.BindPagination(c)

	result, err := h.discountAdminService.GetAssignmentList(c.Request.Context(), id, p.Page, p.PageSize)
	if handler.HandleError(c, err) {
		return
	}

	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}

// UpdateAssignment 更新授予记录
// @Summary 更新指定用户的授予记录
// @Tags 管理端-折扣码
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Param user_id path int true "用户ID"
// @Param request body admin.UpdateAssignmentRequest true "更新请求"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/discounts/{id}/assignments/{user_id} [put]
func (h *DiscountAdminHandler) UpdateAssignment(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	userID, ok := handler.ParseParamID(c, "user_id", "用户")
	if !ok {
		return
	}

	var req adminService.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	err := h.discountAdminService.UpdateAssignment(c.Request.Context(), id, userID, &req)
	handler.MustSucceed(c, err, nil)
}

// RevokeAssignment 撤销授予
// @Summary 撤销指定用户的授予
// @Tags 管理端-折扣码
// @Produce json
// @Security Bearer
// @Param id path int true "折扣码ID"
// @Param user_id path int true "用户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/discounts/{id}/assignments/{user_id} [delete]
func (h *DiscountAdminHandler) RevokeAssignment(c *gin.Context) {
	_, id, ok := handler.RequireAdminAndParseID(c, "折扣码")
	if !ok {
		return
	}

	userID, ok := handler.ParseParamID(c, "user_id", "用户")
	if !ok {
		return
	}

	err := h.discountAdminService.RevokeAssignment(c.Request.Context(), id, userID)
	handler.MustSucceed(c, err, nil)
}

// GetOperationLogList 获取操作日志列表
// @Summary 获取操作日志列表
// @Tags 管理端-系统
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param module query string false "模块"
// @Param action query string false "动作"
// @Success 200 {object} response.Response{data=admin.OperationLogListResponse}
// @Router /api/v1/admin/operation-logs [get]
func (h *DiscountAdminHandler) GetOperationLogList(c *gin.Context) {
	if _, ok := handler.RequireAdminID(c); !ok {
		return
	}

	p := handler.BindPagination(c)

	filters := map[string]interface{}{
		"module": c.Query("module"),
		"action": c.Query("action"),
	}

	startTime, endTime, ok := handler.ParseQueryDateRange(c)
	if !ok {
		return
	}
	if startTime != nil {
		filters["start_time"] = *startTime
	}
	if endTime != nil {
		filters["end_time"] = *endTime
	}

	result, err := h.discountAdminService.GetOperationLogList(c.Request.Context(), p.Page, p.PageSize, filters)
	if handler.HandleError(c, err) {
		return
	}

	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}
