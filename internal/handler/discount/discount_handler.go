// Package discount 提供折扣码相关的 HTTP Handler
package discount

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/idle-market-backend/internal/common/handler"
	"github.com/dumeirei/idle-market-backend/internal/common/response"
	discountService "github.com/dumeirei/idle-market-backend/internal/service/discount"
)

// DiscountHandler 折扣码处理器
type DiscountHandler struct {
	discountService *discountService.DiscountService
}

// NewDiscountHandler 创建折扣码处理器
func NewDiscountHandler(svc *discountService.DiscountService) *DiscountHandler {
	return &DiscountHandler{discountService: svc}
}

// ListAvailable 获取当前用户可用的折扣码列表
// @Summary 获取可用折扣码列表
// @Tags 折扣码
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=discount.DiscountListResponse}
// @Router /api/v1/discounts [get]
func (h *DiscountHandler) ListAvailable(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)

	result, err := h.discountService.ListAvailable(c.Request.Context(), userID, p.Page, p.PageSize)
	if handler.HandleError(c, err) {
		return
	}

	response.SuccessPage(c, result.List, result.Total, p.Page, p.PageSize)
}

// GetDetail 获取折扣码详情
// @Summary 获取折扣码详情
// @Tags 折扣码
// @Produce json
// @Param id path int true "折扣码ID"
// @Success 200 {object} response.Response{data=discount.DiscountItem}
// @Router /api/v1/discounts/{id} [get]
func (h *DiscountHandler) GetDetail(c *gin.Context) {
	id, ok := handler.ParseID(c, "折扣码")
	if !ok {
		return
	}

	item, err := h.discountService.GetDetail(c.Request.Context(), id)
	handler.MustSucceed(c, err, item)
}

// GetShareInfo 获取折扣码分享信息
// @Summary 获取折扣码分享链接与二维码
// @Tags 折扣码
// @Produce json
// @Param id path int true "折扣码ID"
// @Success 200 {object} response.Response{data=discount.ShareInfo}
// @Router /api/v1/discounts/{id}/share [get]
func (h *DiscountHandler) GetShareInfo(c *gin.Context) {
	id, ok := handler.ParseID(c, "折扣码")
	if !ok {
		return
	}

	info, err := h.discountService.GetShareInfo(c.Request.Context(), id)
	handler.MustSucceed(c, err, info)
}

// Validate 校验折扣码
// @Summary 校验折扣码并试算折扣金额
// @Tags 折扣码
// @Accept json
// @Produce json
// @Param request body discount.ValidateRequest true "校验请求"
// @Success 200 {object} response.Response{data=discount.ValidateResult}
// @Router /api/v1/discounts/validate [post]
func (h *DiscountHandler) Validate(c *gin.Context) {
	var req discountService.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	// 登录用户参与授予校验，匿名用户只能使用公开码
	if userID := handler.GetOptionalUserID(c); userID > 0 {
		req.UserID = &userID
	}

	result, err := h.discountService.ValidateAndCompute(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// Redeem 核销折扣码
// @Summary 核销折扣码
// @Tags 折扣码
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body discount.ValidateRequest true "核销请求"
// @Success 200 {object} response.Response{data=discount.RedeemResult}
// @Router /api/v1/discounts/redeem [post]
func (h *DiscountHandler) Redeem(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req discountService.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.UserID = &userID

	result, err := h.discountService.Redeem(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// ReleaseRequest 核销回退请求
type ReleaseRequest struct {
	Code string `json:"code" binding:"required"`
}

// Release 回退一次核销
// @Summary 回退折扣码核销（订单取消）
// @Tags 折扣码
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ReleaseRequest true "回退请求"
// @Success 200 {object} response.Response
// @Router /api/v1/discounts/release [post]
func (h *DiscountHandler) Release(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	err := h.discountService.Release(c.Request.Context(), req.Code, &userID)
	handler.MustSucceed(c, err, nil)
}
