package controller

import (
	"ai_exam_backend/internal/model"
	"ai_exam_backend/internal/service"
	"ai_exam_backend/internal/util"
	"ai_exam_backend/pkg/monitoring"
	"errors"

	"github.com/gin-gonic/gin"
)

type PaperController struct {
	Service *service.PaperService
}

func NewPaperController(svc *service.PaperService) *PaperController {
	return &PaperController{Service: svc}
}

type GenerateSharedRequest struct {
	UserID   string           `json:"user_id" binding:"required"`
	FileList []model.FileInfo `json:"file_list" binding:"required,min=1,dive"`
}

type GeneratePaperRequest struct {
	UserID   string           `json:"user_id" binding:"required"`
	ChatID   string           `json:"chat_id" binding:"required"`
	FileList []model.FileInfo `json:"file_list" binding:"required,min=1,dive"`
}

type AnalyzePaperRequest struct {
	UserID  string                  `json:"user_id" binding:"required"`
	ChatID  string                  `json:"chat_id" binding:"required"`
	Answers []model.SubmittedAnswer `json:"answers" binding:"required,min=1"`
}

type SubmitAnswersRequest struct {
	UserID  string                  `json:"user_id" binding:"required"`
	Answers []model.SubmittedAnswer `json:"answers" binding:"required,min=1"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// 把服务层错误翻译成统一响应。找不到对应 404，请求数据问题对应 400，
// 其余按内部错误处理并记日志。
func respondPaperError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrPaperNotFound),
		errors.Is(err, util.ErrResultNotFound),
		errors.Is(err, util.ErrGenerationNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidAccessCode),
		errors.Is(err, util.ErrUnknownQuestion),
		errors.Is(err, util.ErrNoDocumentText),
		errors.Is(err, util.ErrUnsupportedFormat):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary 生成共享试题
// @Description 基于参考文档生成试题并签发访问码，返回访问链接
// @Tags 试题
// @Accept json
// @Produce json
// @Param body body GenerateSharedRequest true "生成参数"
// @Success 200 {object} util.Response
// @Router /api/paper/shared/generate [post]
func (c *PaperController) GenerateShared(ctx *gin.Context) {
	var req GenerateSharedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.GenerateSharedPaper(ctx.Request.Context(), req.UserID, req.FileList)
	if err != nil {
		respondPaperError(ctx, err)
		return
	}

	monitoring.PaperGenerated.Inc()
	util.SuccessWithMessage(ctx, "试题生成成功", result)
}

// @Summary 获取试题
// @Description 按试题ID获取题目列表，正确答案不下发
// @Tags 试题
// @Produce json
// @Param paperId path string true "试题ID"
// @Success 200 {object} util.Response
// @Router /api/paper/shared/{paperId} [get]
func (c *PaperController) GetPaper(ctx *gin.Context) {
	paperID := ctx.Param("paperId")

	paper, err := c.Service.GetPaperByID(ctx.Request.Context(), paperID)
	if err != nil {
		respondPaperError(ctx, err)
		return
	}

	util.Success(ctx, paper)
}

// @Summary 通过访问码获取试题
// @Tags 试题
// @Produce json
// @Param accessCode path string true "访问码"
// @Success 200 {object} util.Response
// @Router /api/paper/access/{accessCode} [get]
func (c *PaperController) GetPaperByAccessCode(ctx *gin.Context) {
	accessCode := ctx.Param("accessCode")

	paper, err := c.Service.GetPaperByAccessCode(ctx.Request.Context(), accessCode)
	if err != nil {
		respondPaperError(ctx, err)
		return
	}

	util.Success(ctx, paper)
}

// @Summary 提交答案
// @Description 判分并持久化结果，返回提交回执，得分通过结果接口查询
// @Tags 试题
// @Accept json
// @Produce json
// @Param paperId path string true "试题ID"
// @Param body body SubmitAnswersRequest true "用户答案"
// @Success 200 {object} util.Response
// @Router /api/paper/shared/{paperId}/submit [post]
func (c *PaperController) SubmitAnswers(ctx *gin.Context) {
	paperID := ctx.Param("paperId")

	var req SubmitAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	receipt, err := c.Service.SubmitAnswers(ctx.Request.Context(), paperID, req.UserID, req.Answers)
	if err != nil {
		respondPaperError(ctx, err)
		return
	}

	monitoring.AnswerSubmitted.Inc()
	util.SuccessWithMessage(ctx, "答案提交成功", receipt)
}

// @Summary 查询答题结果
// @Tags 试题
// @Produce json
// @Param paperId path string true "试题ID"
// @Param userId path string true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/paper/shared/{paperId}/result/{userId} [get]
func (c *PaperController) GetUserResult(ctx *gin.Context) {
	paperID := ctx.Param("paperId")
	userID := ctx.Param("userId")

	result, err := c.Service.GetUserResult(ctx.Request.Context(), paperID, userID)
	if err != nil {
		respondPaperError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 会话内生成试卷
// @Description 试卷仅写入短期缓存，供同一会话的分析接口使用
// @Tags 试题
// @Accept json
// @Produce json
// @Param body body GeneratePaperRequest true "生成参数"
// @Success 200 {object} util.Response
// @Router /api/paper/generate [post]
func (c *PaperController) GeneratePaper(ctx *gin.Context) {
	var req GeneratePaperRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Service.GeneratePaper(ctx.Request.Context(), req.UserID, req.ChatID, req.FileList)
	if err != nil {
		respondPaperError(ctx, err)
		return
	}

	monitoring.PaperGenerated.Inc()
	util.SuccessWithMessage(ctx, "试卷生成成功", view)
}

// @Summary 会话内分析答卷
// @Description 对会话内生成的试卷判分并返回逐题分析，不持久化
// @Tags 试题
// @Accept json
// @Produce json
// @Param body body AnalyzePaperRequest true "用户答案"
// @Success 200 {object} util.Response
// @Router /api/paper/analyze [post]
func (c *PaperController) AnalyzePaper(ctx *gin.Context) {
	var req AnalyzePaperRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.AnalyzePaper(ctx.Request.Context(), req.UserID, req.ChatID, req.Answers)
	if err != nil {
		respondPaperError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 更新试题状态
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paperId path string true "试题ID"
// @Param body body UpdateStatusRequest true "目标状态"
// @Success 200 {object} util.Response
// @Router /api/admin/paper/{paperId}/status [put]
func (c *PaperController) UpdateStatus(ctx *gin.Context) {
	paperID := ctx.Param("paperId")

	var req UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.UpdatePaperStatus(ctx.Request.Context(), paperID, req.Status); err != nil {
		respondPaperError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "状态更新成功", gin.H{"paper_id": paperID, "status": req.Status})
}

// @Summary 删除试题
// @Description 删除试题并级联删除全部答题记录
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param paperId path string true "试题ID"
// @Success 200 {object} util.Response
// @Router /api/admin/paper/{paperId} [delete]
func (c *PaperController) DeletePaper(ctx *gin.Context) {
	paperID := ctx.Param("paperId")

	if err := c.Service.DeletePaper(ctx.Request.Context(), paperID); err != nil {
		respondPaperError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "试题删除成功", gin.H{"paper_id": paperID})
}
