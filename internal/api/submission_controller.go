package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/governance-gin/internal/service"
	"github.com/mautops/governance-gin/internal/utils"
	"github.com/mautops/governance-gin/internal/workflow"
)

// SubmissionController 提案控制器
type SubmissionController struct {
	submissionService service.SubmissionService
}

// NewSubmissionController 创建提案控制器
func NewSubmissionController(submissionService service.SubmissionService) *SubmissionController {
	return &SubmissionController{
		submissionService: submissionService,
	}
}

// validateCaseID 验证提案编号并返回错误响应(如果无效)
func (c *SubmissionController) validateCaseID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateCaseID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid case ID", err.Error())
		return false
	}
	return true
}

// Create 创建提案
// @Summary      创建治理提案
// @Description  创建新的治理提案,初始状态为 DRAFT
// @Tags         提案管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateSubmissionRequest true "提案信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /submissions [post]
// @Security     BearerAuth
func (c *SubmissionController) Create(ctx *gin.Context) {
	var req service.CreateSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := utils.ValidateTitle(req.Title); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid title", err.Error())
		return
	}

	sub, err := c.submissionService.Create(ctx.Request.Context(), &req, GetActor(ctx))
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to create submission", err.Error())
		return
	}

	Success(ctx, sub)
}

// Get 获取提案详情
// @Summary      获取提案详情
// @Description  根据编号获取提案完整聚合,含审批环节与审计轨迹
// @Tags         提案管理
// @Accept       json
// @Produce      json
// @Param        id path string true "提案编号"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /submissions/{id} [get]
// @Security     BearerAuth
func (c *SubmissionController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateCaseID(ctx, id) {
		return
	}

	sub, err := c.submissionService.Get(id)
	if err != nil {
		WriteWorkflowError(ctx, err)
		return
	}

	Success(ctx, sub)
}

// LegalActions 获取提案当前的合法动作
// @Summary      获取合法动作
// @Description  返回提案当前状态下允许执行的动作列表
// @Tags         提案管理
// @Accept       json
// @Produce      json
// @Param        id path string true "提案编号"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id}/actions [get]
// @Security     BearerAuth
func (c *SubmissionController) LegalActions(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateCaseID(ctx, id) {
		return
	}

	sub, err := c.submissionService.Get(id)
	if err != nil {
		WriteWorkflowError(ctx, err)
		return
	}

	Success(ctx, gin.H{
		"lifecycle_status": sub.Workflow.LifecycleStatus,
		"actions":          workflow.LegalActions(sub.Workflow.LifecycleStatus),
		"editable":         workflow.IsEditable(sub.Workflow.LifecycleStatus),
	})
}

// RunAction 执行生命周期动作
// @Summary      执行生命周期动作
// @Description  对提案执行命名动作,非法动作返回 409 且状态不变
// @Tags         提案管理
// @Accept       json
// @Produce      json
// @Param        id path string true "提案编号"
// @Param        request body service.ActionRequest true "动作"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/actions [post]
// @Security     BearerAuth
func (c *SubmissionController) RunAction(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateCaseID(ctx, id) {
		return
	}

	var req service.ActionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	sub, err := c.submissionService.RunAction(ctx.Request.Context(), id, workflow.Action(req.Action), GetActor(ctx))
	if err != nil {
		WriteWorkflowError(ctx, err)
		return
	}

	Success(ctx, sub)
}

// RecordDecision 记录审批决定
// @Summary      记录审批环节决定
// @Description  记录某个审批环节的决定并立即对账,满足条件时提案推进一步
// @Tags         提案管理
// @Accept       json
// @Produce      json
// @Param        id path string true "提案编号"
// @Param        request body service.DecisionRequest true "决定"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/decisions [post]
// @Security     BearerAuth
func (c *SubmissionController) RecordDecision(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateCaseID(ctx, id) {
		return
	}

	var req service.DecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	decision, ok := parseDecision(req.Decision)
	if !ok {
		Error(ctx, http.StatusBadRequest, "invalid decision",
			"decision must be one of: Approved, Rejected, Need More Info")
		return
	}

	sub, err := c.submissionService.RecordDecision(
		ctx.Request.Context(), id, workflow.StageCode(req.Stage), decision, req.Comment, GetActor(ctx))
	if err != nil {
		WriteWorkflowError(ctx, err)
		return
	}

	Success(ctx, sub)
}

// Reconcile 对提案执行一次对账
// @Summary      执行对账
// @Description  按当前审批汇总与门禁信号推进提案,最多前进一步,幂等
// @Tags         提案管理
// @Accept       json
// @Produce      json
// @Param        id path string true "提案编号"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id}/reconcile [post]
// @Security     BearerAuth
func (c *SubmissionController) Reconcile(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateCaseID(ctx, id) {
		return
	}

	sub, err := c.submissionService.Reconcile(ctx.Request.Context(), id)
	if err != nil {
		WriteWorkflowError(ctx, err)
		return
	}

	Success(ctx, sub)
}

// ReconcileAll 对全部非终态提案执行一次对账
// @Summary      批量对账
// @Description  对全部非终态提案各执行一次对账,返回推进数量
// @Tags         提案管理
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      500  {object}  ErrorResponse
// @Router       /reconcile [post]
// @Security     BearerAuth
func (c *SubmissionController) ReconcileAll(ctx *gin.Context) {
	advanced, err := c.submissionService.ReconcileAll(ctx.Request.Context())
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to reconcile", err.Error())
		return
	}

	Success(ctx, gin.H{"advanced": advanced})
}

// parseDecision 解析审批决定,同时接受环节状态形式与展示形式
func parseDecision(s string) (workflow.StageStatus, bool) {
	switch s {
	case string(workflow.StageApproved), string(workflow.DecisionApproved):
		return workflow.StageApproved, true
	case string(workflow.StageRejected), string(workflow.DecisionRejected):
		return workflow.StageRejected, true
	case string(workflow.StageNeedMoreInfo), string(workflow.DecisionNeedMoreInfo):
		return workflow.StageNeedMoreInfo, true
	}
	return "", false
}
