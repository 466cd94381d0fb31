package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/governance-gin/internal/service"
	"github.com/mautops/governance-gin/internal/utils"
)

// QueryController 查询控制器
type QueryController struct {
	queryService      service.QueryService
	statisticsService service.StatisticsService
}

// NewQueryController 创建查询控制器
func NewQueryController(queryService service.QueryService, statisticsService service.StatisticsService) *QueryController {
	return &QueryController{
		queryService:      queryService,
		statisticsService: statisticsService,
	}
}

// List 列出提案
// @Summary      列出提案
// @Description  按条件分页查询提案列表
// @Tags         提案查询
// @Accept       json
// @Produce      json
// @Param        stage             query string false "阶段: PROPOSAL, FUNDING, LIVE"
// @Param        status            query string false "展示状态"
// @Param        lifecycle_status  query string false "生命周期状态"
// @Param        entity_type       query string false "实体类型"
// @Param        created_by        query string false "创建人"
// @Param        year              query int    false "年份"
// @Param        page              query int    false "页码"
// @Param        page_size         query int    false "每页数量"
// @Param        sort_by           query string false "排序字段"
// @Param        order             query string false "排序方向: asc, desc"
// @Success      200  {object}  PaginatedResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /submissions [get]
// @Security     BearerAuth
func (c *QueryController) List(ctx *gin.Context) {
	filter := &service.ListSubmissionsFilter{
		SortBy: ctx.Query("sort_by"),
		Order:  ctx.Query("order"),
	}

	if v := ctx.Query("stage"); v != "" {
		filter.Stage = &v
	}
	if v := ctx.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := ctx.Query("lifecycle_status"); v != "" {
		filter.LifecycleStatus = &v
	}
	if v := ctx.Query("entity_type"); v != "" {
		filter.EntityType = &v
	}
	if v := ctx.Query("created_by"); v != "" {
		filter.CreatedBy = &v
	}
	if v := ctx.Query("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid year", err.Error())
			return
		}
		filter.Year = &year
	}

	filter.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	subs, total, err := c.queryService.ListSubmissions(filter)
	if err != nil {
		Error(ctx, http.StatusBadRequest, "failed to list submissions", err.Error())
		return
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	totalPage := int((total + int64(pageSize) - 1) / int64(pageSize))

	Paginated(ctx, subs, PaginationInfo{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// AuditTrail 获取提案审计轨迹
// @Summary      获取审计轨迹
// @Description  返回提案的只追加审计轨迹,按时间正序
// @Tags         提案查询
// @Accept       json
// @Produce      json
// @Param        id path string true "提案编号"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id}/audit [get]
// @Security     BearerAuth
func (c *QueryController) AuditTrail(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateCaseID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid case ID", err.Error())
		return
	}

	trail, err := c.queryService.GetAuditTrail(id)
	if err != nil {
		WriteWorkflowError(ctx, err)
		return
	}

	Success(ctx, trail)
}

// Requests 获取提案审批请求记录
// @Summary      获取审批请求
// @Description  返回提案全部轮次的审批请求记录,含已取消的
// @Tags         提案查询
// @Accept       json
// @Produce      json
// @Param        id path string true "提案编号"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /submissions/{id}/requests [get]
// @Security     BearerAuth
func (c *QueryController) Requests(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateCaseID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid case ID", err.Error())
		return
	}

	requests, err := c.queryService.GetRequests(id)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get requests", err.Error())
		return
	}

	Success(ctx, requests)
}

// Statistics 获取统计数据
// @Summary      获取统计数据
// @Description  返回按生命周期、阶段、时间的提案分布和审批决定统计
// @Tags         提案查询
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      500  {object}  ErrorResponse
// @Router       /statistics [get]
// @Security     BearerAuth
func (c *QueryController) Statistics(ctx *gin.Context) {
	byLifecycle, err := c.statisticsService.GetSubmissionStatisticsByLifecycle()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}
	byStage, err := c.statisticsService.GetSubmissionStatisticsByStage()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}
	byTime, err := c.statisticsService.GetSubmissionStatisticsByTime()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}
	decisions, err := c.statisticsService.GetDecisionStatistics()
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get statistics", err.Error())
		return
	}

	Success(ctx, gin.H{
		"by_lifecycle": byLifecycle,
		"by_stage":     byStage,
		"by_time":      byTime,
		"decisions":    decisions,
	})
}
