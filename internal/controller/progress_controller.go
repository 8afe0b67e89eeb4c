package controller

import (
	"edu_bridge_backend/internal/service"
	"edu_bridge_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// RecordProgress godoc
// @Summary 记录学习进度
// @Description progress_percent 为 100 时标记为已完成
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.RecordProgressRequest true "进度"
// @Success 200 {object} util.Response{data=model.ProgressRecord}
// @Failure 400 {object} util.Response
// @Router /progress/complete [post]
func (c *ProgressController) RecordProgress(ctx *gin.Context) {
	current := util.GetUserFromContext(ctx)
	if current == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.RecordProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	record, err := c.ProgressService.RecordProgress(ctx.Request.Context(), current.UserID, req)
	if err != nil {
		if errors.Is(err, util.ErrInvalidChange) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, record)
}

// TeacherDashboard godoc
// @Summary 班级学习概况
// @Description 完成率 = 已完成记录数 / (学生数 * lesson_count)
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param classId path string true "班级ID"
// @Param lesson_count query int false "每个学生的课程数，默认为班级已分配课程数"
// @Success 200 {object} util.Response{data=model.DashboardStats}
// @Failure 403 {object} util.Response
// @Router /progress/teacher/{classId} [get]
func (c *ProgressController) TeacherDashboard(ctx *gin.Context) {
	current := util.GetUserFromContext(ctx)
	if current == nil {
		util.Unauthorized(ctx)
		return
	}
	classID := ctx.Param("classId")

	lessonCount, ok := util.QueryInt(ctx.Query("lesson_count"), -1)
	if !ok || (ctx.Query("lesson_count") != "" && lessonCount < 0) {
		util.BadRequest(ctx, "lesson_count must be a non-negative integer")
		return
	}
	if lessonCount < 0 {
		count, err := c.ProgressService.AssignedLessonCount(ctx.Request.Context(), classID)
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		lessonCount = count
	}

	stats, err := c.ProgressService.TeacherDashboard(ctx.Request.Context(), classID, current.UserID, lessonCount)
	if err != nil {
		if errors.Is(err, util.ErrForbidden) {
			util.Forbidden(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
