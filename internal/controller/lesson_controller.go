package controller

import (
	"edu_bridge_backend/internal/service"
	"edu_bridge_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

type AssignLessonRequest struct {
	ClassID  string `json:"class_id" binding:"required"`
	LessonID string `json:"lesson_id" binding:"required"`
}

// ListLessons godoc
// @Summary 课程列表
// @Description 按语言返回课程，缺少译文时回退到英文
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param lang query string false "语言代码"
// @Param subject query string false "学科"
// @Success 200 {object} util.Response{data=[]model.LocalizedLesson}
// @Router /lessons [get]
func (c *LessonController) ListLessons(ctx *gin.Context) {
	lessons, err := c.LessonService.ListLessons(ctx.Request.Context(), ctx.Query("lang"), ctx.Query("subject"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// ListStudentLessons godoc
// @Summary 学生已分配课程
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param lang query string false "语言代码"
// @Success 200 {object} util.Response{data=[]model.LocalizedLesson}
// @Router /lessons/student [get]
func (c *LessonController) ListStudentLessons(ctx *gin.Context) {
	current := util.GetUserFromContext(ctx)
	if current == nil {
		util.Unauthorized(ctx)
		return
	}

	lessons, err := c.LessonService.ListStudentLessons(ctx.Request.Context(), current.UserID, ctx.Query("lang"))
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// GetLesson godoc
// @Summary 课程详情
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param lang query string false "语言代码"
// @Success 200 {object} util.Response{data=model.LocalizedLesson}
// @Failure 404 {object} util.Response
// @Router /lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	lesson, err := c.LessonService.GetLesson(ctx.Request.Context(), ctx.Param("id"), ctx.Query("lang"))
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// AssignLesson godoc
// @Summary 给班级分配课程
// @Description 仅教师可调用
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body AssignLessonRequest true "分配信息"
// @Success 201 {object} util.Response{data=model.Assignment}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /lessons/assign [post]
func (c *LessonController) AssignLesson(ctx *gin.Context) {
	current := util.GetUserFromContext(ctx)
	if current == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AssignLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assignment, err := c.LessonService.AssignLesson(ctx.Request.Context(), req.ClassID, req.LessonID, current.UserID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrForbidden):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrLessonNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, assignment)
}
