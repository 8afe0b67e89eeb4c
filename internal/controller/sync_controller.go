package controller

import (
	"context"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Syncer is the part of SyncService the controller needs.
type Syncer interface {
	Sync(ctx context.Context, userID string, req *model.SyncRequest) (*model.SyncResult, error)
}

type SyncController struct {
	SyncService Syncer
}

func NewSyncController(syncService Syncer) *SyncController {
	return &SyncController{SyncService: syncService}
}

// Sync godoc
// @Summary 离线数据同步
// @Description 按顺序应用客户端变更，并返回 last_sync 之后的服务端变更。响应体不使用统一包装结构。
// @Tags 同步
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body model.SyncRequest true "客户端变更"
// @Success 200 {object} model.SyncResult
// @Failure 400 {object} util.Response
// @Failure 401 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /sync [post]
func (c *SyncController) Sync(ctx *gin.Context) {
	current := util.GetUserFromContext(ctx)
	if current == nil {
		util.Unauthorized(ctx)
		return
	}

	var req model.SyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.SyncService.Sync(ctx.Request.Context(), current.UserID, &req)
	if err != nil {
		if errors.Is(err, util.ErrTooManyChanges) || errors.Is(err, util.ErrInvalidCursor) {
			util.BadRequest(ctx, err.Error())
			return
		}
		// The reason is surfaced so the client can tell a failed catch-up apart.
		util.Error(ctx, http.StatusInternalServerError, err.Error())
		return
	}

	ctx.JSON(http.StatusOK, result)
}
