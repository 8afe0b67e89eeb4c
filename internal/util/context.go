package util

import (
	"edu_bridge_backend/internal/model"

	"github.com/gin-gonic/gin"
)

// CurrentUser is the identity the auth gateway vouched for on this request.
type CurrentUser struct {
	UserID string
	Email  string
	Role   model.UserRole
}

func GetUserFromContext(c *gin.Context) *CurrentUser {
	user, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	current, ok := user.(*CurrentUser)
	if !ok {
		return nil
	}
	return current
}
