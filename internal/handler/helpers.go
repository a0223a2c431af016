package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"storefront/storebot/internal/handler/middleware"
)

var ErrNoUser = errors.New("user not found in context")

func getUserIDFromContext(c *gin.Context) (string, error) {
	userID := c.GetString(middleware.ContextKeyUserID)
	if userID == "" {
		return "", ErrNoUser
	}
	return userID, nil
}
