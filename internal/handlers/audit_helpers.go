package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"group-sync-service/internal/observability"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if val, ok := c.Get("userID"); ok {
		switch userID := val.(type) {
		case uuid.UUID:
			if userID != uuid.Nil {
				value := userID.String()
				return &value
			}
		case string:
			if userID != "" {
				return &userID
			}
		}
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
