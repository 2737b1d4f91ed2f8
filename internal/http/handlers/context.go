package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	storeTimeout = 3 * time.Second
	// bcrypt and image work get more room than a single query
	slowTimeout = 10 * time.Second
)

// requestContext bounds store calls while keeping the request's trace span.
func requestContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
