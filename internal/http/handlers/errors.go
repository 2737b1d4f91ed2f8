package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NotFound answers unmatched routes and methods.
func NotFound(ctx *gin.Context) {
	RespondError(ctx, http.StatusNotFound, "not_found", "Not found", nil)
}
