package middlewares

import "github.com/gin-gonic/gin"

// abortJSON writes the API error body and stops the chain.
func abortJSON(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if id := c.GetString(CtxRequestID); id != "" {
		body["requestId"] = id
	}
	c.AbortWithStatusJSON(status, body)
}
