package middlewares

// gin context keys set by the middleware chain.
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
	CtxUser      = "auth.user"
)
