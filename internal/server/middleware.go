package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/servicedesk/internal/observability/context"
	"github.com/smallbiznis/servicedesk/internal/ratelimit"
	requestdomain "github.com/smallbiznis/servicedesk/internal/request/domain"
	"go.uber.org/zap"
)

const (
	HeaderUserID          = "X-User-ID"
	HeaderImpersonateUser = "X-Impersonate-User-ID"
	HeaderRetryAfter      = "Retry-After"
	contextCallerKey      = "caller"
)

// CallerRequired reads the caller identity set by the gateway in front of
// this service. Authentication itself happens upstream.
func CallerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := parseOptionalSnowflakeID(c.GetHeader(HeaderUserID))
		if err != nil || userID == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		impersonated, err := parseOptionalSnowflakeID(c.GetHeader(HeaderImpersonateUser))
		if err != nil {
			AbortWithError(c, newValidationError("impersonate_user_id", "invalid_impersonate_user_id", "invalid impersonated user"))
			return
		}

		caller := requestdomain.Caller{UserID: *userID}
		if impersonated != nil {
			caller.ImpersonateUserID = *impersonated
		}
		c.Set(contextCallerKey, caller)

		ctx := obscontext.WithActor(c.Request.Context(), "user", userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func callerFrom(c *gin.Context) requestdomain.Caller {
	caller, _ := c.MustGet(contextCallerKey).(requestdomain.Caller)
	return caller
}

// WriteRateLimited spends one token of the caller's write budget. Limiter
// failures are logged and the request goes through.
func WriteRateLimited(limiter *ratelimit.WriteLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		caller := callerFrom(c)
		res, err := limiter.AllowWrite(c.Request.Context(), caller.UserID)
		if err != nil {
			log.Warn("rate limiter unavailable",
				zap.String("user_id", caller.UserID.String()),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !res.Allowed {
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header(HeaderRetryAfter, strconv.Itoa(seconds))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
