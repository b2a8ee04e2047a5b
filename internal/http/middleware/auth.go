package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/experiments-backend/internal/http/response"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/apierr"
	"github.com/yungbote/experiments-backend/internal/platform/ctxutil"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
	"github.com/yungbote/experiments-backend/internal/services"
)

type AuthMiddleware struct {
	log      *logger.Logger
	verifier services.CredentialVerifier
	metrics  *observability.Metrics
}

func NewAuthMiddleware(log *logger.Logger, verifier services.CredentialVerifier, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), verifier: verifier, metrics: metrics}
}

// RequireAuth resolves "Authorization: Bearer <token>" to a client id and
// attaches it to the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			am.reject(c, "missing", "Missing authorization header")
			return
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			am.reject(c, "malformed", "Invalid authorization header format")
			return
		}
		clientID, err := am.verifier.Verify(c.Request.Context(), parts[1])
		if err != nil || clientID <= 0 {
			am.log.Debug("Token rejected", "error", err)
			am.reject(c, "invalid", "Invalid token")
			return
		}
		ctx := ctxutil.WithClientData(c.Request.Context(), &ctxutil.ClientData{ClientID: clientID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (am *AuthMiddleware) reject(c *gin.Context, reason, message string) {
	am.metrics.IncAuthFailure(reason)
	response.RespondErr(c, apierr.Auth("%s", message))
}
