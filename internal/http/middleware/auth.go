package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/http/response"
	"github.com/yungbote/famspace-backend/internal/platform/apierr"
	"github.com/yungbote/famspace-backend/internal/platform/ctxutil"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"github.com/yungbote/famspace-backend/internal/realtime"
	"github.com/yungbote/famspace-backend/internal/services"
)

var errNoCredential = errors.New("missing or invalid token")

// AuthMiddleware resolves the bearer credential into the calling member. HTTP and the
// websocket handshake accept the same credential sources.
type AuthMiddleware struct {
	log           *logger.Logger
	auth          services.AuthService
	verifyTimeout time.Duration
}

type AuthOption func(*AuthMiddleware)

// WithVerifyTimeout bounds each credential check; zero leaves the request context as is.
func WithVerifyTimeout(d time.Duration) AuthOption {
	return func(am *AuthMiddleware) { am.verifyTimeout = d }
}

func NewAuthMiddleware(log *logger.Logger, auth services.AuthService, opts ...AuthOption) *AuthMiddleware {
	am := &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), auth: auth}
	for _, opt := range opts {
		opt(am)
	}
	return am
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := am.authenticate(c)
		if err != nil {
			am.log.Debug("credential rejected", "path", c.FullPath(), "error", err)
			response.RespondAppError(c, apierr.Unauthorized(errNoCredential))
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (am *AuthMiddleware) authenticate(c *gin.Context) (context.Context, error) {
	credential := realtime.CredentialFromRequest(c.Request)
	if credential == "" {
		return nil, errNoCredential
	}
	base := c.Request.Context()
	verifyCtx := base
	if am.verifyTimeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(base, am.verifyTimeout)
		defer cancel()
	}
	memberID, err := am.auth.Verify(verifyCtx, credential)
	if err != nil {
		return nil, err
	}
	if memberID == uuid.Nil {
		return nil, errNoCredential
	}
	return ctxutil.WithRequestData(base, &ctxutil.RequestData{TokenString: credential, MemberID: memberID}), nil
}
