package transport

import (
	"strings"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/UnendingLoop/ImageEvents/internal/mwlogger"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
)

const userKey = "current_user"

// AuthMiddleware - пропускает дальше только с валидным bearer-токеном существующего пользователя
func AuthMiddleware(svc AuthService) gin.HandlerFunc {
	return func(ctx *ginext.Context) {
		header := ctx.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			ctx.Header("WWW-Authenticate", "Bearer")
			abortWithError(ctx, model.ErrUnauthorized)
			return
		}

		user, err := svc.Authenticate(ctx.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			ctx.Header("WWW-Authenticate", "Bearer")
			abortWithError(ctx, err)
			return
		}

		// логгер запроса дополняется пользователем
		logger := mwlogger.LoggerFromContext(ctx.Request.Context()).With().Int64("user_id", user.ID).Logger()
		ctx.Request = ctx.Request.WithContext(mwlogger.ContextWithLogger(ctx.Request.Context(), logger))

		ctx.Set(userKey, user)
		ctx.Next()
	}
}

func currentUser(ctx *ginext.Context) (*model.User, bool) {
	v, ok := ctx.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}
