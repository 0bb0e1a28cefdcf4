package transport

import (
	"errors"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/UnendingLoop/ImageEvents/internal/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrQueueUnavailable):
		return 503
	case errors.Is(err, model.ErrUnauthorized),
		errors.Is(err, model.ErrInvalidCredentials):
		return 401
	case errors.Is(err, model.ErrImageNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return 404
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrFileTooLarge),
		errors.Is(err, model.ErrInvalidPatch),
		errors.Is(err, model.ErrInvalidCredentialsFormat),
		errors.Is(err, model.ErrUserExists):
		return 400
	default:
		return 500
	}
}

// message - наружу уходят только тексты известных ошибок
func message(err error, code int) string {
	if code == 500 {
		return model.ErrCommon500.Error()
	}
	return err.Error()
}

func respondError(ctx *ginext.Context, err error) {
	code := errorCodeDefiner(err)
	ctx.JSON(code, map[string]string{"detail": message(err, code)})
}

func abortWithError(ctx *ginext.Context, err error) {
	code := errorCodeDefiner(err)
	ctx.AbortWithStatusJSON(code, map[string]string{"detail": message(err, code)})
}

func respondAccepted(ctx *ginext.Context) {
	ctx.JSON(202, map[string]string{"detail": "accepted"})
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}

// SpecialChars - хотя бы один из них обязателен в пароле
const SpecialChars = "!@#$%^&*()_+[]{}|;:',.<>/?"

var resolutionRule = regexp.MustCompile(`^\d+x\d+$`)

// RegisterValidators - правила "specialchar" и "resolution" для тегов binding
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	if err := v.RegisterValidation("specialchar", func(fl validator.FieldLevel) bool {
		return strings.ContainsAny(fl.Field().String(), SpecialChars)
	}); err != nil {
		return err
	}
	return v.RegisterValidation("resolution", func(fl validator.FieldLevel) bool {
		return resolutionRule.MatchString(fl.Field().String())
	})
}
