package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/campusdesk/portal/core"
	"github.com/campusdesk/portal/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errEmptyUpdate    = echo.NewHTTPError(http.StatusBadRequest, "nothing to update")

	// service errors answered with their own message and these statuses
	sentinelStatus = map[error]int{
		user.ErrCodeRecentlySent: http.StatusTooManyRequests,
	}
)

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler mapping service errors to responses.
// Unknown errors are logged as server errors, and a core shutdown error also calls signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := http.StatusInternalServerError, interface{}(http.StatusText(http.StatusInternalServerError))

		cause := errors.Cause(err)
		if status, ok := sentinelStatus[cause]; ok {
			code, message = status, cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				code, message = httpErrorResponse(origErr)
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code, message = http.StatusBadRequest, fldErrs
			case *core.ValidationError:
				code, message = http.StatusBadRequest, origErr.Error()
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				}
			case *core.NotFoundError:
				code, message = http.StatusNotFound, origErr.Error()
			default:
				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr = user.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email}
				}
				logger.Error(http.StatusText(code), errors.Wrap(err, http.StatusText(code)), usr)
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// httpErrorResponse unwraps errors raised by echo and its middlewares. A missing JWT is
// reported as 401 instead of the middleware's 400.
func httpErrorResponse(herr *echo.HTTPError) (int, interface{}) {
	if herr == middleware.ErrJWTMissing {
		return http.StatusUnauthorized, herr.Message
	}
	if inner, ok := herr.Internal.(*echo.HTTPError); ok {
		herr = inner
	}
	return herr.Code, herr.Message
}
