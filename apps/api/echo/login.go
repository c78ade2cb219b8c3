package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/campusdesk/portal/core/user"
)

type loginApi struct {
	svc      *user.Service
	auth     *authenticator
	validate *validator.Validate
}

// registerAuthAPI mounts the email code sign-in: POST /code mails a code, POST /login trades
// it for a token.
func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *user.Service, validate *validator.Validate) {
	api := loginApi{
		svc:      svc,
		auth:     auth,
		validate: validate,
	}

	ag := g.Group("/auth")
	ag.POST("/code", api.requestCode)
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.GET("/me", api.me, jwt)
}

type (
	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (api *loginApi) requestCode(ctx echo.Context) error {
	var data user.CodeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CodeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestCode(data.Email); err != nil {
		return errors.Wrap(err, "requesting code")
	}
	return ctx.JSON(http.StatusAccepted, SuccessResponse{
		Success: fmt.Sprintf("A sign-in code is on its way to %s.", data.Email),
	})
}

func (api *loginApi) login(ctx echo.Context) error {
	var data user.CodeLogin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CodeLogin")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Login(data)
	if err != nil {
		return errors.Wrap(err, "signing in")
	}
	token, err := GenerateToken(api.auth.conf, GetUserClaims(api.auth.conf, usr))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: &usr})
}

func (api *loginApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *loginApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}
