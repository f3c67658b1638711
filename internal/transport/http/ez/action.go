package ez

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"cineverse/internal/domain"
	resp "cineverse/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

func (e EZ) GET(path string, h func(c *gin.Context) (any, error)) {
	e.g.GET(path, func(c *gin.Context) {
		data, err := h(c)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(data))
	})
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// AErr 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// FromDomain 领域错误 → 业务码；存储故障不把底层原因透出去
func FromDomain(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrInvalidCredential),
		errors.Is(err, domain.ErrNotAuthenticated),
		errors.Is(err, domain.ErrInvalidToken):
		return &AErr{Code: resp.CodeUnauthorized, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrForbidden):
		return &AErr{Code: resp.CodeForbidden, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrAccountExists),
		errors.Is(err, domain.ErrProfileExists),
		errors.Is(err, domain.ErrInvalidInput):
		return &AErr{Code: resp.CodeBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrProfileInconsistent):
		return &AErr{Code: resp.CodeConflict, Msg: "profile incomplete", Err: err}
	case errors.Is(err, domain.ErrBackendUnavailable):
		return &AErr{Code: resp.CodeUnavailable, Msg: "backend unavailable", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &AErr{Code: resp.CodeTimeout, Msg: "timeout", Err: err}
	}
	return &AErr{Code: resp.CodeServerError, Msg: "internal error", Err: err}
}

// Fail 写错误信封；5xx 记到 gin 的错误列表里给访问日志
func Fail(c *gin.Context, err error) {
	ae := FromDomain(err)
	if ae.Code >= resp.CodeServerError {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
}

// Action 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // "GET" | "POST" | "PUT" | "PATCH" | "DELETE"
	Path    string   // 例："/auth/signin"、"/users/:id"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录（检查 userId）
	Roles   []string // 限定角色（可选）
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth {
			if c.GetString("userId") == "" {
				c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if len(a.Roles) > 0 && !slices.Contains(a.Roles, c.GetString("role")) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}
