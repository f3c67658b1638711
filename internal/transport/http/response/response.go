package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Resp 统一信封；HTTP 状态恒为 200，错误看 code
type Resp struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// Paged 列表数据
type Paged[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// Abort 中间件里终止请求
func Abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(http.StatusOK, Error(code, msg))
}

// List items 为 nil 时输出 []
func List[T any](items []T, total int64, offset, limit int) Paged[T] {
	if items == nil {
		items = []T{}
	}
	return Paged[T]{Items: items, Total: total, Offset: offset, Limit: limit}
}
