package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// APIModule 模块可选择实现其中一个或两个接口
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Modules 一组功能模块；按类型断言分发到用户端/后台
type Modules []any

func (ms Modules) sorted() Modules {
	out := append(Modules(nil), ms...)
	sort.SliceStable(out, func(i, j int) bool { return priorityOf(out[i]) < priorityOf(out[j]) })
	return out
}

// MountAPI 在 /api/v1 上挂载所有实现了 APIModule 的模块
func (ms Modules) MountAPI(api *gin.RouterGroup) {
	for _, m := range ms.sorted() {
		if am, ok := m.(APIModule); ok {
			am.MountAPI(api)
		}
	}
}

// MountAdmin 在 /admin/v1 上挂载所有实现了 AdminModule 的模块
func (ms Modules) MountAdmin(admin *gin.RouterGroup) {
	for _, m := range ms.sorted() {
		if am, ok := m.(AdminModule); ok {
			am.MountAdmin(admin)
		}
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
