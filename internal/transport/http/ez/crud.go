package ez

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cineverse/internal/domain"
	"cineverse/internal/repo"
	resp "cineverse/internal/transport/http/response"
	"cineverse/pkg/utils"
)

// CrudHooks 可选钩子
type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	BeforeUpdate func(c *gin.Context, m *T) error
	ScopeList    func(c *gin.Context, q *gorm.DB) *gorm.DB // 自定义筛选/排序
	AfterGet     func(c *gin.Context, m *T)
}

// CrudConfig 按 owner 归属的通用 CRUD；表结构由 database.Migrate 负责
type CrudConfig[T any] struct {
	DB    *gorm.DB
	Group *gin.RouterGroup // 已鉴权分组（能拿 userId）
	Path  string
	New   func() *T

	Hooks CrudHooks[T]

	AllowCreate bool
	AllowList   bool
	AllowGet    bool
	AllowUpdate bool
	AllowDelete bool

	IDField    string // 默认 "ID"
	OwnerField string // 默认优先 "OwnerID"，其次 "UserID"/"UID"

	IDGen func() string // 默认 utils.NewID

	// 列表排序（模型字段名，自动转 snake_case），为空则按 ID DESC
	OrderBy     string
	OrderByDesc bool

	// DupMsg 唯一约束冲突时的提示
	DupMsg string
}

func (c *CrudConfig[T]) idFields() []string {
	if c.IDField != "" {
		return []string{c.IDField, "ID", "Id"}
	}
	return []string{"ID", "Id"}
}

func (c *CrudConfig[T]) ownerFields() []string {
	if c.OwnerField != "" {
		return []string{c.OwnerField, "OwnerID", "UserID", "UID"}
	}
	return []string{"OwnerID", "UserID", "UID"}
}

func stringField(obj any, candidates []string) (*string, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	v = v.Elem()
	for _, cand := range candidates {
		f, ok := v.Type().FieldByName(cand)
		if !ok || f.PkgPath != "" {
			continue
		}
		fv := v.FieldByIndex(f.Index)
		if fv.Kind() == reflect.String && fv.CanSet() {
			return fv.Addr().Interface().(*string), true
		}
	}
	return nil, false
}

func setString(obj any, candidates []string, val string) bool {
	p, ok := stringField(obj, candidates)
	if ok {
		*p = val
	}
	return ok
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

func toSnake(s string) string {
	var b strings.Builder
	prevUpper := false
	for i, r := range s {
		up := unicode.IsUpper(r)
		if up && i > 0 && !prevUpper {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prevUpper = up
	}
	return b.String()
}

// Crud 注册 owner 范围内的增删查改（模型无需实现任何接口）
func Crud[T any](cfg CrudConfig[T]) {
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}
	if cfg.DupMsg == "" {
		cfg.DupMsg = "already exists"
	}
	idFields, ownerFields := cfg.idFields(), cfg.ownerFields()

	// 当前用户 + 以 owner 填好的过滤模型
	owned := func(c *gin.Context, id string) (*T, bool) {
		uid := c.GetString("userId")
		if uid == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return nil, false
		}
		f := cfg.New()
		if !setString(f, ownerFields, uid) {
			c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, "owner field not found"))
			return nil, false
		}
		if id != "" {
			_ = setString(f, idFields, id)
		}
		return f, true
	}
	fetch := func(c *gin.Context, filter *T) (*T, bool) {
		m := cfg.New()
		err := cfg.DB.WithContext(c).Where(filter).First(m).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			Fail(c, domain.ErrNotFound)
			return nil, false
		case err != nil:
			Fail(c, domain.Unavailable("crud get", err))
			return nil, false
		}
		return m, true
	}
	writeErr := func(c *gin.Context, op string, err error) {
		if repo.IsDupKey(err) {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, cfg.DupMsg))
			return
		}
		Fail(c, domain.Unavailable(op, err))
	}

	if cfg.AllowCreate {
		cfg.Group.POST(cfg.Path, func(c *gin.Context) {
			m := cfg.New()
			if err := c.ShouldBindJSON(m); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
			owner, ok := owned(c, "")
			if !ok {
				return
			}
			uid, _ := stringField(owner, ownerFields)
			_ = setString(m, ownerFields, *uid)
			// 客户端不能指定 ID
			if !setString(m, idFields, cfg.IDGen()) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, "id field not found"))
				return
			}
			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
					Fail(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c).Create(m).Error; err != nil {
				writeErr(c, "crud create", err)
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	if cfg.AllowList {
		cfg.Group.GET(cfg.Path, func(c *gin.Context) {
			filter, ok := owned(c, "")
			if !ok {
				return
			}
			offset := atoiDefault(c.Query("offset"), 0)
			limit := atoiDefault(c.Query("limit"), 20)
			if limit <= 0 || limit > 100 {
				limit = 20
			}

			q := cfg.DB.WithContext(c).Model(cfg.New()).Where(filter)
			if cfg.Hooks.ScopeList != nil {
				q = cfg.Hooks.ScopeList(c, q)
			}
			var total int64
			if err := q.Count(&total).Error; err != nil {
				Fail(c, domain.Unavailable("crud count", err))
				return
			}

			col, desc := toSnake(idFields[0]), true
			if cfg.OrderBy != "" {
				col, desc = toSnake(cfg.OrderBy), cfg.OrderByDesc
			}
			var items []T
			err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).
				Limit(limit).Offset(offset).Find(&items).Error
			if err != nil {
				Fail(c, domain.Unavailable("crud list", err))
				return
			}
			if cfg.Hooks.AfterGet != nil {
				for i := range items {
					cfg.Hooks.AfterGet(c, &items[i])
				}
			}
			c.JSON(http.StatusOK, resp.OK(resp.List(items, total, offset, limit)))
		})
	}

	if cfg.AllowGet {
		cfg.Group.GET(cfg.Path+"/:id", func(c *gin.Context) {
			filter, ok := owned(c, c.Param("id"))
			if !ok {
				return
			}
			m, ok := fetch(c, filter)
			if !ok {
				return
			}
			if cfg.Hooks.AfterGet != nil {
				cfg.Hooks.AfterGet(c, m)
			}
			c.JSON(http.StatusOK, resp.OK(m))
		})
	}

	if cfg.AllowUpdate {
		cfg.Group.PUT(cfg.Path+"/:id", func(c *gin.Context) {
			id := c.Param("id")
			filter, ok := owned(c, id)
			if !ok {
				return
			}
			// 先确认归属
			if _, ok := fetch(c, filter); !ok {
				return
			}
			in := cfg.New()
			if err := c.ShouldBindJSON(in); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
			// 强制保持 ID/Owner
			_ = setString(in, idFields, id)
			uid, _ := stringField(filter, ownerFields)
			_ = setString(in, ownerFields, *uid)
			if cfg.Hooks.BeforeUpdate != nil {
				if err := cfg.Hooks.BeforeUpdate(c, in); err != nil {
					Fail(c, err)
					return
				}
			}
			if err := cfg.DB.WithContext(c).Model(cfg.New()).Where(filter).Updates(in).Error; err != nil {
				writeErr(c, "crud update", err)
				return
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}

	if cfg.AllowDelete {
		cfg.Group.DELETE(cfg.Path+"/:id", func(c *gin.Context) {
			id := c.Param("id")
			filter, ok := owned(c, id)
			if !ok {
				return
			}
			res := cfg.DB.WithContext(c).Where(filter).Delete(cfg.New())
			if res.Error != nil {
				Fail(c, domain.Unavailable("crud delete", res.Error))
				return
			}
			if res.RowsAffected == 0 {
				Fail(c, domain.ErrNotFound)
				return
			}
			c.JSON(http.StatusOK, resp.OK(gin.H{"id": id}))
		})
	}
}
