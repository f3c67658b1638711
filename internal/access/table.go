// Package access 按会话状态选择可见路由表，并解析导航路径。纯函数，无副作用。
package access

import "strings"

type Page string

const (
	PageLoading        Page = "loading"
	PageHome           Page = "home"
	PageMovies         Page = "movies"
	PageMovie          Page = "movie"
	PageTV             Page = "tv"
	PageActor          Page = "actor"
	PageSeries         Page = "series"
	PageLatest         Page = "latest"
	PageAuth           Page = "auth"
	PageAdminLogin     Page = "admin-login"
	PageTerms          Page = "terms"
	PagePrivacy        Page = "privacy"
	PageDynamic        Page = "page"
	PageFavorites      Page = "favorites"
	PageWelcome        Page = "welcome"
	PageProfile        Page = "profile"
	PagePassword       Page = "password"
	PageSynthesis      Page = "admin-synthesis"
	PageUsers          Page = "admin-users"
	PageAdministrators Page = "admin-administrators"
	PageCreateUser     Page = "admin-create-user"
	PagePages          Page = "admin-pages"
)

type Layout string

const (
	LayoutNone  Layout = "none" // 加载中
	LayoutPlain Layout = "plain"
	LayoutUser  Layout = "user"
	LayoutAdmin Layout = "admin"
)

// Route 对外展示用的路由项
type Route struct {
	Pattern  string `json:"pattern"`
	Page     Page   `json:"page,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Layout   Layout `json:"layout"`
}

type route struct {
	Route
	segs []string
}

// Table 不可变路由表；只能通过 Select 得到
type Table struct {
	name     string
	routes   []route
	fallback string
	loading  bool
}

func (t Table) Name() string     { return t.name }
func (t Table) Fallback() string { return t.fallback }

// Routes 副本
func (t Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, r := range t.routes {
		out[i] = r.Route
	}
	return out
}

// Resolution 导航结果：要么渲染 Page，要么跳转 Redirect
type Resolution struct {
	Page     Page              `json:"page,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Layout   Layout            `json:"layout"`
	Pattern  string            `json:"pattern,omitempty"`
}

// Resolve 逐段匹配：静态段优先于参数段，同分按声明顺序；没匹配上走兜底跳转
func (t Table) Resolve(path string) Resolution {
	if t.loading {
		return Resolution{Page: PageLoading, Layout: LayoutNone}
	}
	segs := split(path)

	best, bestScore := -1, -1
	var bestParams map[string]string
	for i, r := range t.routes {
		params, score, ok := match(r.segs, segs)
		if !ok || score <= bestScore {
			continue
		}
		best, bestScore, bestParams = i, score, params
	}
	if best < 0 {
		return Resolution{Redirect: t.fallback, Layout: LayoutPlain}
	}
	r := t.routes[best]
	return Resolution{
		Page:     r.Page,
		Params:   bestParams,
		Redirect: r.Redirect,
		Layout:   r.Layout,
		Pattern:  r.Pattern,
	}
}

func split(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// match 分数 = 静态段个数
func match(pattern, segs []string) (map[string]string, int, bool) {
	if len(pattern) != len(segs) {
		return nil, 0, false
	}
	score := 0
	var params map[string]string
	for i, p := range pattern {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if name == pageIDParam && Reserved(segs[i]) {
				return nil, 0, false
			}
			if params == nil {
				params = map[string]string{}
			}
			params[name] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, 0, false
		}
		score++
	}
	return params, score, true
}
