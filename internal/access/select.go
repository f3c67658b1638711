package access

import "cineverse/internal/session"

const pageIDParam = "pageId"

// reserved 各路由表用到的一级静态段；动态页面 id 不能占用
var reserved = map[string]struct{}{}

// Reserved 该一级路径是否被某个路由表占用
func Reserved(seg string) bool {
	_, ok := reserved[seg]
	return ok
}

func r(pattern string, page Page, layout Layout) route {
	return route{Route: Route{Pattern: pattern, Page: page, Layout: layout}, segs: split(pattern)}
}

func redirect(pattern, to string, layout Layout) route {
	return route{Route: Route{Pattern: pattern, Redirect: to, Layout: layout}, segs: split(pattern)}
}

func catalog() []route {
	return []route{
		r("/movies", PageMovies, LayoutPlain),
		r("/movie/:id", PageMovie, LayoutPlain),
		r("/tv/:id", PageTV, LayoutPlain),
		r("/actor/:id", PageActor, LayoutPlain),
		r("/series", PageSeries, LayoutPlain),
		r("/latest", PageLatest, LayoutPlain),
	}
}

func table(name, fallback string, groups ...[]route) Table {
	t := Table{name: name, fallback: fallback}
	for _, g := range groups {
		t.routes = append(t.routes, g...)
	}
	for _, rt := range t.routes {
		if len(rt.segs) > 0 && rt.segs[0][0] != ':' {
			reserved[rt.segs[0]] = struct{}{}
		}
	}
	return t
}

var (
	loadingTable = Table{name: "loading", loading: true}

	publicTable = table("public", "/",
		[]route{r("/", PageHome, LayoutPlain)},
		catalog(),
		[]route{
			r("/auth", PageAuth, LayoutPlain),
			r("/admin", PageAdminLogin, LayoutPlain),
			r("/terms", PageTerms, LayoutPlain),
			r("/privacy", PagePrivacy, LayoutPlain),
			r("/:pageId", PageDynamic, LayoutPlain),
			redirect("/favorites", "/auth", LayoutPlain),
		},
	)

	adminTable = table("admin", "/admin",
		[]route{
			redirect("/", "/admin", LayoutAdmin),
			r("/admin", PageSynthesis, LayoutAdmin),
			r("/admin/users", PageUsers, LayoutAdmin),
			r("/admin/administrators", PageAdministrators, LayoutAdmin),
			r("/admin/create-user", PageCreateUser, LayoutAdmin),
			r("/admin/pages", PagePages, LayoutAdmin),
		},
		catalog(),
		[]route{
			r("/favorites", PageFavorites, LayoutPlain),
			r("/terms", PageTerms, LayoutPlain),
			r("/privacy", PagePrivacy, LayoutPlain),
			r("/:pageId", PageDynamic, LayoutPlain),
		},
	)

	userTable = table("user", "/",
		[]route{
			r("/", PageWelcome, LayoutUser),
			r("/profile", PageProfile, LayoutUser),
			r("/favorites", PageFavorites, LayoutUser),
			r("/password", PagePassword, LayoutUser),
		},
		catalog(),
		[]route{
			r("/terms", PageTerms, LayoutPlain),
			r("/privacy", PagePrivacy, LayoutPlain),
			r("/:pageId", PageDynamic, LayoutPlain),
		},
	)
)

// Select 纯函数：同一个 State 总是得到同一张表；角色每次从 State.User.IsAdmin 读取
func Select(s session.State) Table {
	switch {
	case s.Status == session.Loading:
		return loadingTable
	case s.Status != session.Authenticated || s.User == nil:
		return publicTable
	case s.User.IsAdmin:
		return adminTable
	default:
		return userTable
	}
}
