package web

import (
	"github.com/a-h/templ"

	"postboard/framework"
	"postboard/framework/router"
	"postboard/internal/markdown"
	"postboard/internal/web/appcore"
	"postboard/internal/web/components"
)

const (
	IndexPattern = "/"
	BlogPattern  = "/blog"
	PostPattern  = "/blog/[id]"
)

var appRouter = mustNewRouter(IndexPattern, BlogPattern, PostPattern)

func mustNewRouter(patterns ...string) *router.Router {
	r, err := router.New(patterns...)
	if err != nil {
		panic(err)
	}
	return r
}

func matchRoute(pattern string, path string) (router.Match, bool) {
	match, ok := appRouter.Match(path)
	if !ok || match.Pattern != pattern {
		return router.Match{}, false
	}
	return match, true
}

func Handlers() []framework.RouteHandler[*appcore.Context] {
	return []framework.RouteHandler[*appcore.Context]{
		framework.PageOnlyRouteHandler[*appcore.Context, framework.EmptyParams, appcore.BlogPageView]{
			Page: blogPage(IndexPattern),
		},
		framework.PageOnlyRouteHandler[*appcore.Context, framework.EmptyParams, appcore.BlogPageView]{
			Page: blogPage(BlogPattern),
		},
		framework.PageOnlyRouteHandler[*appcore.Context, framework.IDParams, appcore.PostPageView]{
			Page: framework.PageModule[*appcore.Context, framework.IDParams, appcore.PostPageView]{
				Pattern:     PostPattern,
				ParseParams: parsePostParams,
				Load:        appcore.LoadPostPage,
				Render:      renderPostPage,
				Layouts:     []framework.LayoutRenderer[appcore.PostPageView]{postLayout},
			},
		},
	}
}

func blogPage(pattern string) framework.PageModule[*appcore.Context, framework.EmptyParams, appcore.BlogPageView] {
	return framework.PageModule[*appcore.Context, framework.EmptyParams, appcore.BlogPageView]{
		Pattern: pattern,
		ParseParams: func(path string) (framework.EmptyParams, bool) {
			_, ok := matchRoute(pattern, path)
			return framework.EmptyParams{}, ok
		},
		Load:    appcore.LoadBlogPage,
		Render:  renderBlogPage,
		Layouts: []framework.LayoutRenderer[appcore.BlogPageView]{blogLayout},
	}
}

func parsePostParams(path string) (framework.IDParams, bool) {
	match, ok := matchRoute(PostPattern, path)
	if !ok {
		return framework.IDParams{}, false
	}

	id, _ := match.Param("id")
	return framework.IDParams{ID: id}, true
}

func renderBlogPage(view appcore.BlogPageView) templ.Component {
	return components.BlogList(view.Blogs, view.Markdown)
}

func renderPostPage(view appcore.PostPageView) templ.Component {
	return components.PostDetail(view.Post, view.Markdown)
}

func blogLayout(view appcore.BlogPageView, child templ.Component) templ.Component {
	return components.Shell(shellState(view.PageTitle, view.Markdown), child)
}

func postLayout(view appcore.PostPageView, child templ.Component) templ.Component {
	return components.Shell(shellState(view.PageTitle, view.Markdown), child)
}

// Pages are rendered after their loader has finished, so the shell never
// starts in the loading state.
func shellState(title string, renderer *markdown.Renderer) components.ShellState {
	state := components.ShellState{Title: title}
	if renderer != nil {
		state.HighlightCSS = renderer.HighlightCSS()
	}
	return state
}

// NotFoundPage and ErrorPage return the bare message for live requests. It
// replaces the page body of a shell that is already on screen.
func NotFoundPage(notFoundContext framework.NotFoundContext) templ.Component {
	message := components.NotFound(notFoundContext.RequestPath)
	if notFoundContext.Live {
		return message
	}
	return components.Shell(shellState("404 Not Found", nil), message)
}

func ErrorPage(statusCode int, errorContext framework.ErrorContext) templ.Component {
	message := components.ErrorMessage(statusCode, appcore.StatusText(errorContext.Err))
	if errorContext.Live {
		return message
	}
	return components.Shell(shellState("Error", nil), message)
}
