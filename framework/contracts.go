package framework

import (
	"context"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
)

type EmptyParams struct{}

type IDParams struct {
	ID string
}

type ParamsParser[P interface{}] func(path string) (P, bool)

// PageLoader fetches everything a page needs. It runs to completion before
// the page renders; a returned error means the page is never rendered.
type PageLoader[C interface{}, P interface{}, VM interface{}] func(
	ctx context.Context,
	appCtx C,
	r *http.Request,
	params P,
) (VM, error)

type PageRenderer[VM interface{}] func(view VM) templ.Component

type LayoutRenderer[VM interface{}] func(view VM, child templ.Component) templ.Component

type PageModule[C interface{}, P interface{}, VM interface{}] struct {
	Pattern     string
	ParseParams ParamsParser[P]
	Load        PageLoader[C, P, VM]
	Render      PageRenderer[VM]
	Layouts     []LayoutRenderer[VM]
}

type RuntimeContext[C interface{}] interface {
	AppContext() C
	IsPartialRequest(r *http.Request) bool
	RenderPage(r *http.Request, w http.ResponseWriter, component templ.Component) error
	PatchLive(w http.ResponseWriter, r *http.Request, component templ.Component) error
	IsNotFound(err error) bool
	IsBadRequest(err error) bool
	RespondNotFound(w http.ResponseWriter, r *http.Request, notFoundContext NotFoundContext)
	RespondBadRequest(w http.ResponseWriter, r *http.Request, errorContext ErrorContext)
	RespondServerError(w http.ResponseWriter, r *http.Request, errorContext ErrorContext)
}

type NotFoundSource string

const (
	NotFoundSourcePageLoad       NotFoundSource = "page_load"
	NotFoundSourceUnmatchedRoute NotFoundSource = "unmatched_route"
)

// NotFoundContext and ErrorContext carry Live when the failed request was a
// live navigation, so the page builder returns only the body fragment.
type NotFoundContext struct {
	RequestPath         string
	MatchedRoutePattern string
	Source              NotFoundSource
	Live                bool
}

type ErrorContext struct {
	RequestPath         string
	MatchedRoutePattern string
	Err                 error
	Live                bool
}

type RouteHandler[C interface{}] interface {
	TryServe(runtime RuntimeContext[C], w http.ResponseWriter, r *http.Request) bool
}

type PageOnlyRouteHandler[C interface{}, P interface{}, VM interface{}] struct {
	Page PageModule[C, P, VM]
}

func (h PageOnlyRouteHandler[C, P, VM]) TryServe(
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
) bool {
	return servePageModule(runtime, w, r, h.Page)
}

func applyLayouts[VM interface{}](
	layouts []LayoutRenderer[VM],
	view VM,
	child templ.Component,
) templ.Component {
	wrapped := child
	for idx := len(layouts) - 1; idx >= 0; idx-- {
		wrapped = layouts[idx](view, wrapped)
	}
	return wrapped
}

func servePageModule[C interface{}, P interface{}, VM interface{}](
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
	module PageModule[C, P, VM],
) bool {
	params, ok := module.ParseParams(r.URL.Path)
	if !ok {
		return false
	}

	view, err := module.Load(r.Context(), runtime.AppContext(), r, params)
	if err != nil {
		handleLoadError(runtime, w, r, err, module.Pattern)
		return true
	}

	live := runtime.IsPartialRequest(r)
	component := module.Render(view)
	if live {
		err = runtime.PatchLive(w, r, component)
	} else {
		err = runtime.RenderPage(r, w, applyLayouts(module.Layouts, view, component))
	}
	if err != nil {
		runtime.RespondServerError(w, r, ErrorContext{
			RequestPath:         r.URL.Path,
			MatchedRoutePattern: module.Pattern,
			Err:                 fmt.Errorf("render route %q: %w", module.Pattern, err),
			Live:                live,
		})
	}
	return true
}

func handleLoadError[C interface{}](
	runtime RuntimeContext[C],
	w http.ResponseWriter,
	r *http.Request,
	err error,
	routePattern string,
) {
	live := runtime.IsPartialRequest(r)
	if runtime.IsNotFound(err) {
		runtime.RespondNotFound(w, r, NotFoundContext{
			RequestPath:         r.URL.Path,
			MatchedRoutePattern: routePattern,
			Source:              NotFoundSourcePageLoad,
			Live:                live,
		})
		return
	}

	errorContext := ErrorContext{
		RequestPath:         r.URL.Path,
		MatchedRoutePattern: routePattern,
		Err:                 fmt.Errorf("load route %q: %w", routePattern, err),
		Live:                live,
	}
	if runtime.IsBadRequest(err) {
		runtime.RespondBadRequest(w, r, errorContext)
		return
	}

	runtime.RespondServerError(w, r, errorContext)
}
