package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/framework"
)

type componentFunc func(ctx context.Context, w io.Writer) error

func (f componentFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

func textComponent(value string) templ.Component {
	return componentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, value)
		return err
	})
}

func wrapComponent(tag string, child templ.Component) templ.Component {
	return componentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "["+tag+"]"); err != nil {
			return err
		}
		if err := child.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "[/"+tag+"]")
		return err
	})
}

func blogPage(load func() (string, error)) framework.RouteHandler[*struct{}] {
	return framework.PageOnlyRouteHandler[*struct{}, framework.EmptyParams, string]{
		Page: framework.PageModule[*struct{}, framework.EmptyParams, string]{
			Pattern: "/blog",
			ParseParams: func(path string) (framework.EmptyParams, bool) {
				return framework.EmptyParams{}, path == "/blog"
			},
			Load: func(context.Context, *struct{}, *http.Request, framework.EmptyParams) (string, error) {
				return load()
			},
			Render: func(view string) templ.Component { return textComponent(view) },
			Layouts: []framework.LayoutRenderer[string]{
				func(_ string, child templ.Component) templ.Component {
					return wrapComponent("layout", child)
				},
			},
		},
	}
}

func liveRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(liveRequestHeader, "true")
	return req
}

func TestHTTPServerCachePoliciesAndLivePatches(t *testing.T) {
	t.Parallel()

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "file.txt"), []byte("asset"), 0o644))

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			blogPage(func() (string, error) { return "page", nil }),
		},
		Static: StaticMount{
			URLPrefix: "/static/",
			Dir:       staticDir,
		},
		CachePolicies: CachePolicies{
			HTML:           "html-cache",
			Live:           "live-cache",
			LiveNavigation: "live-nav-cache",
			Static:         "static-cache",
			Health:         "health-cache",
			Error:          "error-cache",
		},
		NotFoundPage: func(framework.NotFoundContext) templ.Component {
			return textComponent("not-found")
		},
	})
	require.NoError(t, err)

	recPage := httptest.NewRecorder()
	handler.ServeHTTP(recPage, httptest.NewRequest(http.MethodGet, "/blog", nil))
	assert.Equal(t, http.StatusOK, recPage.Code)
	assert.Equal(t, "html-cache", recPage.Header().Get("Cache-Control"))
	assert.Contains(t, recPage.Header().Get("Vary"), liveRequestHeader)
	assert.NotEmpty(t, recPage.Header().Get(requestIDHeader))
	assert.Equal(t, "[layout]page[/layout]", strings.TrimSpace(recPage.Body.String()))

	recLive := httptest.NewRecorder()
	handler.ServeHTTP(recLive, liveRequest("/blog"))
	assert.Equal(t, http.StatusOK, recLive.Code)
	assert.Equal(t, "live-cache", recLive.Header().Get("Cache-Control"))
	assert.Contains(t, recLive.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, recLive.Body.String(), "event: datastar-patch-elements")
	assert.Contains(t, recLive.Body.String(), "selector #page-body")
	assert.Contains(t, recLive.Body.String(), "elements page")
	assert.NotContains(t, recLive.Body.String(), "[layout]")

	recNavigation := httptest.NewRecorder()
	handler.ServeHTTP(recNavigation, liveRequest("/blog?__live=navigation"))
	assert.Equal(t, "live-nav-cache", recNavigation.Header().Get("Cache-Control"))
	assert.Contains(t, recNavigation.Body.String(), "elements page")

	recStatic := httptest.NewRecorder()
	handler.ServeHTTP(recStatic, httptest.NewRequest(http.MethodGet, "/static/file.txt", nil))
	assert.Equal(t, http.StatusOK, recStatic.Code)
	assert.Equal(t, "static-cache", recStatic.Header().Get("Cache-Control"))

	recHealth := httptest.NewRecorder()
	handler.ServeHTTP(recHealth, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, recHealth.Code)
	assert.Equal(t, "health-cache", recHealth.Header().Get("Cache-Control"))
	assert.Equal(t, "ok", strings.TrimSpace(recHealth.Body.String()))

	recPost := httptest.NewRecorder()
	handler.ServeHTTP(recPost, httptest.NewRequest(http.MethodPost, "/blog", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, recPost.Code)
}

func TestHTTPServerKeepsIncomingRequestID(t *testing.T) {
	t.Parallel()

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			blogPage(func() (string, error) { return "page", nil }),
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/blog", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestHTTPServerNotFoundContextForLoadAndUnmatched(t *testing.T) {
	t.Parallel()

	errNotFound := errors.New("not found")
	ctxs := make([]framework.NotFoundContext, 0, 2)

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			blogPage(func() (string, error) { return "", errNotFound }),
		},
		IsNotFoundError: func(err error) bool { return errors.Is(err, errNotFound) },
		NotFoundPage: func(notFoundContext framework.NotFoundContext) templ.Component {
			ctxs = append(ctxs, notFoundContext)
			return textComponent("missing")
		},
		CachePolicies: CachePolicies{
			Error: "error-cache",
		},
	})
	require.NoError(t, err)

	recLoadNotFound := httptest.NewRecorder()
	handler.ServeHTTP(recLoadNotFound, httptest.NewRequest(http.MethodGet, "/blog", nil))
	assert.Equal(t, http.StatusNotFound, recLoadNotFound.Code)
	assert.Equal(t, "error-cache", recLoadNotFound.Header().Get("Cache-Control"))

	recUnmatched := httptest.NewRecorder()
	handler.ServeHTTP(recUnmatched, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, recUnmatched.Code)

	require.Len(t, ctxs, 2)
	assert.Equal(t, framework.NotFoundSourcePageLoad, ctxs[0].Source)
	assert.Equal(t, "/blog", ctxs[0].MatchedRoutePattern)
	assert.Equal(t, framework.NotFoundSourceUnmatchedRoute, ctxs[1].Source)
	assert.Equal(t, "/missing", ctxs[1].RequestPath)
}

func TestHTTPServerErrorPages(t *testing.T) {
	t.Parallel()

	errInvalid := errors.New("invalid")
	errUpstream := errors.New("upstream")
	var failure error

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			blogPage(func() (string, error) { return "", failure }),
		},
		IsBadRequestError: func(err error) bool { return errors.Is(err, errInvalid) },
		StatusForError: func(err error) int {
			if errors.Is(err, errUpstream) {
				return http.StatusBadGateway
			}
			return http.StatusInternalServerError
		},
		ErrorPage: func(statusCode int, errorContext framework.ErrorContext) templ.Component {
			return textComponent("error " + strconv.Itoa(statusCode) + " " + errorContext.MatchedRoutePattern)
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "bad request", err: errInvalid, wantStatus: http.StatusBadRequest},
		{name: "upstream", err: errUpstream, wantStatus: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		failure = tc.err
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog", nil))
		assert.Equal(t, tc.wantStatus, rec.Code, tc.name)
		assert.Equal(t, "error "+strconv.Itoa(tc.wantStatus)+" /blog", rec.Body.String(), tc.name)
		assert.Equal(t, defaultErrorCachePolicy, rec.Header().Get("Cache-Control"), tc.name)
	}
}

func TestHTTPServerLiveFailuresPatchFragments(t *testing.T) {
	t.Parallel()

	errNotFound := errors.New("not found")
	errUpstream := errors.New("upstream")
	var failure error

	handler, err := New(Config[*struct{}]{
		AppContext: &struct{}{},
		Handlers: []framework.RouteHandler[*struct{}]{
			blogPage(func() (string, error) { return "", failure }),
		},
		LiveTargetID:    "#content",
		IsNotFoundError: func(err error) bool { return errors.Is(err, errNotFound) },
		StatusForError:  func(error) int { return http.StatusBadGateway },
		NotFoundPage: func(notFoundContext framework.NotFoundContext) templ.Component {
			if notFoundContext.Live {
				return textComponent("missing-fragment")
			}
			return wrapComponent("layout", textComponent("missing"))
		},
		ErrorPage: func(statusCode int, errorContext framework.ErrorContext) templ.Component {
			if errorContext.Live {
				return textComponent("failed-fragment " + strconv.Itoa(statusCode))
			}
			return wrapComponent("layout", textComponent("failed"))
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus string
		wantBody   string
	}{
		{name: "upstream", target: "/blog", err: errUpstream, wantStatus: "502", wantBody: "elements failed-fragment 502"},
		{name: "load not found", target: "/blog", err: errNotFound, wantStatus: "404", wantBody: "elements missing-fragment"},
		{name: "unmatched", target: "/missing", wantStatus: "404", wantBody: "elements missing-fragment"},
	}

	for _, tc := range tests {
		failure = tc.err
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, liveRequest(tc.target))

		body := rec.Body.String()
		assert.Equal(t, http.StatusOK, rec.Code, tc.name)
		assert.Equal(t, tc.wantStatus, rec.Header().Get(pageStatusHeader), tc.name)
		assert.Equal(t, defaultErrorCachePolicy, rec.Header().Get("Cache-Control"), tc.name)
		assert.Contains(t, body, "selector #content", tc.name)
		assert.Contains(t, body, tc.wantBody, tc.name)
		assert.NotContains(t, body, "[layout]", tc.name)
	}
}

func TestLiveNavigationURL(t *testing.T) {
	assert.Equal(t, "/blog/4?__live=navigation", LiveNavigationURL("/blog/4"))
	assert.Equal(t, "/blog?page=2&__live=navigation", LiveNavigationURL("/blog?page=2"))
}
