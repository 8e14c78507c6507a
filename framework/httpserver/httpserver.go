package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/starfederation/datastar-go/datastar"

	"postboard/framework"
	"postboard/framework/engine"
)

const defaultCacheControlPolicy = "public, max-age=3600, s-maxage=3600"
const defaultErrorCachePolicy = "no-store"
const defaultHealthPath = "/healthz"
const defaultHealthBody = "ok"
const defaultStaticPrefix = "/static/"
const defaultLiveTargetID = "page-body"
const liveRequestHeader = "Datastar-Request"
const liveNavigationMarkerKey = "__live"
const liveNavigationMarkerValue = "navigation"
const requestIDHeader = "X-Request-ID"
const pageStatusHeader = "X-Page-Status"

type StaticMount struct {
	URLPrefix string
	Dir       string
}

type CachePolicies struct {
	HTML           string
	Live           string
	LiveNavigation string
	Static         string
	Health         string
	Error          string
}

func DefaultCachePolicies() CachePolicies {
	return CachePolicies{
		HTML:   defaultCacheControlPolicy,
		Live:   defaultCacheControlPolicy,
		Static: defaultCacheControlPolicy,
		Health: defaultCacheControlPolicy,
		Error:  defaultErrorCachePolicy,
	}
}

type Config[C interface{}] struct {
	AppContext C
	Handlers   []framework.RouteHandler[C]

	Static StaticMount

	CachePolicies CachePolicies

	IsNotFoundError   func(err error) bool
	IsBadRequestError func(err error) bool
	NotFoundPage      func(notFoundContext framework.NotFoundContext) templ.Component
	ErrorPage         func(statusCode int, errorContext framework.ErrorContext) templ.Component
	// StatusForError maps a load failure to the response status. Defaults to 500.
	StatusForError func(err error) int

	// LiveTargetID is the element id live responses patch. Defaults to "page-body".
	LiveTargetID string

	Logger *zerolog.Logger

	HealthPath string
	HealthBody string
}

type server[C interface{}] struct {
	cachePolicies  CachePolicies
	notFoundPage   func(notFoundContext framework.NotFoundContext) templ.Component
	errorPage      func(statusCode int, errorContext framework.ErrorContext) templ.Component
	statusForError func(err error) int
	logger         zerolog.Logger
	liveTargetID   string
	healthPath     string
	healthBody     string

	routeEngine *engine.Engine[C]
}

func New[C interface{}](cfg Config[C]) (http.Handler, error) {
	cachePolicies := withDefaultPolicies(cfg.CachePolicies)
	healthPath := normalizeHealthPath(cfg.HealthPath)
	healthBody := strings.TrimSpace(cfg.HealthBody)
	if healthBody == "" {
		healthBody = defaultHealthBody
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	liveTargetID := strings.TrimPrefix(strings.TrimSpace(cfg.LiveTargetID), "#")
	if liveTargetID == "" {
		liveTargetID = defaultLiveTargetID
	}

	statusForError := cfg.StatusForError
	if statusForError == nil {
		statusForError = func(error) int { return http.StatusInternalServerError }
	}

	srv := &server[C]{
		cachePolicies:  cachePolicies,
		notFoundPage:   cfg.NotFoundPage,
		errorPage:      cfg.ErrorPage,
		statusForError: statusForError,
		logger:         logger,
		liveTargetID:   liveTargetID,
		healthPath:     healthPath,
		healthBody:     healthBody,
	}

	routeEngine, err := engine.New(engine.Config[C]{
		AppContext:        cfg.AppContext,
		Handlers:          cfg.Handlers,
		IsPartialRequest:  IsLiveRequest,
		RenderPage:        srv.renderPage,
		PatchLive:         srv.patchLive,
		IsNotFoundError:   cfg.IsNotFoundError,
		IsBadRequestError: cfg.IsBadRequestError,
		HandleNotFound:    srv.handleNotFound,
		HandleBadRequest:  srv.handleBadRequest,
		HandleServerError: srv.handleServerError,
	})
	if err != nil {
		return nil, fmt.Errorf("create route engine: %w", err)
	}
	srv.routeEngine = routeEngine

	mux := http.NewServeMux()
	if strings.TrimSpace(cfg.Static.Dir) != "" {
		prefix := normalizeStaticPrefix(cfg.Static.URLPrefix)
		fs := http.FileServer(http.Dir(cfg.Static.Dir))
		mux.Handle(prefix, withCachePolicy(cachePolicies.Static, http.StripPrefix(prefix, fs)))
	}

	mux.HandleFunc("/", srv.handleRoute)
	return withRequestLogging(logger, mux), nil
}

// IsLiveRequest reports whether the request was issued by datastar and wants
// the page body as an SSE patch instead of a full document.
func IsLiveRequest(r *http.Request) bool {
	return r != nil && strings.EqualFold(strings.TrimSpace(r.Header.Get(liveRequestHeader)), "true")
}

// LiveNavigationURL returns path with the live navigation marker appended.
// Patches fetched through it use the live navigation cache policy.
func LiveNavigationURL(path string) string {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + liveNavigationMarkerKey + "=" + liveNavigationMarkerValue
}

func (s *server[C]) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == s.healthPath {
		s.handleHealth(w)
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		setCachePolicy(w, s.cachePolicies.Error)
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if s.routeEngine.ServeRoute(w, r) {
		return
	}

	s.handleNotFound(w, r, framework.NotFoundContext{
		RequestPath: r.URL.Path,
		Source:      framework.NotFoundSourceUnmatchedRoute,
		Live:        IsLiveRequest(r),
	})
}

func (s *server[C]) renderPage(r *http.Request, w http.ResponseWriter, component templ.Component) error {
	return s.renderPageWithStatus(r, w, component, 0, s.cachePolicies.HTML)
}

func (s *server[C]) renderPageWithStatus(
	r *http.Request,
	w http.ResponseWriter,
	component templ.Component,
	statusCode int,
	cachePolicy string,
) error {
	setCachePolicy(w, cachePolicy)
	w.Header().Add("Vary", liveRequestHeader)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if statusCode > 0 {
		w.WriteHeader(statusCode)
	}
	return component.Render(r.Context(), w)
}

func (s *server[C]) patchLive(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	return s.patchLiveWithPolicy(w, r, component, s.liveCachePolicyFor(r))
}

// patchLiveWithPolicy streams component as the new content of the live
// target element. The SSE generator sets its own Cache-Control, so the
// policy is applied again just before the headers go out.
func (s *server[C]) patchLiveWithPolicy(
	w http.ResponseWriter,
	r *http.Request,
	component templ.Component,
	cachePolicy string,
) error {
	sse := datastar.NewSSE(&cachePolicyWriter{ResponseWriter: w, policy: cachePolicy}, r)
	return sse.PatchElementTempl(component, datastar.WithSelectorID(s.liveTargetID), datastar.WithModeInner())
}

func (s *server[C]) liveCachePolicyFor(r *http.Request) string {
	if r != nil &&
		strings.TrimSpace(r.URL.Query().Get(liveNavigationMarkerKey)) == liveNavigationMarkerValue &&
		strings.TrimSpace(s.cachePolicies.LiveNavigation) != "" {
		return s.cachePolicies.LiveNavigation
	}

	return s.cachePolicies.Live
}

func (s *server[C]) handleNotFound(
	w http.ResponseWriter,
	r *http.Request,
	notFoundContext framework.NotFoundContext,
) {
	var component templ.Component
	if s.notFoundPage != nil {
		component = s.notFoundPage(notFoundContext)
	}
	if component == nil {
		setCachePolicy(w, s.cachePolicies.Error)
		http.NotFound(w, r)
		return
	}

	if notFoundContext.Live {
		s.patchFailure(w, r, component, http.StatusNotFound)
		return
	}
	if err := s.renderPageWithStatus(r, w, component, http.StatusNotFound, s.cachePolicies.Error); err != nil {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("render not found page")
	}
}

func (s *server[C]) handleBadRequest(
	w http.ResponseWriter,
	r *http.Request,
	errorContext framework.ErrorContext,
) {
	s.logger.Info().
		Err(errorContext.Err).
		Str("path", errorContext.RequestPath).
		Str("route", errorContext.MatchedRoutePattern).
		Msg("rejected request")
	s.respondError(w, r, http.StatusBadRequest, errorContext)
}

func (s *server[C]) handleServerError(
	w http.ResponseWriter,
	r *http.Request,
	errorContext framework.ErrorContext,
) {
	statusCode := s.statusForError(errorContext.Err)
	if statusCode < 400 || statusCode > 599 {
		statusCode = http.StatusInternalServerError
	}

	s.logger.Error().
		Err(errorContext.Err).
		Int("status", statusCode).
		Str("path", errorContext.RequestPath).
		Str("route", errorContext.MatchedRoutePattern).
		Msg("page failed")
	s.respondError(w, r, statusCode, errorContext)
}

func (s *server[C]) respondError(
	w http.ResponseWriter,
	r *http.Request,
	statusCode int,
	errorContext framework.ErrorContext,
) {
	if s.errorPage != nil {
		if component := s.errorPage(statusCode, errorContext); component != nil {
			if errorContext.Live {
				s.patchFailure(w, r, component, statusCode)
				return
			}
			if err := s.renderPageWithStatus(r, w, component, statusCode, s.cachePolicies.Error); err != nil {
				s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("render error page")
			}
			return
		}
	}

	setCachePolicy(w, s.cachePolicies.Error)
	http.Error(w, http.StatusText(statusCode), statusCode)
}

// patchFailure swaps an error fragment into the live target. The event
// stream itself is a 200; the failed status travels in X-Page-Status.
func (s *server[C]) patchFailure(
	w http.ResponseWriter,
	r *http.Request,
	component templ.Component,
	statusCode int,
) {
	w.Header().Set(pageStatusHeader, strconv.Itoa(statusCode))
	if err := s.patchLiveWithPolicy(w, r, component, s.cachePolicies.Error); err != nil {
		s.logger.Error().Err(err).Int("status", statusCode).Str("path", r.URL.Path).Msg("patch error fragment")
	}
}

func (s *server[C]) handleHealth(w http.ResponseWriter) {
	setCachePolicy(w, s.cachePolicies.Health)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.healthBody))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	if r.status == 0 {
		r.status = statusCode
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	_ = http.NewResponseController(r.ResponseWriter).Flush()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

type cachePolicyWriter struct {
	http.ResponseWriter
	policy  string
	applied bool
}

func (w *cachePolicyWriter) apply() {
	if w.applied {
		return
	}
	w.applied = true
	setCachePolicy(w.ResponseWriter, w.policy)
}

func (w *cachePolicyWriter) WriteHeader(statusCode int) {
	w.apply()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *cachePolicyWriter) Write(p []byte) (int, error) {
	w.apply()
	return w.ResponseWriter.Write(p)
}

func (w *cachePolicyWriter) Flush() {
	w.apply()
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

func (w *cachePolicyWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func withRequestLogging(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		reqLogger := logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(reqLogger.WithContext(r.Context()))

		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		reqLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", recorder.bytes).
			Bool("live", IsLiveRequest(r)).
			Dur("elapsed", time.Since(started)).
			Msg("request served")
	})
}

func normalizeStaticPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return defaultStaticPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func normalizeHealthPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultHealthPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func withDefaultPolicies(policies CachePolicies) CachePolicies {
	defaults := DefaultCachePolicies()
	if strings.TrimSpace(policies.HTML) == "" {
		policies.HTML = defaults.HTML
	}
	if strings.TrimSpace(policies.Live) == "" {
		policies.Live = defaults.Live
	}
	if strings.TrimSpace(policies.Static) == "" {
		policies.Static = defaults.Static
	}
	if strings.TrimSpace(policies.Health) == "" {
		policies.Health = defaults.Health
	}
	if strings.TrimSpace(policies.Error) == "" {
		policies.Error = defaults.Error
	}
	return policies
}

func setCachePolicy(w http.ResponseWriter, policy string) {
	policy = strings.TrimSpace(policy)
	if policy == "" {
		return
	}
	w.Header().Set("Cache-Control", policy)
}

func withCachePolicy(policy string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCachePolicy(w, policy)
		next.ServeHTTP(w, r)
	})
}
