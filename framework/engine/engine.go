package engine

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"

	"postboard/framework"
)

type Config[C interface{}] struct {
	AppContext C
	Handlers   []framework.RouteHandler[C]

	IsPartialRequest func(r *http.Request) bool
	RenderPage       func(r *http.Request, w http.ResponseWriter, component templ.Component) error
	PatchLive        func(w http.ResponseWriter, r *http.Request, component templ.Component) error

	IsNotFoundError   func(err error) bool
	IsBadRequestError func(err error) bool
	HandleNotFound    func(w http.ResponseWriter, r *http.Request, notFoundContext framework.NotFoundContext)
	HandleBadRequest  func(w http.ResponseWriter, r *http.Request, errorContext framework.ErrorContext)
	HandleServerError func(w http.ResponseWriter, r *http.Request, errorContext framework.ErrorContext)
}

type Engine[C interface{}] struct {
	appContext C
	handlers   []framework.RouteHandler[C]

	isPartial  func(r *http.Request) bool
	renderPage func(r *http.Request, w http.ResponseWriter, component templ.Component) error
	patchLive  func(w http.ResponseWriter, r *http.Request, component templ.Component) error

	isNotFound   func(err error) bool
	isBadRequest func(err error) bool
	notFound     func(w http.ResponseWriter, r *http.Request, notFoundContext framework.NotFoundContext)
	badRequest   func(w http.ResponseWriter, r *http.Request, errorContext framework.ErrorContext)
	serverError  func(w http.ResponseWriter, r *http.Request, errorContext framework.ErrorContext)
}

func New[C interface{}](cfg Config[C]) (*Engine[C], error) {
	if cfg.RenderPage == nil {
		return nil, errors.New("render page callback is required")
	}
	if cfg.PatchLive == nil {
		return nil, errors.New("patch live callback is required")
	}

	isPartial := cfg.IsPartialRequest
	if isPartial == nil {
		isPartial = func(*http.Request) bool { return false }
	}

	isNotFound := cfg.IsNotFoundError
	if isNotFound == nil {
		isNotFound = func(error) bool { return false }
	}

	isBadRequest := cfg.IsBadRequestError
	if isBadRequest == nil {
		isBadRequest = func(error) bool { return false }
	}

	notFound := cfg.HandleNotFound
	if notFound == nil {
		notFound = func(w http.ResponseWriter, r *http.Request, _ framework.NotFoundContext) {
			http.NotFound(w, r)
		}
	}

	badRequest := cfg.HandleBadRequest
	if badRequest == nil {
		badRequest = func(w http.ResponseWriter, _ *http.Request, _ framework.ErrorContext) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}
	}

	serverError := cfg.HandleServerError
	if serverError == nil {
		serverError = func(w http.ResponseWriter, _ *http.Request, _ framework.ErrorContext) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}

	return &Engine[C]{
		appContext:   cfg.AppContext,
		handlers:     cfg.Handlers,
		isPartial:    isPartial,
		renderPage:   cfg.RenderPage,
		patchLive:    cfg.PatchLive,
		isNotFound:   isNotFound,
		isBadRequest: isBadRequest,
		notFound:     notFound,
		badRequest:   badRequest,
		serverError:  serverError,
	}, nil
}

// ServeRoute offers the request to each handler in order and reports whether
// one of them took it.
func (engine *Engine[C]) ServeRoute(w http.ResponseWriter, r *http.Request) bool {
	for _, handler := range engine.handlers {
		if handler.TryServe(engine, w, r) {
			return true
		}
	}

	return false
}

func (engine *Engine[C]) AppContext() C {
	return engine.appContext
}

func (engine *Engine[C]) IsPartialRequest(r *http.Request) bool {
	return engine.isPartial(r)
}

func (engine *Engine[C]) RenderPage(
	r *http.Request,
	w http.ResponseWriter,
	component templ.Component,
) error {
	return engine.renderPage(r, w, component)
}

func (engine *Engine[C]) PatchLive(
	w http.ResponseWriter,
	r *http.Request,
	component templ.Component,
) error {
	return engine.patchLive(w, r, component)
}

func (engine *Engine[C]) IsNotFound(err error) bool {
	return engine.isNotFound(err)
}

func (engine *Engine[C]) IsBadRequest(err error) bool {
	return engine.isBadRequest(err)
}

func (engine *Engine[C]) RespondNotFound(
	w http.ResponseWriter,
	r *http.Request,
	notFoundContext framework.NotFoundContext,
) {
	engine.notFound(w, r, notFoundContext)
}

func (engine *Engine[C]) RespondBadRequest(
	w http.ResponseWriter,
	r *http.Request,
	errorContext framework.ErrorContext,
) {
	engine.badRequest(w, r, errorContext)
}

func (engine *Engine[C]) RespondServerError(
	w http.ResponseWriter,
	r *http.Request,
	errorContext framework.ErrorContext,
) {
	engine.serverError(w, r, errorContext)
}
