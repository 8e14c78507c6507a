package appcore

import (
	"context"
	"errors"
	"net/http"

	"postboard/internal/markdown"
	"postboard/internal/posts"
)

var errPostSourceUnavailable = errors.New("post source unavailable")

// PostSource is the remote data source as the loaders see it.
type PostSource interface {
	ListPosts(ctx context.Context) ([]posts.Post, error)
	GetPost(ctx context.Context, id int) (posts.Post, error)
}

// Context is shared by every page load. A nil markdown renderer means post
// bodies are plain text.
type Context struct {
	source   PostSource
	markdown *markdown.Renderer
}

func NewContext(source PostSource, renderer *markdown.Renderer) *Context {
	return &Context{source: source, markdown: renderer}
}

func (c *Context) Markdown() *markdown.Renderer {
	if c == nil {
		return nil
	}
	return c.markdown
}

func IsNotFoundError(err error) bool {
	return posts.IsHTTPFailure(err, http.StatusNotFound)
}

func IsBadRequestError(err error) bool {
	return posts.IsKind(err, posts.KindInvalidInput)
}

// StatusForError picks the response status for a failed load. Upstream
// failures are the remote service's fault, so they surface as 502.
func StatusForError(err error) int {
	if failure, ok := posts.AsFailure(err); ok {
		switch failure.Kind {
		case posts.KindInvalidInput:
			return http.StatusBadRequest
		case posts.KindHTTP, posts.KindDecode:
			return http.StatusBadGateway
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

// StatusText is the user-facing detail for a failed load.
func StatusText(err error) string {
	failure, ok := posts.AsFailure(err)
	if !ok {
		return ""
	}

	switch failure.Kind {
	case posts.KindHTTP:
		return failure.StatusText
	case posts.KindInvalidInput:
		return "Invalid post id: " + failure.Input
	default:
		return "Unexpected response from the post service"
	}
}

func postSource(appCtx *Context) (PostSource, error) {
	if appCtx == nil || appCtx.source == nil {
		return nil, errPostSourceUnavailable
	}

	return appCtx.source, nil
}
