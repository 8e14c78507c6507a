package appcore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/framework"
	"postboard/internal/markdown"
	"postboard/internal/posts"
)

type fakeSource struct {
	list    []posts.Post
	listErr error
	post    posts.Post
	postErr error

	listCalls int
	getCalls  []int
}

func (f *fakeSource) ListPosts(context.Context) ([]posts.Post, error) {
	f.listCalls++
	return f.list, f.listErr
}

func (f *fakeSource) GetPost(_ context.Context, id int) (posts.Post, error) {
	f.getCalls = append(f.getCalls, id)
	return f.post, f.postErr
}

func httpFailure(status int) error {
	return &posts.Failure{Kind: posts.KindHTTP, StatusCode: status, StatusText: fmt.Sprintf("Code: %d", status)}
}

func TestLoadBlogPage(t *testing.T) {
	source := &fakeSource{list: []posts.Post{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}}

	view, err := LoadBlogPage(context.Background(), NewContext(source, nil), nil, framework.EmptyParams{})
	require.NoError(t, err)
	assert.Equal(t, source.list, view.Blogs)
	assert.Nil(t, view.Markdown)
	assert.Equal(t, 1, source.listCalls)
}

func TestLoadersCarryMarkdownRenderer(t *testing.T) {
	renderer, err := markdown.NewRenderer(markdown.Options{})
	require.NoError(t, err)
	appCtx := NewContext(&fakeSource{post: posts.Post{ID: 1, Title: "A"}}, renderer)

	blogView, err := LoadBlogPage(context.Background(), appCtx, nil, framework.EmptyParams{})
	require.NoError(t, err)
	assert.Same(t, renderer, blogView.Markdown)

	postView, err := LoadPostPage(context.Background(), appCtx, nil, framework.IDParams{ID: "1"})
	require.NoError(t, err)
	assert.Same(t, renderer, postView.Markdown)
}

func TestLoadBlogPageFailure(t *testing.T) {
	source := &fakeSource{listErr: httpFailure(500)}

	_, err := LoadBlogPage(context.Background(), NewContext(source, nil), nil, framework.EmptyParams{})
	require.Error(t, err)
	assert.True(t, posts.IsHTTPFailure(err, 500))
	assert.Equal(t, http.StatusBadGateway, StatusForError(err))
	assert.Equal(t, "Code: 500", StatusText(err))
}

func TestLoadPostPage(t *testing.T) {
	source := &fakeSource{post: posts.Post{ID: 5, Title: "Hello", Body: "World"}}

	view, err := LoadPostPage(context.Background(), NewContext(source, nil), nil, framework.IDParams{ID: "5"})
	require.NoError(t, err)
	assert.Equal(t, source.post, view.Post)
	assert.Equal(t, "Hello", view.PageTitle)
	assert.Equal(t, []int{5}, source.getCalls)
}

func TestLoadPostPageNotFound(t *testing.T) {
	source := &fakeSource{postErr: httpFailure(404)}

	_, err := LoadPostPage(context.Background(), NewContext(source, nil), nil, framework.IDParams{ID: "404"})
	require.Error(t, err)

	failure, ok := posts.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, 404, failure.StatusCode)
	assert.Equal(t, "Code: 404", failure.StatusText)
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsBadRequestError(err))
}

func TestLoadPostPageRejectsInvalidID(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-3", "1e3"} {
		source := &fakeSource{}

		_, err := LoadPostPage(context.Background(), NewContext(source, nil), nil, framework.IDParams{ID: raw})
		require.Error(t, err, raw)
		assert.True(t, IsBadRequestError(err), raw)
		assert.Empty(t, source.getCalls, "no request for %q", raw)
		assert.Equal(t, http.StatusBadRequest, StatusForError(err))
	}
}

func TestLoadersWithoutSource(t *testing.T) {
	_, err := LoadBlogPage(context.Background(), NewContext(nil, nil), nil, framework.EmptyParams{})
	assert.ErrorIs(t, err, errPostSourceUnavailable)

	_, err = LoadPostPage(context.Background(), nil, nil, framework.IDParams{ID: "1"})
	assert.ErrorIs(t, err, errPostSourceUnavailable)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, StatusForError(fmt.Errorf("fetch: %w", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("boom")))
	assert.Equal(t, http.StatusBadGateway, StatusForError(&posts.Failure{Kind: posts.KindDecode}))
	assert.Empty(t, StatusText(errors.New("boom")))
}
