package appcore

import (
	"context"
	"net/http"

	"postboard/framework"
	"postboard/internal/markdown"
	"postboard/internal/posts"
)

type BlogPageView struct {
	PageTitle string
	Blogs     []posts.PostSummary
	Markdown  *markdown.Renderer
}

type PostPageView struct {
	PageTitle string
	Post      posts.Post
	Markdown  *markdown.Renderer
}

func LoadBlogPage(
	ctx context.Context,
	appCtx *Context,
	_ *http.Request,
	_ framework.EmptyParams,
) (BlogPageView, error) {
	source, err := postSource(appCtx)
	if err != nil {
		return BlogPageView{}, err
	}

	blogs, err := source.ListPosts(ctx)
	if err != nil {
		return BlogPageView{}, err
	}

	return BlogPageView{
		PageTitle: "Blog",
		Blogs:     blogs,
		Markdown:  appCtx.Markdown(),
	}, nil
}

// LoadPostPage rejects a malformed id before any request is made.
func LoadPostPage(
	ctx context.Context,
	appCtx *Context,
	_ *http.Request,
	params framework.IDParams,
) (PostPageView, error) {
	id, err := posts.ParseID(params.ID)
	if err != nil {
		return PostPageView{}, err
	}

	source, err := postSource(appCtx)
	if err != nil {
		return PostPageView{}, err
	}

	post, err := source.GetPost(ctx, id)
	if err != nil {
		return PostPageView{}, err
	}

	return PostPageView{
		PageTitle: post.Title,
		Post:      post,
		Markdown:  appCtx.Markdown(),
	}, nil
}
