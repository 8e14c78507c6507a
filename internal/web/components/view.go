package components

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"postboard/framework/httpserver"
	"postboard/internal/markdown"
	"postboard/internal/posts"
)

const (
	siteName           = "Postboard"
	EmptyBlogListLabel = "No blogs found"
	IndicatorID        = "nav-indicator"
	PageBodyID         = "page-body"
	excerptChars       = 140
)

const baseCSS = `body{font-family:system-ui,sans-serif;margin:0;line-height:1.5}
.container{max-width:48rem;margin:0 auto;padding:0 1rem}
.navbar{display:flex;gap:1rem;padding:1rem;border-bottom:1px solid #ddd}
.alert{padding:.75rem 1rem;border-radius:.25rem}
.alert-info{background:#e7f3fe;color:#0c5460}
.my-5{margin:1.5rem 0}
.inline-code{font-family:monospace}
`

// ShellState is everything the page frame needs. Loading is set by the
// caller for the first paint; after that the loading signal follows live
// navigation requests in the browser.
type ShellState struct {
	Title        string
	Loading      bool
	HighlightCSS template.CSS
}

func PostHref(id int) string {
	return "/blog/" + strconv.Itoa(id)
}

func PostHeading(post posts.Post) string {
	return strconv.Itoa(post.ID) + " - " + post.Title
}

// postExcerpt is the link tooltip for a post. Markdown syntax is only
// stripped when bodies are markdown; plain bodies are shown as written.
func postExcerpt(body string, renderer *markdown.Renderer) string {
	if renderer != nil {
		body = markdown.PlainText(body)
	}
	return markdown.Truncate(body, excerptChars)
}

// navigateAction fetches href as a live patch of the page body and records
// it in the browser history.
func navigateAction(href string) string {
	return "window.history.pushState(null, '', " + strconv.Quote(href) + "); " +
		"@get(" + strconv.Quote(httpserver.LiveNavigationURL(href)) + ")"
}

func documentTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return siteName
	}
	return title + " | " + siteName
}

func pageStyle(highlightCSS template.CSS) string {
	return "<style>" + baseCSS + string(highlightCSS) + "</style>"
}

func statusHeading(statusCode int) string {
	return strconv.Itoa(statusCode) + " " + http.StatusText(statusCode)
}

func boolAttr(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
