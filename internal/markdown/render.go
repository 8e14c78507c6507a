package markdown

import (
	"fmt"
	"html"
	"html/template"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	md "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const (
	DefaultLightTheme = "github"
	DefaultDarkTheme  = "monokai"
)

const extensions = parser.CommonExtensions | parser.AutoHeadingIDs

// Options configures a Renderer.
type Options struct {
	// SiteURL is the public origin of this site, e.g. https://posts.example.com.
	// Absolute links to it are rewritten to site paths and open in place.
	SiteURL    string
	LightTheme string
	DarkTheme  string
}

// Renderer turns markdown post bodies into HTML. It is safe for concurrent use.
type Renderer struct {
	site      *url.URL
	formatter *chromahtml.Formatter
	light     *chroma.Style
	dark      *chroma.Style

	cssOnce sync.Once
	css     template.CSS
}

func NewRenderer(opts Options) (*Renderer, error) {
	site, err := parseSiteURL(opts.SiteURL)
	if err != nil {
		return nil, err
	}
	light, err := lookupTheme(opts.LightTheme, DefaultLightTheme)
	if err != nil {
		return nil, err
	}
	dark, err := lookupTheme(opts.DarkTheme, DefaultDarkTheme)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		site:      site,
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
		light:     light,
		dark:      dark,
	}, nil
}

func parseSiteURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	site, err := url.Parse(raw)
	if err != nil || (site.Scheme != "http" && site.Scheme != "https") || site.Host == "" {
		return nil, fmt.Errorf("site url %q must be an absolute http(s) URL", raw)
	}
	site.Path = strings.TrimRight(site.Path, "/")
	return site, nil
}

func lookupTheme(name string, fallback string) (*chroma.Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = fallback
	}

	style, ok := styles.Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown highlight theme %q", name)
	}
	return style, nil
}

// Render converts body to HTML. Raw HTML in the source is dropped.
func (r *Renderer) Render(body string) template.HTML {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	doc := md.Parse([]byte(body), parser.NewWithExtensions(extensions))
	r.rewriteLinks(doc)

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags:          mdhtml.CommonFlags | mdhtml.SkipHTML,
		RenderNodeHook: r.renderCode,
	})
	return template.HTML(md.Render(doc, renderer))
}

func (r *Renderer) rewriteLinks(doc ast.Node) {
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		link, ok := node.(*ast.Link)
		if !ok || !entering {
			return ast.GoToNext
		}

		href, local := r.localHref(string(link.Destination))
		link.Destination = []byte(href)
		if !local {
			link.AdditionalAttributes = append(
				withoutTargetAndRel(link.AdditionalAttributes),
				`target="_blank"`,
				`rel="noopener noreferrer"`,
			)
		}
		return ast.GoToNext
	})
}

// localHref reports whether href points into this site and, if it is an
// absolute URL on the site origin, returns it as a site path.
func (r *Renderer) localHref(href string) (string, bool) {
	target, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href, false
	}
	if target.Scheme == "" && target.Host == "" {
		return href, true
	}
	if r.site == nil ||
		!strings.EqualFold(target.Scheme, r.site.Scheme) ||
		!strings.EqualFold(target.Host, r.site.Host) {
		return href, false
	}
	if r.site.Path != "" && target.Path != r.site.Path && !strings.HasPrefix(target.Path, r.site.Path+"/") {
		return href, false
	}

	local := url.URL{Path: target.Path, RawQuery: target.RawQuery, Fragment: target.Fragment}
	if local.Path == "" {
		local.Path = "/"
	}
	return local.String(), true
}

func withoutTargetAndRel(attrs []string) []string {
	kept := attrs[:0:0]
	for _, attr := range attrs {
		name, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(attr)), "=")
		if name == "target" || name == "rel" {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func (r *Renderer) renderCode(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	if !entering {
		return ast.GoToNext, false
	}

	switch code := node.(type) {
	case *ast.CodeBlock:
		r.highlight(w, string(code.Literal), fenceLanguage(code.Info))
		return ast.SkipChildren, true
	case *ast.Code:
		_, _ = io.WriteString(w, `<code class="inline-code">`+html.EscapeString(string(code.Literal))+`</code>`)
		return ast.SkipChildren, true
	}
	return ast.GoToNext, false
}

func (r *Renderer) highlight(w io.Writer, source string, language string) {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	tokens, err := chroma.Coalesce(lexer).Tokenise(nil, source)
	if err == nil {
		err = r.formatter.Format(w, r.light, tokens)
	}
	if err != nil {
		_, _ = io.WriteString(w, `<pre class="chroma"><code>`+html.EscapeString(source)+`</code></pre>`)
	}
}

func fenceLanguage(info []byte) string {
	fields := strings.Fields(string(info))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
