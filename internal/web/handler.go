package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"postboard/framework/httpserver"
	"postboard/internal/config"
	"postboard/internal/markdown"
	"postboard/internal/web/appcore"
	"postboard/internal/web/components"
)

func NewHandler(cfg config.Config, source appcore.PostSource, logger zerolog.Logger) (http.Handler, error) {
	cfg.Normalize()

	var renderer *markdown.Renderer
	if cfg.BodyFormat == config.BodyFormatMarkdown {
		var err error
		renderer, err = markdown.NewRenderer(markdown.Options{
			SiteURL:    cfg.SiteURL,
			LightTheme: cfg.CodeThemeLight,
			DarkTheme:  cfg.CodeThemeDark,
		})
		if err != nil {
			return nil, fmt.Errorf("markdown renderer: %w", err)
		}
	}

	cachePolicies := httpserver.DefaultCachePolicies()
	if strings.TrimSpace(cfg.CacheHTML) != "" {
		cachePolicies.HTML = cfg.CacheHTML
	}
	if strings.TrimSpace(cfg.CacheLiveNavigation) != "" {
		cachePolicies.LiveNavigation = cfg.CacheLiveNavigation
	}

	handler, err := httpserver.New(httpserver.Config[*appcore.Context]{
		AppContext:        appcore.NewContext(source, renderer),
		Handlers:          Handlers(),
		IsNotFoundError:   appcore.IsNotFoundError,
		IsBadRequestError: appcore.IsBadRequestError,
		StatusForError:    appcore.StatusForError,
		NotFoundPage:      NotFoundPage,
		ErrorPage:         ErrorPage,
		Static: httpserver.StaticMount{
			URLPrefix: "/static/",
			Dir:       cfg.StaticDir,
		},
		CachePolicies: cachePolicies,
		LiveTargetID:  components.PageBodyID,
		Logger:        &logger,
	})
	if err != nil {
		return nil, fmt.Errorf("handler setup failed: %w", err)
	}

	return handler, nil
}
