package markdown

import (
	"bytes"
	"html/template"

	"github.com/alecthomas/chroma/v2"
)

// HighlightCSS returns the class-based code highlighting rules, with the light
// theme and the dark theme each behind a prefers-color-scheme query.
func (r *Renderer) HighlightCSS() template.CSS {
	r.cssOnce.Do(func() {
		var out bytes.Buffer
		for _, scheme := range []struct {
			media string
			style *chroma.Style
		}{
			{media: "light", style: r.light},
			{media: "dark", style: r.dark},
		} {
			var rules bytes.Buffer
			if err := r.formatter.WriteCSS(&rules, scheme.style); err != nil {
				continue
			}
			out.WriteString("@media (prefers-color-scheme: " + scheme.media + ") {\n")
			out.Write(rules.Bytes())
			out.WriteString("}\n")
		}
		r.css = template.CSS(out.String())
	})

	return r.css
}
