package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/abiosoft/mold"
	"github.com/russross/blackfriday/v2"
)

var (
	//go:embed templates
	templateFS embed.FS

	//go:embed assets/style.css
	cssContent string

	markdownRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML | blackfriday.Safelink,
	})
)

// Markdown renders a description. Raw HTML in the input is dropped.
func Markdown(text string) template.HTML {
	return template.HTML(blackfriday.Run([]byte(text), blackfriday.WithRenderer(markdownRenderer)))
}

// Pages renders the HTML pages inside the shared layout
type Pages struct {
	engine mold.Engine
}

// NewPages parses the embedded templates
func NewPages() (*Pages, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine, err := mold.New(sub, mold.WithLayout("layout.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Pages{engine: engine}, nil
}

// Render renders pages/<page>.html. The layout gets the stylesheet, the page
// language and a T function translating with the localizer in ctx.
func (p *Pages) Render(ctx context.Context, w io.Writer, page, lang string, data map[string]any) error {
	if data == nil {
		data = make(map[string]any)
	}
	data["CSS"] = template.CSS(cssContent)
	data["Lang"] = lang
	data["T"] = func(messageID string) string {
		return Localize(ctx, messageID)
	}
	if _, ok := data["Notice"]; !ok {
		data["Notice"] = ""
	}
	return p.engine.Render(w, "pages/"+page+".html", data)
}
