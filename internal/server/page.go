package server

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

const pageTemplate = "index.html"

//go:embed web/index.html
var webFS embed.FS

type pageRenderer struct {
	templates *template.Template
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{
		templates: template.Must(template.ParseFS(webFS, "web/*.html")),
	}
}

func (r *pageRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
