package webapp

import (
	"embed"
	"html/template"
	"log/slog"
)

//go:embed templates
var templateFiles embed.FS

// Templates is the compiled template set for all views.
var Templates *template.Template

func init() {
	var err error
	Templates, err = template.New("").ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		slog.Error("webapp: failed to parse templates", "err", err)
		panic(err)
	}
}
