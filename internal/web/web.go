// Package web embeds the site's HTML templates and static assets and builds
// the view engine used by the server.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"yatube/internal/service"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Layout wraps every full page.
const Layout = "layouts/base"

// SiteName appears in the header and page titles.
const SiteName = "Yatube"

// Static returns the embedded static assets rooted at the static directory.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// NewEngine parses the embedded templates. reload re-parses them on every
// render, which only makes sense with templates on disk and is ignored here.
func NewEngine() (*html.Engine, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	for name, fn := range Funcs() {
		engine.AddFunc(name, fn)
	}
	if err := engine.Load(); err != nil {
		return nil, err
	}
	return engine, nil
}

// Funcs are the helpers available inside templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"postURL":    service.PostURL,
		"editURL":    service.PostEditURL,
		"profileURL": service.ProfileURL,
		"groupURL":   service.GroupURL,
		"date":       FormatDate,
		"linebreaks": Linebreaks,
		"pageURL":    PageURL,
		"siteName":   func() string { return SiteName },
		"canEdit": func(viewerID, authorID uint) bool {
			return viewerID != 0 && viewerID == authorID
		},
	}
}

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDate renders t as "2 января 2024".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(t.Day()) + " " + monthsGenitive[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// Linebreaks escapes s and turns newlines into <br>.
func Linebreaks(s string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n")) //nolint:gosec // input is escaped above
}

// PageURL is the query string selecting page n.
func PageURL(n int) string {
	return "?page=" + strconv.Itoa(n)
}
