package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// Viewer describes the signed-in user for navigation and action buttons.
type Viewer struct {
	ID            int64
	Username      string
	IsAdmin       bool
	CanManagePOAM bool
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Viewer      *Viewer
	Data        any
}

var printer = message.NewPrinter(language.English)

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(Funcs()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"date":      displayDate,
		"dateValue": inputDate,
		"idValue":   idValue,
		"sameID":    sameID,
		"number":    func(n int) string { return printer.Sprintf("%d", n) },
		"percent":   func(f float64) string { return printer.Sprintf("%.1f%%", f) },
		"bytes":     humanBytes,
	}
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

func timeOf(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	}
	return time.Time{}, false
}

// displayDate accepts time.Time or *time.Time.
func displayDate(v any) string {
	t, ok := timeOf(v)
	if !ok {
		return ""
	}
	return t.Format("Jan 02, 2006")
}

// inputDate formats for <input type="date">.
func inputDate(v any) string {
	t, ok := timeOf(v)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

func idOf(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, n != 0
	case *int64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case int:
		return int64(n), n != 0
	}
	return 0, false
}

func idValue(v any) string {
	id, ok := idOf(v)
	if !ok {
		return ""
	}
	return fmt.Sprint(id)
}

// sameID compares ids that may be plain or optional.
func sameID(a, b any) bool {
	x, okA := idOf(a)
	y, okB := idOf(b)
	return okA && okB && x == y
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return printer.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return printer.Sprintf("%.1f %sB", float64(n)/float64(div), string("KMGTPE"[exp]))
}
