// Package templates holds the embedded HTML pages and a gin renderer for them.
//
// Every page is parsed together with includes/*.html and rendered through the
// "base" layout, which pulls in the page's "title" and "content" blocks.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/utils"
)

//go:embed includes/*.html posts/*.html users/*.html core/*.html about/*.html
var files embed.FS

const layout = "base"

// Renderer implements gin's render.HTMLRender over per-page template sets.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page. Page names are their paths, like "posts/index.html".
func New() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, dir := range []string{"posts", "users", "core", "about"} {
		names, err := fs.Glob(files, dir+"/*.html")
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			t, err := template.New(path.Base(name)).Funcs(Funcs()).ParseFS(files, "includes/*.html", name)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", name, err)
			}
			r.pages[name] = t
		}
	}
	return r, nil
}

// MustNew is New that panics on a broken template.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Instance satisfies render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		return render.String{Format: "template %q not found", Data: []any{name}}
	}
	return render.HTML{Template: t, Name: layout, Data: data}
}

// Execute renders a page outside gin, e.g. from a plain net/http error handler.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, layout, data)
}

// Has reports whether a page with that name was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Funcs are the helpers available to every page.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"linebreaksbr":  linebreaksbr,
		"truncatewords": truncateWords,
		"date":          formatDate,
		"media":         MediaURL,
		"pageURL":       pageURL,
		"dict":          dict,
	}
}

func linebreaksbr(s string) template.HTML {
	return template.HTML(utils.FormatText(s))
}

func truncateWords(n int, s string) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + " …"
}

func formatDate(t time.Time) string {
	return t.Format("2 January 2006")
}

// MediaURL turns a stored name like posts/a.gif into its public URL.
func MediaURL(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSuffix(config.Get().MediaURL, "/") + "/" + strings.TrimPrefix(name, "/")
}

// pageURL keeps other query parameters and swaps page.
func pageURL(query url.Values, n int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(n))
	return "?" + q.Encode()
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict needs key/value pairs, got %d args", len(kv))
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}
