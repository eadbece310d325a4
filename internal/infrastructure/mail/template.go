package mail

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

//go:embed templates/*.html
var embedded embed.FS

// DefaultTemplates returns the templates compiled into the binary.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplatesFrom returns dir as a template source, or the embedded set when
// dir is empty.
func TemplatesFrom(dir string) fs.FS {
	if dir == "" {
		return DefaultTemplates()
	}
	return os.DirFS(dir)
}

// Renderer loads templates by name and replaces every {$key} placeholder
// with data[key]. Placeholders without a value are left untouched.
type Renderer struct {
	fsys fs.FS
}

func NewRenderer(fsys fs.FS) *Renderer {
	return &Renderer{fsys: fsys}
}

func (r *Renderer) Render(name string, data map[string]string) (string, error) {
	raw, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return "", fmt.Errorf("load template %s: %w", name, err)
	}

	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{$"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(string(raw)), nil
}
