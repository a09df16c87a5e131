package api

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
)

// Renderer renders HTML pages with pongo2.
type Renderer struct {
	templateSet *pongo2.TemplateSet
}

// NewRenderer creates a renderer over a template directory.
func NewRenderer(templateDir string) (*Renderer, error) {
	if templateDir == "" {
		return nil, fmt.Errorf("template directory is required")
	}
	if _, err := os.Stat(templateDir); err != nil {
		return nil, fmt.Errorf("template directory not found: %w", err)
	}

	abs, _ := filepath.Abs(templateDir)
	templateSet := pongo2.NewSet("billdesk", pongo2.MustNewLocalFileSystemLoader(abs))

	return &Renderer{templateSet: templateSet}, nil
}

// HTML renders a template to the response.
func (r *Renderer) HTML(c *gin.Context, code int, name string, data pongo2.Context) {
	if r == nil || r.templateSet == nil {
		// Handler tests run without templates on disk.
		c.String(code, "billdesk")
		return
	}

	tpl, err := r.templateSet.FromCache(name)
	if err != nil {
		c.String(500, "template error: %v", err)
		return
	}
	out, err := tpl.Execute(data)
	if err != nil {
		c.String(500, "template error: %v", err)
		return
	}
	c.Data(code, "text/html; charset=utf-8", []byte(out))
}
