// Package prompt renders the design and code prompts for a generate request.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"uigen/internal/domain/entity"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	designTemplate = "design.tmpl"
	codeTemplate   = "code.tmpl"
)

type Templater struct {
	tmpl *template.Template
}

func NewTemplater() (*Templater, error) {
	tmpl, err := template.New("prompts").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &Templater{tmpl: tmpl}, nil
}

// Build renders both prompts. The request must already be validated.
func (t *Templater) Build(req entity.GenerateRequest) (entity.Prompts, error) {
	design, err := t.render(designTemplate, req)
	if err != nil {
		return entity.Prompts{}, err
	}
	code, err := t.render(codeTemplate, req)
	if err != nil {
		return entity.Prompts{}, err
	}
	return entity.Prompts{Design: design, Code: code}, nil
}

func (t *Templater) render(name string, req entity.GenerateRequest) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name, req); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
