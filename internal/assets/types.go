package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"maps"
	"sync"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Page describes one server rendered page of the portal.
type Page struct {
	// Template is the name of the template to execute
	Template string
	// Title is shown in the browser tab
	Title string
	// EntryPoint is the source file whose bundle the page loads
	EntryPoint string
}

// Pipeline manages the asset build process and page rendering
type Pipeline struct {
	config   Config
	metadata *BuildMetadata
	tmpl     *template.Template
	mu       sync.RWMutex
}

// New creates a new asset pipeline and loads all templates from
// config.TemplateDir.
func New(config Config) (*Pipeline, error) {
	return NewWithFuncs(config, nil)
}

// NewWithFuncs creates a new asset pipeline with additional template functions
func NewWithFuncs(config Config, customFuncs template.FuncMap) (*Pipeline, error) {
	p := &Pipeline{
		config: config,
	}

	funcs := template.FuncMap{
		"marshal": marshal,
	}

	// Merge custom functions
	maps.Copy(funcs, customFuncs)

	tmpl, err := template.New(config.TemplateDir).Funcs(funcs).ParseGlob(config.TemplateDir + "/*.html")
	if err != nil {
		return nil, err
	}
	p.tmpl = tmpl
	return p, nil
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
