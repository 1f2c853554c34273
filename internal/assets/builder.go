package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// Build runs esbuild with the configured settings and loads metadata
func (p *Pipeline) Build() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entryPoints, err := filepath.Glob(p.config.EntryPointGlob)
	if err != nil {
		return err
	}

	if len(entryPoints) == 0 {
		return errors.New("no entry points found")
	}

	log.Info().Strs("entrypoints", entryPoints).Msg("Building assets")

	result := api.Build(api.BuildOptions{
		EntryPoints:       entryPoints,
		Bundle:            true,
		Splitting:         true,
		Write:             true,
		Outdir:            p.config.OutputDir,
		Format:            api.FormatESModule,
		Target:            api.ES2020,
		MinifyWhitespace:  p.config.Minify,
		MinifyIdentifiers: p.config.Minify,
		MinifySyntax:      p.config.Minify,
		TreeShaking:       api.TreeShakingTrue,
		Sourcemap:         cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          true,
	})

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("error", msg.Text).Msg("Build error")
		}
		return errors.New("esbuild failed with errors")
	}

	for _, file := range result.OutputFiles {
		log.Debug().Str("file", file.Path).Msg("Built file")
	}

	// Write metafile
	if err := os.WriteFile(p.config.MetafilePath, []byte(result.Metafile), 0600); err != nil {
		return err
	}

	// Parse and cache metadata
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return err
	}

	p.metadata = &metadata
	return nil
}

// LoadScripts returns the ordered list of script paths needed for the given entrypoint
// and the main entrypoint file path
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", errors.New("assets not built yet, call Build() first")
	}

	scripts := []string{}
	visited := make(map[string]bool)
	var entrypoint string

	// Find the output file for this entrypoint
	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath {
			entrypoint = p.assetURL(outputPath)
			scripts = append(scripts, entrypoint)
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			return scripts, entrypoint, nil
		}
	}

	return nil, "", fmt.Errorf("entrypoint %s not found in metadata", entryPointPath)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, p.assetURL(imp.Path))

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// Handler returns an http.HandlerFunc that renders page with its scripts.
// contextFn supplies per request data exposed to the page script; it may be nil.
func (p *Pipeline) Handler(page Page, contextFn func(r *http.Request) any) (http.HandlerFunc, error) {
	if p.tmpl.Lookup(page.Template) == nil {
		return nil, fmt.Errorf("template %s not found", page.Template)
	}

	if contextFn == nil {
		contextFn = func(*http.Request) any {
			return nil
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		scripts, _, err := p.LoadScripts(page.EntryPoint)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load scripts")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := map[string]any{
			"Title":   page.Title,
			"Scripts": scripts,
			"Context": contextFn(r),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := p.tmpl.ExecuteTemplate(w, page.Template, data); err != nil {
			log.Error().Err(err).Msg("Failed to render template")
		}
	}, nil
}

// PublicPath returns the URL prefix Files must be mounted under, /public/
// unless configured.
func (p *Pipeline) PublicPath() string {
	trimmed := strings.Trim(p.config.PublicPath, "/")
	if trimmed == "" {
		trimmed = "public"
	}
	return "/" + trimmed + "/"
}

// Files serves the build output under PublicPath.
func (p *Pipeline) Files() http.Handler {
	return http.StripPrefix(p.PublicPath(), http.FileServer(http.Dir(p.config.OutputDir)))
}

// assetURL maps an esbuild output path, which is relative to the working
// directory, to its URL under PublicPath.
func (p *Pipeline) assetURL(outputPath string) string {
	rel := outputPath
	outDir, errDir := filepath.Abs(p.config.OutputDir)
	outFile, errFile := filepath.Abs(outputPath)
	if errDir == nil && errFile == nil {
		if r, err := filepath.Rel(outDir, outFile); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	return p.PublicPath() + filepath.ToSlash(rel)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
