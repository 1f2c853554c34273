package assets

type Config struct {
	// Entry point glob pattern (e.g., "ui/pages/*.ts")
	EntryPointGlob string
	// Output directory for built files, relative to the working directory
	OutputDir string
	// URL prefix the output directory is served under, e.g. "/public/"
	PublicPath string
	// Path to metafile
	MetafilePath string
	// Directory holding the *.html page templates
	TemplateDir string
	// Whether to minify output
	Minify bool
	// Whether to enable source maps
	SourceMap bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		EntryPointGlob: "ui/pages/*.ts",
		OutputDir:      "public",
		PublicPath:     "/public/",
		MetafilePath:   "public/meta.json",
		TemplateDir:    "templates",
		Minify:         true,
		SourceMap:      true,
	}
}
