// Package config defines the CHTL compiler's Options table (spec §6.1):
// the knobs compile()/compile_file() accept, their documented defaults,
// and an optional on-disk override file.
//
// Grounded on the teacher's cmd/aleutian/config/{loader.go,types.go}: a
// sync.Once-guarded singleton loader reading a YAML file under the user's
// home directory, plus a Default() constructor — generalized here to a
// per-compilation Options value (never a package-level global, per the
// design notes' "explicit context over global registries" instruction)
// with an optional loader for a project-local ".chtlrc.yaml". Programmatic
// overrides follow services/trace/ast/css_parser.go's CSSParserOption
// functional-option pattern.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Options holds every configuration knob spec §6.1 documents, all
// optional with the defaults listed there.
type Options struct {
	PreserveComments bool   `yaml:"preserve_comments"`
	MinifyOutput     bool   `yaml:"minify_output"`
	OutputCharset    string `yaml:"output_charset"`
	IndentString     string `yaml:"indent_string"`
	StrictMode       bool   `yaml:"strict_mode"`
	StopOnFirstError bool   `yaml:"stop_on_first_error"`
	EnableCaching    bool   `yaml:"enable_caching"`
	CacheSizeMax     int64  `yaml:"cache_size_max"`

	// SearchPaths is the driver-supplied list of roots logical [Import]
	// names are resolved against (spec §6.3). Not part of the documented
	// options table (it has no single sensible default) but travels with
	// Options since both are driver-level compile-time configuration.
	SearchPaths []string `yaml:"search_paths"`
}

// Default returns the spec-documented defaults.
func Default() Options {
	return Options{
		PreserveComments: true,
		MinifyOutput:     false,
		OutputCharset:    "utf-8",
		IndentString:     "  ",
		StrictMode:       true,
		StopOnFirstError: false,
		EnableCaching:    true,
		CacheSizeMax:     256,
	}
}

// Option mutates an Options value, following the teacher's functional-
// option pattern (services/trace/ast/css_parser.go's CSSParserOption) for
// programmatic overrides layered on top of Default() or a loaded file.
type Option func(*Options)

// Apply returns Default() with every opt applied in order.
func Apply(opts ...Option) Options {
	o := Default()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithMinify(minify bool) Option { return func(o *Options) { o.MinifyOutput = minify } }

func WithStrictMode(strict bool) Option { return func(o *Options) { o.StrictMode = strict } }

func WithStopOnFirstError(stop bool) Option { return func(o *Options) { o.StopOnFirstError = stop } }

func WithCaching(enabled bool, maxEntries int64) Option {
	return func(o *Options) {
		o.EnableCaching = enabled
		o.CacheSizeMax = maxEntries
	}
}

func WithSearchPaths(paths ...string) Option {
	return func(o *Options) { o.SearchPaths = append(o.SearchPaths, paths...) }
}

func WithIndentString(indent string) Option { return func(o *Options) { o.IndentString = indent } }

// SetOption applies one key/value pair from a source-level
// [Configuration] block onto o, reporting ok=false for an unrecognized
// key. Keys match the spec §6.1 option names. Caching keys are accepted
// for completeness but only take effect process-wide, at Compiler
// construction; a single compilation cannot resize a cache it is already
// running against.
func SetOption(o *Options, key, value string) bool {
	switch key {
	case "preserve_comments":
		o.PreserveComments = parseBool(value, o.PreserveComments)
	case "minify_output":
		o.MinifyOutput = parseBool(value, o.MinifyOutput)
	case "output_charset":
		o.OutputCharset = value
	case "indent_string":
		o.IndentString = value
	case "strict_mode":
		o.StrictMode = parseBool(value, o.StrictMode)
	case "stop_on_first_error":
		o.StopOnFirstError = parseBool(value, o.StopOnFirstError)
	case "enable_caching":
		o.EnableCaching = parseBool(value, o.EnableCaching)
	case "cache_size_max":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			o.CacheSizeMax = n
		}
	default:
		return false
	}
	return true
}

func parseBool(value string, fallback bool) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

// Load reads a YAML options file at path, layering its fields over
// Default(). A missing file is not an error: it simply yields the
// defaults, matching the "all optional" framing of spec §6.1's table
// rather than the teacher's own loader.go, which creates a file on first
// run — CHTL's config file is a pure override, never a stateful artifact
// the compiler writes back to.
func Load(path string) (Options, error) {
	o := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return o, nil
		}
		return o, err
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, err
	}
	return o, nil
}

// FindProjectConfig walks up from dir looking for a ".chtlrc.yaml" file,
// returning "" if none is found before reaching the filesystem root.
func FindProjectConfig(dir string) string {
	for {
		candidate := filepath.Join(dir, ".chtlrc.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
