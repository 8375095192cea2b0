// Command chtl is the CLI driver for the CHTL compiler: compile one or
// more .chtl files to HTML/CSS/JS, optionally watching for changes.
//
// Grounded on the teacher's cmd/aleutian/commands.go (package-level var
// block of *cobra.Command, a root PersistentPreRun hook for global setup)
// adapted from an AI-appliance management CLI to a batch compiler driver:
// the root hook here initializes the structured logger instead of UX
// chat-personality state.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	chtl "github.com/chtl-lang/chtl"
	"github.com/chtl-lang/chtl/internal/compiler/config"
	"github.com/chtl-lang/chtl/internal/compiler/metrics"
	"github.com/chtl-lang/chtl/pkg/logging"
	"github.com/chtl-lang/chtl/pkg/ux"
)

var (
	version = "dev"

	outDir       string
	minify       bool
	strictMode   bool
	stopOnError  bool
	disableCache bool
	searchPaths  []string
	logLevel     string
	metricsAddr  string

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "chtl",
		Short: "Compile CHTL source into HTML, CSS, and JavaScript",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.LevelInfo
			if strings.EqualFold(logLevel, "debug") {
				level = logging.LevelDebug
			}
			logger = logging.New(logging.Config{Level: level, Service: "chtl"})

			if metricsAddr != "" {
				registry := prometheus.NewRegistry()
				if _, err := metrics.Init(registry); err != nil {
					logger.Error("metrics init failed", "error", err)
				} else {
					mux := http.NewServeMux()
					mux.Handle("/metrics", metrics.ServeHTTP(registry))
					go func() {
						if err := http.ListenAndServe(metricsAddr, mux); err != nil {
							logger.Error("metrics server stopped", "error", err)
						}
					}()
				}
			}
		},
	}

	compileCmd = &cobra.Command{
		Use:   "compile [files...]",
		Short: "Compile one or more .chtl files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCompile,
	}

	watchCmd = &cobra.Command{
		Use:   "watch [files...]",
		Short: "Recompile files whenever they change on disk",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatch,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the chtl compiler version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("chtl " + version)
		},
	}
)

func init() {
	compileCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: alongside each source file)")
	compileCmd.Flags().BoolVar(&minify, "minify", false, "strip inter-token whitespace from HTML/CSS")
	compileCmd.Flags().BoolVar(&strictMode, "strict", true, "treat warnings as errors")
	compileCmd.Flags().BoolVar(&stopOnError, "stop-on-first-error", false, "abort on the first diagnostic")
	compileCmd.Flags().BoolVar(&disableCache, "no-cache", false, "disable the compilation cache")
	compileCmd.Flags().StringArrayVar(&searchPaths, "import-path", nil, "search root for logical [Import] names, repeatable")

	watchCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: alongside each source file)")
	watchCmd.Flags().BoolVar(&minify, "minify", false, "strip inter-token whitespace from HTML/CSS")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics at this address (e.g. :9090)")

	rootCmd.AddCommand(compileCmd, watchCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildOptions() config.Options {
	opts := config.Apply(
		config.WithMinify(minify),
		config.WithStrictMode(strictMode),
		config.WithStopOnFirstError(stopOnError),
		config.WithSearchPaths(searchPaths...),
	)
	if disableCache {
		opts.EnableCaching = false
	}
	return opts
}

func runCompile(cmd *cobra.Command, paths []string) error {
	compiler, err := chtl.New(buildOptions(), nil)
	if err != nil {
		return err
	}
	defer compiler.Close()

	failed := false
	for _, path := range paths {
		if !compileOne(compiler, path) {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("one or more files failed to compile")
	}
	return nil
}

func compileOne(compiler *chtl.Compiler, path string) bool {
	ctx := context.Background()
	result := compiler.CompileFile(ctx, path)

	for _, d := range result.Errors {
		ux.PrintDiagnostic(path, d)
	}
	for _, d := range result.Warnings {
		ux.PrintDiagnostic(path, d)
	}
	ux.PrintSummary(path, result.Success, len(result.Errors), len(result.Warnings), result.CompilationTimeMs)

	if logger != nil {
		logger.Info("compile finished", "file", path, "success", result.Success,
			"errors", len(result.Errors), "warnings", len(result.Warnings),
			"duration_ms", result.CompilationTimeMs, "from_cache", result.FromCache)
	}

	if !result.Success {
		return false
	}
	return writeOutputs(path, result)
}

func writeOutputs(path string, result chtl.Result) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		ux.Info(fmt.Sprintf("failed to create output directory: %s", err))
		return false
	}
	writes := map[string]string{
		".html": result.HTML,
		".css":  result.CSS,
		".js":   result.JS,
	}
	for ext, content := range writes {
		if content == "" {
			continue
		}
		outPath := filepath.Join(dir, base+ext)
		if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
			ux.Info(fmt.Sprintf("failed to write %s: %s", outPath, err))
			return false
		}
	}
	return true
}

func runWatch(cmd *cobra.Command, paths []string) error {
	compiler, err := chtl.New(buildOptions(), nil)
	if err != nil {
		return err
	}
	defer compiler.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		compileOne(compiler, path)
	}

	ux.Info("watching for changes, press Ctrl+C to stop")
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				compileOne(compiler, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ux.Info(fmt.Sprintf("watch error: %s", err))
		}
	}
}
