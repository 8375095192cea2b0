// Package source abstracts the file surface a compilation reads from:
// UTF-8 source files on disk, resolved either as a relative path against
// the importing file's directory or a logical dotted name against a
// driver-supplied search-path list (spec §6.3).
//
// Grounded on AndrewCouncil-hugo's go.mod dependency on spf13/afero: Hugo
// abstracts its own multi-source file reads (theme dirs, content dirs,
// mounts) behind afero.Fs rather than calling os.* directly, which is
// exactly the seam compile_file and import resolution need to stay
// testable without a real filesystem. The teacher itself reads local
// config paths directly via os and has no general-purpose source
// abstraction to draw on for this concern.
package source

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileSystem is the file surface used by compile_file and [Import]
// resolution. It satisfies symbols.FileReader.
type FileSystem struct {
	fs afero.Fs
}

// NewOS returns a FileSystem backed by the real operating-system
// filesystem.
func NewOS() *FileSystem {
	return &FileSystem{fs: afero.NewOsFs()}
}

// NewMem returns a FileSystem backed by an in-memory filesystem, used by
// tests that exercise import resolution without touching disk.
func NewMem() *FileSystem {
	return &FileSystem{fs: afero.NewMemMapFs()}
}

// ReadFile reads the full contents of path.
func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(f.fs, path)
}

// WriteFile writes data to path, creating parent directories as needed.
// Only used by tests seeding a NewMem filesystem.
func (f *FileSystem) WriteFile(path string, data []byte) error {
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(f.fs, path, data, 0o644)
}

// Exists reports whether path names a regular file.
func (f *FileSystem) Exists(path string) bool {
	ok, err := afero.Exists(f.fs, path)
	return err == nil && ok
}

// ResolveRelative resolves an import path that starts with "." against
// the directory containing fromFile, per spec §6.3 ("relative, resolved
// against the importing file's directory").
func ResolveRelative(fromFile, importPath string) string {
	return filepath.Join(filepath.Dir(fromFile), importPath)
}

// IsRelative reports whether importPath should be resolved against the
// importing file's directory rather than globbed against search paths.
func IsRelative(importPath string) bool {
	return filepath.IsAbs(importPath) || len(importPath) > 0 && importPath[0] == '.'
}

// LogicalToGlob turns a dotted logical import name ("Name.Subname") into
// the filesystem-relative pattern doublestar matches against a search
// root: dots become path separators and a ".chtl" extension is appended
// unless the name already carries one explicitly.
func LogicalToGlob(logicalName string) string {
	base := logicalName
	hadExt := strings.HasSuffix(base, ".chtl")
	if hadExt {
		base = strings.TrimSuffix(base, ".chtl")
	}
	rel := strings.ReplaceAll(base, ".", string(filepath.Separator))
	return rel + ".chtl"
}
