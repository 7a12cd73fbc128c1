// Package workspace enumerates the source files of one logical project,
// grouped by sub-package, and the set of crate roots considered internal.
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/tether-analysis/tether/pkg/coupling"
	"github.com/tether-analysis/tether/pkg/modpath"
)

const sourceExt = ".rs"

// Package is one crate of the workspace.
type Package struct {
	Name string
	Dir  string
	// Files are the package's source files, sorted by path.
	Files []string
}

// Workspace is the resolved set of source files for one project.
type Workspace struct {
	Root string
	// Packages are the workspace members, sorted by name.
	Packages []Package
	// Roots are the crate names considered internal.
	Roots []string
}

// manifest mirrors the Cargo.toml fields the resolver reads.
type manifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// Resolve walks root and enumerates source files. A Cargo.toml manifest, if
// present, names the package and workspace members; otherwise the root is a
// single package named after its directory. Ignore globs use gitignore
// pattern syntax.
func Resolve(root string, ignoreGlobs []string) (*Workspace, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &coupling.IoError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &coupling.IoError{Path: root, Err: errors.New("root is not a directory")}
	}

	ws := &Workspace{Root: root}
	matcher := ignore.CompileIgnoreLines(ignoreGlobs...)

	manifestPath := filepath.Join(root, "Cargo.toml")
	if _, err := os.Stat(manifestPath); err == nil {
		if err := ws.resolveManifest(root, manifestPath, matcher); err != nil {
			return nil, err
		}
	} else {
		name := crateName(filepath.Base(absOrSelf(root)))
		files, err := collectFiles(root, matcher)
		if err != nil {
			return nil, err
		}
		ws.Packages = append(ws.Packages, Package{Name: name, Dir: root, Files: files})
	}

	sort.Slice(ws.Packages, func(i, j int) bool { return ws.Packages[i].Name < ws.Packages[j].Name })
	for _, p := range ws.Packages {
		ws.Roots = append(ws.Roots, p.Name)
	}
	return ws, nil
}

func (ws *Workspace) resolveManifest(root, manifestPath string, matcher *ignore.GitIgnore) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return &coupling.IoError{Path: manifestPath, Err: err}
	}
	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return &coupling.WorkspaceError{Path: manifestPath, Err: err}
	}

	memberDirs := make([]string, 0, len(m.Workspace.Members))
	for _, member := range m.Workspace.Members {
		// Members may use trailing glob form ("crates/*").
		if strings.ContainsAny(member, "*?[") {
			matches, err := filepath.Glob(filepath.Join(root, member))
			if err != nil {
				return &coupling.WorkspaceError{Path: manifestPath, Err: err}
			}
			memberDirs = append(memberDirs, matches...)
		} else {
			memberDirs = append(memberDirs, filepath.Join(root, member))
		}
	}

	if len(memberDirs) == 0 {
		if m.Package.Name == "" {
			return &coupling.WorkspaceError{Path: manifestPath, Err: errors.New("manifest has neither package name nor workspace members")}
		}
		files, err := collectFiles(root, matcher)
		if err != nil {
			return err
		}
		ws.Packages = append(ws.Packages, Package{Name: crateName(m.Package.Name), Dir: root, Files: files})
		return nil
	}

	for _, dir := range memberDirs {
		memberManifest := filepath.Join(dir, "Cargo.toml")
		data, err := os.ReadFile(memberManifest)
		if err != nil {
			return &coupling.WorkspaceError{Path: memberManifest, Err: err}
		}
		var mm manifest
		if err := toml.Unmarshal(data, &mm); err != nil {
			return &coupling.WorkspaceError{Path: memberManifest, Err: err}
		}
		if mm.Package.Name == "" {
			return &coupling.WorkspaceError{Path: memberManifest, Err: errors.New("member manifest missing package name")}
		}
		files, err := collectFiles(dir, matcher)
		if err != nil {
			return err
		}
		ws.Packages = append(ws.Packages, Package{Name: crateName(mm.Package.Name), Dir: dir, Files: files})
	}
	return nil
}

// collectFiles walks dir for source files, honoring ignore globs. Symbolic
// links are followed once: directories already visited under their
// canonicalized path are skipped, which breaks filesystem cycles.
func collectFiles(dir string, matcher *ignore.GitIgnore) ([]string, error) {
	var files []string
	visited := make(map[string]bool)

	var walk func(string) error
	walk = func(current string) error {
		canonical, err := filepath.EvalSymlinks(current)
		if err != nil {
			return nil
		}
		if visited[canonical] {
			return nil
		}
		visited[canonical] = true

		entries, err := os.ReadDir(current)
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			path := filepath.Join(current, entry.Name())
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				rel = path
			}
			if matcher != nil && matcher.MatchesPath(rel) {
				continue
			}

			typ := entry.Type()
			if typ&fs.ModeSymlink != 0 {
				target, err := os.Stat(path)
				if err != nil {
					continue
				}
				if target.IsDir() {
					if err := walk(path); err != nil {
						return err
					}
					continue
				}
			} else if entry.IsDir() {
				if strings.HasPrefix(entry.Name(), ".") || entry.Name() == "target" {
					continue
				}
				if err := walk(path); err != nil {
					return err
				}
				continue
			}
			if strings.HasSuffix(entry.Name(), sourceExt) {
				files = append(files, path)
			}
		}
		return nil
	}

	if err := walk(dir); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FileModule derives the module path for a source file inside a package.
// "src/" is dropped, directory segments become module segments, and the
// special stems lib, main and mod resolve to their directory's module.
func (p Package) FileModule(path string) modpath.Path {
	rel, err := filepath.Rel(p.Dir, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(rel, "src/")
	rel = strings.TrimSuffix(rel, sourceExt)

	segments := []string{p.Name}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" {
			continue
		}
		segments = append(segments, seg)
	}

	last := segments[len(segments)-1]
	if last == "lib" || last == "main" || last == "mod" {
		segments = segments[:len(segments)-1]
	}
	return modpath.New(segments...)
}

// FileCount returns the total number of source files.
func (ws *Workspace) FileCount() int {
	n := 0
	for _, p := range ws.Packages {
		n += len(p.Files)
	}
	return n
}

// crateName normalizes a package name to its crate identifier form.
func crateName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
