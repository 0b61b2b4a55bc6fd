package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxListedFiles = 50

type pathArgs struct {
	Path string `mapstructure:"path"`
}

type listFilesArgs struct {
	Path    string `mapstructure:"path"`
	Pattern string `mapstructure:"pattern"`
}

type readFileArgs struct {
	Path     string `mapstructure:"path"`
	MaxLines int    `mapstructure:"max_lines"`
}

type writeFileArgs struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
	Append  bool   `mapstructure:"append"`
}

func (r *Registry) registerFiles() error {
	const category = "files"
	specs := []struct {
		spec    Spec
		handler Handler
	}{
		{Spec{
			Name: "create_directory", Category: category, Description: "Create a directory and its parents.",
			Params: []Param{{Name: "path", Type: TypeString, Required: true}},
		}, typed(r.createDirectory)},
		{Spec{
			Name: "list_files", Category: category, Description: "List directory entries matching a glob.",
			Params: []Param{
				{Name: "path", Type: TypeString, Default: "."},
				{Name: "pattern", Type: TypeString, Default: "*"},
			},
		}, typed(r.listFiles)},
		{Spec{
			Name: "read_file", Category: category, Description: "Read the first lines of a text file.",
			Params: []Param{
				{Name: "path", Type: TypeString, Required: true},
				{Name: "max_lines", Type: TypeInteger, Default: 50},
			},
		}, typed(r.readFile)},
		{Spec{
			Name: "write_file", Category: category, Description: "Write or append text to a file.",
			Params: []Param{
				{Name: "path", Type: TypeString, Required: true},
				{Name: "content", Type: TypeString, Required: true},
				{Name: "append", Type: TypeBoolean, Default: false},
			},
		}, typed(r.writeFile)},
		{Spec{
			Name: "delete_file", Category: category, Description: "Delete a file.",
			Params: []Param{{Name: "path", Type: TypeString, Required: true}},
		}, typed(r.deleteFile)},
	}
	for _, s := range specs {
		if err := r.Register(s.spec, s.handler); err != nil {
			return err
		}
	}
	return nil
}

// resolvePath expands a leading "~" and anchors relative paths at the registry's base dir.
func (r *Registry) resolvePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.baseDir, p)
	}
	return filepath.Clean(p)
}

func (r *Registry) createDirectory(_ context.Context, in pathArgs) (map[string]any, error) {
	p := r.resolvePath(in.Path)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", p, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	return map[string]any{
		"status":       "created",
		"path":         p,
		"exists":       true,
		"is_directory": info.IsDir(),
		"permissions":  fmt.Sprintf("%o", info.Mode().Perm()),
	}, nil
}

func (r *Registry) listFiles(_ context.Context, in listFilesArgs) (map[string]any, error) {
	dir := r.resolvePath(in.Path)
	pattern := in.Pattern
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	items := make([]map[string]any, 0)
	total := 0
	for _, e := range entries {
		if ok, _ := filepath.Match(pattern, e.Name()); !ok {
			continue
		}
		total++
		if len(items) >= maxListedFiles {
			continue
		}
		item := map[string]any{"name": e.Name(), "is_directory": e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			item["size"] = info.Size()
			item["size_human"] = humanSize(info.Size())
		}
		items = append(items, item)
	}
	return map[string]any{
		"path":        dir,
		"pattern":     pattern,
		"items":       items,
		"total_items": total,
		"truncated":   total > len(items),
	}, nil
}

func (r *Registry) readFile(_ context.Context, in readFileArgs) (map[string]any, error) {
	p := r.resolvePath(in.Path)
	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%s is not a UTF-8 text file", p)
	}
	maxLines := in.MaxLines
	if maxLines <= 0 {
		maxLines = 50
	}
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	if len(raw) == 0 {
		lines = nil
	}
	shown := lines
	if len(shown) > maxLines {
		shown = shown[:maxLines]
	}
	return map[string]any{
		"path":        p,
		"content":     strings.Join(shown, "\n"),
		"total_lines": len(lines),
		"lines_shown": len(shown),
		"truncated":   len(lines) > len(shown),
	}, nil
}

func (r *Registry) writeFile(_ context.Context, in writeFileArgs) (map[string]any, error) {
	p := r.resolvePath(in.Path)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("create parent of %s: %w", p, err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	mode := "written"
	if in.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		mode = "appended"
	}
	f, err := os.OpenFile(p, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	n, err := f.WriteString(in.Content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", p, err)
	}
	return map[string]any{"status": mode, "path": p, "bytes_written": n}, nil
}

func (r *Registry) deleteFile(_ context.Context, in pathArgs) (map[string]any, error) {
	p := r.resolvePath(in.Path)
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", p)
		}
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	if err := os.Remove(p); err != nil {
		return nil, fmt.Errorf("delete %s: %w", p, err)
	}
	return map[string]any{"status": "deleted", "path": p}, nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	v := float64(n) / unit
	i := 0
	for v >= unit && i < len(units)-1 {
		v /= unit
		i++
	}
	return fmt.Sprintf("%.1f %s", v, units[i])
}
