package media

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// UploadsRewriter maps demo upload URLs onto the local uploads location.
type UploadsRewriter struct {
	folder  string
	url     string
	dir     string
	pattern *regexp.Regexp
}

func NewUploadsRewriter(folder, uploadsURL, uploadsDir string) *UploadsRewriter {
	if folder == "" {
		folder = "uploads"
	}
	return &UploadsRewriter{
		folder:  folder,
		url:     strings.TrimRight(uploadsURL, "/"),
		dir:     filepath.Clean(uploadsDir),
		pattern: regexp.MustCompile(`(?:https?:)?//[^/\s"'<>]+(?:/[^\s"'<>]*?)?/wp-content/` + regexp.QuoteMeta(folder) + `/`),
	}
}

func (r *UploadsRewriter) Folder() string { return r.folder }
func (r *UploadsRewriter) URL() string    { return r.url }
func (r *UploadsRewriter) Dir() string    { return r.dir }

// Rewrite replaces every demo uploads prefix in s with the local uploads URL.
func (r *UploadsRewriter) Rewrite(s string) string {
	if !strings.Contains(s, "/wp-content/"+r.folder+"/") {
		return s
	}
	return r.pattern.ReplaceAllLiteralString(s, r.url+"/")
}

// LocalPath returns the filesystem path behind a URL under the uploads URL.
func (r *UploadsRewriter) LocalPath(localURL string) (string, bool) {
	rel, ok := strings.CutPrefix(localURL, r.url+"/")
	if !ok {
		return "", false
	}
	rel = path.Clean("/" + rel)
	if rel == "/" {
		return "", false
	}
	return filepath.Join(r.dir, filepath.FromSlash(rel)), true
}

// URLFor is the inverse of LocalPath.
func (r *UploadsRewriter) URLFor(localPath string) string {
	return r.url + "/" + r.Relative(localPath)
}

// Relative returns localPath relative to the uploads directory using forward slashes.
func (r *UploadsRewriter) Relative(localPath string) string {
	rel, err := filepath.Rel(r.dir, localPath)
	if err != nil {
		return filepath.ToSlash(localPath)
	}
	return filepath.ToSlash(rel)
}

// DatedDir returns uploads/YYYY/MM, creating it if needed.
func (r *UploadsRewriter) DatedDir(year, month string) (string, error) {
	dir := filepath.Join(r.dir, year, month)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return dir, nil
}

// UniqueFilename returns name, or name-N when a file of that name already exists in dir.
func UniqueFilename(dir, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for counter := 1; ; counter++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, counter, ext)
	}
}
