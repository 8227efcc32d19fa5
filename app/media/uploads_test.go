package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUploadsRewriterRewrite(t *testing.T) {
	r := NewUploadsRewriter("imports", "http://site.test/uploads/", "/var/www/uploads")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "absolute url",
			input:    `<img src="http://demo.example.com/wp-content/imports/2015/05/photo.jpg">`,
			expected: `<img src="http://site.test/uploads/2015/05/photo.jpg">`,
		},
		{
			name:     "protocol relative with subdirectory install",
			input:    "//demo.example.com/theme/wp-content/imports/a.png",
			expected: "http://site.test/uploads/a.png",
		},
		{
			name:     "two urls in one string",
			input:    "https://a.test/wp-content/imports/1.jpg https://b.test/wp-content/imports/2.jpg",
			expected: "http://site.test/uploads/1.jpg http://site.test/uploads/2.jpg",
		},
		{
			name:     "other folder untouched",
			input:    "http://demo.example.com/wp-content/uploads/x.jpg",
			expected: "http://demo.example.com/wp-content/uploads/x.jpg",
		},
		{
			name:     "plain text",
			input:    "no urls here",
			expected: "no urls here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Rewrite(tt.input); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestUploadsRewriterLocalPath(t *testing.T) {
	r := NewUploadsRewriter("imports", "http://site.test/uploads", "/var/www/uploads")

	path, ok := r.LocalPath("http://site.test/uploads/2015/05/photo.jpg")
	if !ok {
		t.Fatal("Expected local path to resolve")
	}
	if path != filepath.Join("/var/www/uploads", "2015", "05", "photo.jpg") {
		t.Errorf("Unexpected local path '%s'", path)
	}
	if rel := r.Relative(path); rel != "2015/05/photo.jpg" {
		t.Errorf("Expected relative path '2015/05/photo.jpg', got '%s'", rel)
	}
	if url := r.URLFor(path); url != "http://site.test/uploads/2015/05/photo.jpg" {
		t.Errorf("Unexpected url '%s'", url)
	}

	if _, ok := r.LocalPath("http://elsewhere.test/photo.jpg"); ok {
		t.Error("Expected foreign url not to resolve")
	}
	path, _ = r.LocalPath("http://site.test/uploads/../../etc/passwd")
	if path != filepath.Join("/var/www/uploads", "etc", "passwd") {
		t.Errorf("Expected path to stay inside uploads, got '%s'", path)
	}
}

func TestUniqueFilename(t *testing.T) {
	dir := t.TempDir()

	if got := UniqueFilename(dir, "photo.jpg"); got != "photo.jpg" {
		t.Errorf("Expected 'photo.jpg', got '%s'", got)
	}

	for _, name := range []string{"photo.jpg", "photo-1.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := UniqueFilename(dir, "photo.jpg"); got != "photo-2.jpg" {
		t.Errorf("Expected 'photo-2.jpg', got '%s'", got)
	}
}
