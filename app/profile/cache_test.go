package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCacheLoadValidProfile(t *testing.T) {
	tempDir := t.TempDir()

	content := `
theme_slug: rosemary
posts_at_once: 25
data_type: no_vc
file_with_content:
  vc: demo/dummy_data_vc.xml
  no_vc: demo/dummy_data.xml
file_with_mods: demo/theme_mods.yml
uploads_folder: imports
domain_dev: rosemary.dev.example.com
domain_demo: rosemary.example.com
post_types:
  - team
taxonomies:
  team: team_group
create_users: true
image_sizes:
  - name: thumbnail
    width: 150
    height: 150
    crop: true
  - name: medium
    width: 300
`
	writeProfile(t, tempDir, "rosemary", content)

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if cache.GetProfileCount() != 1 {
		t.Errorf("Expected 1 profile, got %d", cache.GetProfileCount())
	}

	p, err := cache.GetProfile("rosemary")
	if err != nil {
		t.Fatal(err)
	}

	if p.Name != "rosemary" {
		t.Errorf("Expected name 'rosemary', got '%s'", p.Name)
	}
	if p.PostsAtOnce != 25 {
		t.Errorf("Expected posts at once 25, got %d", p.PostsAtOnce)
	}
	if p.Taxonomies["team"] != "team_group" {
		t.Errorf("Expected team taxonomy 'team_group', got '%s'", p.Taxonomies["team"])
	}
	if len(p.ImageSizes) != 2 || !p.ImageSizes[0].Crop || p.ImageSizes[1].Height != 0 {
		t.Errorf("Unexpected image sizes: %+v", p.ImageSizes)
	}
	if got := p.ContentFile(""); got != filepath.Join(tempDir, "demo/dummy_data.xml") {
		t.Errorf("Expected no_vc content file, got '%s'", got)
	}
	if got := p.ContentFile(DataTypeVC); got != filepath.Join(tempDir, "demo/dummy_data_vc.xml") {
		t.Errorf("Expected vc content file, got '%s'", got)
	}
	if got := p.DemoURL(); got != "http://rosemary.example.com/" {
		t.Errorf("Expected demo URL 'http://rosemary.example.com/', got '%s'", got)
	}
	if got := p.OptionsPrefix(); got != "rosemary_options" {
		t.Errorf("Expected options prefix 'rosemary_options', got '%s'", got)
	}
}

func TestCacheLoadProfileWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	content := `
theme_slug: rosemary
file_with_content:
  no_vc: demo/dummy_data.xml
`
	writeProfile(t, tempDir, "minimal", content)

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	p, err := cache.GetProfile("minimal")
	if err != nil {
		t.Fatal(err)
	}

	if p.PostsAtOnce != 10 {
		t.Errorf("Expected default posts at once 10, got %d", p.PostsAtOnce)
	}
	if p.DataType != DataTypeVC {
		t.Errorf("Expected default data type 'vc', got '%s'", p.DataType)
	}
	if p.UploadsFolder != "imports" {
		t.Errorf("Expected default uploads folder 'imports', got '%s'", p.UploadsFolder)
	}
	if p.DefaultAuthor != 1 {
		t.Errorf("Expected default author 1, got %d", p.DefaultAuthor)
	}
	if len(p.AdditionalOptions) != len(defaultAdditionalOptions) {
		t.Errorf("Expected %d additional options, got %d", len(defaultAdditionalOptions), len(p.AdditionalOptions))
	}
	// vc is preferred but missing, so the no_vc document is used
	if got := p.ContentFile(""); got != filepath.Join(tempDir, "demo/dummy_data.xml") {
		t.Errorf("Expected fallback content file, got '%s'", got)
	}
	if p.DemoURL() != "" {
		t.Errorf("Expected empty demo URL, got '%s'", p.DemoURL())
	}
}

func TestCacheInvalidProfiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing theme slug",
			content: "file_with_content:\n  vc: demo/a.xml\n",
			want:    "theme slug is required",
		},
		{
			name:    "missing content file",
			content: "theme_slug: rosemary\n",
			want:    "file with content is required",
		},
		{
			name:    "unknown data type",
			content: "theme_slug: rosemary\ndata_type: elementor\nfile_with_content:\n  vc: demo/a.xml\n",
			want:    "invalid data type",
		},
		{
			name:    "negative posts at once",
			content: "theme_slug: rosemary\nposts_at_once: -1\nfile_with_content:\n  vc: demo/a.xml\n",
			want:    "posts at once must be non-negative",
		},
		{
			name:    "nested uploads folder",
			content: "theme_slug: rosemary\nuploads_folder: a/b\nfile_with_content:\n  vc: demo/a.xml\n",
			want:    "single path segment",
		},
		{
			name:    "image size without dimensions",
			content: "theme_slug: rosemary\nfile_with_content:\n  vc: demo/a.xml\nimage_sizes:\n  - name: empty\n",
			want:    "must have a width or a height",
		},
		{
			name:    "malformed yaml",
			content: "theme_slug: [rosemary\n",
			want:    "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeProfile(t, tempDir, "broken", tt.content)

			cache := NewCache(tempDir)
			err := cache.Run()
			if err == nil {
				t.Fatal("Expected error for invalid profile")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing '%s', got '%v'", tt.want, err)
			}
		})
	}
}

func TestCacheMissingDirectory(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "missing"))
	if err := cache.Run(); err != nil {
		t.Fatalf("Expected missing directory to be ignored, got %v", err)
	}
	if cache.GetProfileCount() != 0 {
		t.Errorf("Expected 0 profiles, got %d", cache.GetProfileCount())
	}
	if _, err := cache.GetProfile("rosemary"); err == nil {
		t.Error("Expected error for unknown profile")
	}
}

func TestCacheNamesSorted(t *testing.T) {
	tempDir := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		writeProfile(t, tempDir, name, "theme_slug: "+name+"\nfile_with_content:\n  vc: demo.xml\n")
	}

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	names := cache.Names()
	if strings.Join(names, ",") != "alpha,mid,zeta" {
		t.Errorf("Expected sorted names, got %v", names)
	}
	if len(cache.GetProfiles()) != 3 {
		t.Errorf("Expected 3 profiles, got %d", len(cache.GetProfiles()))
	}
}
