package profile

import (
	"path/filepath"
	"strings"

	"github.com/lysyi3m/demo-importer/app/media"
)

const (
	DataTypeVC   = "vc"
	DataTypeNoVC = "no_vc"
)

// Profile describes one theme's demo data set.
type Profile struct {
	Name string // Derived from filename (without .yml extension)
	Dir  string // Directory relative file paths resolve against

	PostsAtOnce       int               `yaml:"posts_at_once"`
	DataType          string            `yaml:"data_type"`
	FileWithContent   ContentFiles      `yaml:"file_with_content"`
	FileWithMods      string            `yaml:"file_with_mods"`
	FileWithOptions   string            `yaml:"file_with_options"`
	FileWithTemplates string            `yaml:"file_with_templates"`
	FileWithWidgets   string            `yaml:"file_with_widgets"`
	UploadsFolder     string            `yaml:"uploads_folder"`
	DomainDev         string            `yaml:"domain_dev"`
	DomainDemo        string            `yaml:"domain_demo"`
	PostTypes         []string          `yaml:"post_types"`
	Taxonomies        map[string]string `yaml:"taxonomies"` // post type => taxonomy
	AdditionalOptions []string          `yaml:"additional_options"`
	ThemeSlug         string            `yaml:"theme_slug"`
	DefaultAuthor     int64             `yaml:"default_author"`
	CreateUsers       bool              `yaml:"create_users"`
	ImageSizes        []media.ImageSize `yaml:"image_sizes"`
}

type ContentFiles struct {
	VC   string `yaml:"vc"`
	NoVC string `yaml:"no_vc"`
}

// ContentFile returns the export document for dataType, falling back to the other variant.
func (p *Profile) ContentFile(dataType string) string {
	if dataType == "" {
		dataType = p.DataType
	}
	file := p.FileWithContent.NoVC
	fallback := p.FileWithContent.VC
	if dataType == DataTypeVC {
		file, fallback = fallback, file
	}
	if file == "" {
		file = fallback
	}
	return p.Resolve(file)
}

// Resolve makes a profile-relative path absolute. Empty stays empty.
func (p *Profile) Resolve(file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(p.Dir, file)
}

// DemoURL is the site root the demo content was exported from.
func (p *Profile) DemoURL() string {
	if p.DomainDemo == "" {
		return ""
	}
	if strings.Contains(p.DomainDemo, "://") {
		return strings.TrimSuffix(p.DomainDemo, "/") + "/"
	}
	return "http://" + strings.TrimSuffix(p.DomainDemo, "/") + "/"
}

// OptionsPrefix is the option name prefix theme options are stored under.
func (p *Profile) OptionsPrefix() string {
	return p.ThemeSlug + "_options"
}
