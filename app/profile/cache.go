package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var defaultAdditionalOptions = []string{
	"blogname",
	"blogdescription",
	"posts_per_page",
	"show_on_front",
	"page_on_front",
	"page_for_posts",
}

type Cache struct {
	profilesDir string
	cache       map[string]*Profile
	mu          sync.RWMutex
}

func NewCache(profilesDir string) *Cache {
	return &Cache{
		profilesDir: profilesDir,
		cache:       make(map[string]*Profile),
	}
}

func (c *Cache) Run() error {
	if _, err := os.Stat(c.profilesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.profilesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		p, err := c.LoadProfile(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Profile loaded", "profile", name, "theme", p.ThemeSlug, "data_type", p.DataType, "posts_at_once", p.PostsAtOnce)
	}

	return nil
}

func (c *Cache) LoadProfile(name string) (*Profile, error) {
	file := c.getProfilePath(name)
	p, err := c.parseProfile(file)
	if err != nil {
		return nil, err
	}

	p.Name = name
	p.Dir = c.profilesDir

	if err := c.validateProfile(p); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", file, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[p.Name] = p

	return p, nil
}

func (c *Cache) GetProfile(name string) (*Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.cache[name]
	if !ok {
		return nil, fmt.Errorf("profile with name '%s' not found", name)
	}
	return p, nil
}

func (c *Cache) GetProfiles() map[string]*Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	profiles := make(map[string]*Profile, len(c.cache))
	for k, v := range c.cache {
		profiles[k] = v
	}
	return profiles
}

// Names returns the loaded profile names in sorted order.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.cache))
	for k := range c.cache {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (c *Cache) GetProfileCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) parseProfile(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if p.PostsAtOnce == 0 {
		p.PostsAtOnce = 10
	}
	if p.DataType == "" {
		p.DataType = DataTypeVC
	}
	if p.UploadsFolder == "" {
		p.UploadsFolder = "imports"
	}
	if p.DefaultAuthor == 0 {
		p.DefaultAuthor = 1
	}
	if p.AdditionalOptions == nil {
		p.AdditionalOptions = append([]string(nil), defaultAdditionalOptions...)
	}

	return &p, nil
}

func (c *Cache) validateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}

	requiredFields := map[string]string{
		"profile name": p.Name,
		"theme slug":   p.ThemeSlug,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if p.FileWithContent.VC == "" && p.FileWithContent.NoVC == "" {
		return fmt.Errorf("file with content is required")
	}

	if p.DataType != DataTypeVC && p.DataType != DataTypeNoVC {
		return fmt.Errorf("invalid data type: %s", p.DataType)
	}

	nonNegativeFields := map[string]int64{
		"posts at once":  int64(p.PostsAtOnce),
		"default author": p.DefaultAuthor,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if strings.ContainsAny(p.UploadsFolder, `/\`) {
		return fmt.Errorf("uploads folder must be a single path segment: %s", p.UploadsFolder)
	}

	for i, size := range p.ImageSizes {
		if size.Name == "" {
			return fmt.Errorf("image size at index %d must have a name", i)
		}
		if size.Width < 0 || size.Height < 0 {
			return fmt.Errorf("image size %s must have non-negative dimensions", size.Name)
		}
		if size.Width == 0 && size.Height == 0 {
			return fmt.Errorf("image size %s must have a width or a height", size.Name)
		}
	}

	for postType, taxonomy := range p.Taxonomies {
		if postType == "" || taxonomy == "" {
			return fmt.Errorf("taxonomy mapping %q => %q must name both sides", postType, taxonomy)
		}
	}

	return nil
}

func (c *Cache) getProfilePath(name string) string {
	return filepath.Join(c.profilesDir, name+".yml")
}
