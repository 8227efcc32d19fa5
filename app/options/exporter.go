package options

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/phpserial"
	"github.com/lysyi3m/demo-importer/app/profile"
)

const (
	ModsFile      = "theme_mods.yml"
	OptionsFile   = "theme_options.yml"
	TemplatesFile = "templates_options.yml"
	WidgetsFile   = "widgets.yml"
)

// ExportResult lists the files written by an export.
type ExportResult struct {
	Mods      string `json:"mods"`
	Options   string `json:"options"`
	Templates string `json:"templates"`
	Widgets   string `json:"widgets"`
	Content   string `json:"content,omitempty"`
}

// Exporter writes the options an Importer reads back.
type Exporter struct {
	store   database.OptionRepository
	profile *profile.Profile
	outDir  string
}

func NewExporter(store database.OptionRepository, p *profile.Profile, outDir string) *Exporter {
	return &Exporter{
		store:   store,
		profile: p,
		outDir:  outDir,
	}
}

func (e *Exporter) Run(ctx context.Context) (*ExportResult, error) {
	result := &ExportResult{
		Mods:      filepath.Join(e.outDir, ModsFile),
		Options:   filepath.Join(e.outDir, OptionsFile),
		Templates: filepath.Join(e.outDir, TemplatesFile),
		Widgets:   filepath.Join(e.outDir, WidgetsFile),
	}

	mods, err := e.exportMods(ctx)
	if err != nil {
		return nil, err
	}
	if err := WriteDataFile(result.Mods, mods); err != nil {
		return nil, err
	}

	prefix := e.profile.OptionsPrefix()
	themeOptions, err := e.collect(ctx, true, prefix+"%")
	if err != nil {
		return nil, err
	}
	for _, pattern := range e.profile.AdditionalOptions {
		extra, err := e.collect(ctx, false, pattern)
		if err != nil {
			return nil, err
		}
		for i, k := range extra.Keys {
			themeOptions.Set(k, extra.Values[i])
		}
	}
	if err := WriteDataFile(result.Options, e.prepareDomains(themeOptions)); err != nil {
		return nil, err
	}

	templates, err := e.collect(ctx, true, prefix+"_template_%")
	if err != nil {
		return nil, err
	}
	if err := WriteDataFile(result.Templates, e.prepareDomains(templates)); err != nil {
		return nil, err
	}

	widgets, err := e.collect(ctx, true, "sidebars_widgets", "widget_%")
	if err != nil {
		return nil, err
	}
	if err := WriteDataFile(result.Widgets, e.prepareDomains(widgets)); err != nil {
		return nil, err
	}

	slog.Info("Options exported", "profile", e.profile.Name, "dir", e.outDir,
		"options", themeOptions.Len(), "templates", templates.Len(), "widgets", widgets.Len())
	return result, nil
}

func (e *Exporter) exportMods(ctx context.Context) (any, error) {
	raw, ok, err := e.store.GetOption(ctx, "theme_mods_"+e.profile.ThemeSlug)
	if err != nil {
		return nil, err
	}
	if !ok {
		return phpserial.NewArray(), nil
	}
	return e.prepareDomains(decodeValue(raw)), nil
}

// collect gathers options matching any of the LIKE patterns into one array.
func (e *Exporter) collect(ctx context.Context, uploads bool, patterns ...string) (*phpserial.Array, error) {
	out := phpserial.NewArray()
	for _, pattern := range patterns {
		rows, err := e.store.ListOptions(ctx, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to export options %s: %w", pattern, err)
		}
		for _, row := range rows {
			v := decodeValue(row.Value)
			if uploads {
				v = e.prepareUploads(v)
			}
			out.Set(row.Name, v)
		}
	}
	return out, nil
}

// prepareUploads points /uploads/ paths at the demo uploads folder.
func (e *Exporter) prepareUploads(v any) any {
	folder := e.profile.UploadsFolder
	if folder == "" || folder == "uploads" {
		return v
	}
	return phpserial.MapStrings(v, func(s string) string {
		return strings.ReplaceAll(s, "/uploads/", "/"+folder+"/")
	})
}

// prepareDomains swaps the development domain for the demo domain.
func (e *Exporter) prepareDomains(v any) any {
	dev, demo := e.profile.DomainDev, e.profile.DomainDemo
	if dev == "" || dev == demo {
		return v
	}
	return phpserial.MapStrings(v, func(s string) string {
		return strings.ReplaceAll(s, dev, demo)
	})
}
