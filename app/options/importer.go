package options

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/media"
	"github.com/lysyi3m/demo-importer/app/phpserial"
	"github.com/lysyi3m/demo-importer/app/profile"
)

// Importer loads theme mods, theme options, template options and widgets
// from a profile's data files into the options table.
type Importer struct {
	store    database.OptionRepository
	rewriter *media.UploadsRewriter
	profile  *profile.Profile
}

func NewImporter(store database.OptionRepository, rewriter *media.UploadsRewriter, p *profile.Profile) *Importer {
	return &Importer{
		store:    store,
		rewriter: rewriter,
		profile:  p,
	}
}

// ImportThemeMods stores the whole mods file under theme_mods_<theme slug>.
func (im *Importer) ImportThemeMods(ctx context.Context) error {
	data, err := im.load(im.profile.FileWithMods)
	if err != nil || data == nil {
		return err
	}

	name := "theme_mods_" + im.profile.ThemeSlug
	if err := im.store.UpdateOption(ctx, name, encodeValue(data)); err != nil {
		return err
	}

	slog.Info("Theme mods imported", "option", name)
	return nil
}

func (im *Importer) ImportThemeOptions(ctx context.Context) error {
	return im.importEach(ctx, "theme options", im.profile.FileWithOptions)
}

func (im *Importer) ImportTemplates(ctx context.Context) error {
	return im.importEach(ctx, "template options", im.profile.FileWithTemplates)
}

func (im *Importer) ImportWidgets(ctx context.Context) error {
	return im.importEach(ctx, "widgets", im.profile.FileWithWidgets)
}

// importEach stores every top-level entry of file as its own option.
func (im *Importer) importEach(ctx context.Context, label, file string) error {
	data, err := im.load(file)
	if err != nil || data == nil {
		return err
	}

	names, values, err := entries(data)
	if err != nil {
		return fmt.Errorf("invalid %s file: %w", label, err)
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := im.store.UpdateOption(ctx, name, encodeValue(values[i])); err != nil {
			return err
		}
	}

	slog.Info("Options imported", "kind", label, "count", len(names))
	return nil
}

// load reads a profile data file and rewrites upload URLs in every string.
// An unset file yields nil.
func (im *Importer) load(file string) (any, error) {
	if file == "" {
		return nil, nil
	}

	data, err := ReadDataFile(im.profile.Resolve(file))
	if err != nil {
		return nil, err
	}
	return phpserial.MapStrings(data, im.rewriter.Rewrite), nil
}
