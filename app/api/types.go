package api

import (
	"context"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/profile"
	"github.com/lysyi3m/demo-importer/app/shortcode"
	"github.com/lysyi3m/demo-importer/app/tasks"
)

type StatsProvider interface {
	Stats(ctx context.Context) (*database.Stats, error)
}

type ProfileCounter interface {
	GetProfileCount() int
}

type RendererInterface interface {
	Render(content string) string
}

var (
	_ StatsProvider     = (*database.Store)(nil)
	_ ProfileCounter    = (*profile.Cache)(nil)
	_ RendererInterface = (*shortcode.Registry)(nil)
)

type Handler struct {
	store      StatsProvider
	profiles   ProfileCounter
	dispatcher *tasks.Dispatcher
	scheduler  tasks.TaskSchedulerInterface
	renderer   RendererInterface
	exportDir  string
	version    string
}

type renderRequest struct {
	Content string `form:"content" json:"content"`
}
