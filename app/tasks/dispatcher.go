package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/demo-importer/app/importer"
	"github.com/lysyi3m/demo-importer/app/media"
	"github.com/lysyi3m/demo-importer/app/options"
	"github.com/lysyi3m/demo-importer/app/profile"
	"github.com/lysyi3m/demo-importer/app/wxr"
)

const (
	ActionImportStart   = "import_start"
	ActionImportPosts   = "import_posts"
	ActionImportMods    = "import_tm"
	ActionImportOptions = "import_to"
	ActionImportTpl     = "import_tpl"
	ActionImportWidgets = "import_widgets"
	ActionImportEnd     = "import_end"
)

// Request is one importer action as posted by the admin client.
type Request struct {
	Action           string `form:"importer_action" json:"importer_action"`
	DataType         string `form:"data_type" json:"data_type"`
	FetchAttachments bool   `form:"fetch_attachments" json:"fetch_attachments"`
	ClearTables      string `form:"clear_tables" json:"clear_tables"`
	LastID           int64  `form:"last_id" json:"last_id"`

	// resume keeps the checkpoint even when LastID is 0.
	resume bool
}

// Response reports progress back to the client, which keeps calling
// import_posts until Result reaches 100.
type Response struct {
	Action  string `json:"action"`
	Error   bool   `json:"error"`
	Message string `json:"message,omitempty"`
	Result  int    `json:"result"`
}

type DispatcherOptions struct {
	TimeBudget time.Duration
	Overwrite  bool
	SiteURL    string
	Version    string
}

// Dispatcher runs importer actions for one profile, one at a time.
type Dispatcher struct {
	store      ContentStore
	profile    *profile.Profile
	checkpoint *importer.CheckpointLog
	rewriter   *media.UploadsRewriter
	fetcher    importer.AttachmentFetcher
	opts       DispatcherOptions

	mu      sync.Mutex
	current *importer.Importer
	running atomic.Bool
}

func NewDispatcher(store ContentStore, p *profile.Profile, checkpoint *importer.CheckpointLog,
	rewriter *media.UploadsRewriter, fetcher importer.AttachmentFetcher, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		store:      store,
		profile:    p,
		checkpoint: checkpoint,
		rewriter:   rewriter,
		fetcher:    fetcher,
		opts:       opts,
	}
}

func (d *Dispatcher) Profile() *profile.Profile {
	return d.profile
}

// BeginRun marks a background run as active. It reports false when one already is.
func (d *Dispatcher) BeginRun() bool {
	return d.running.CompareAndSwap(false, true)
}

func (d *Dispatcher) EndRun() {
	d.running.Store(false)
}

func (d *Dispatcher) RunActive() bool {
	return d.running.Load()
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	resp := Response{Action: req.Action, Result: 100}
	started := time.Now()

	var err error
	switch req.Action {
	case ActionImportStart:
		err = d.start(ctx, req)
	case ActionImportPosts:
		result := d.importPosts(ctx, req)
		resp.Result = result.Percent
		err = result.Err
	case ActionImportMods:
		err = d.optionsImporter().ImportThemeMods(ctx)
	case ActionImportOptions:
		err = d.optionsImporter().ImportThemeOptions(ctx)
	case ActionImportTpl:
		err = d.optionsImporter().ImportTemplates(ctx)
	case ActionImportWidgets:
		err = d.optionsImporter().ImportWidgets(ctx)
	case ActionImportEnd:
		err = d.end(ctx)
	default:
		err = fmt.Errorf("unknown importer action: %q", req.Action)
	}

	if err != nil {
		resp.Error = true
		resp.Message = err.Error()
		slog.Error("Importer action failed", "action", req.Action, "profile", d.profile.Name, "error", err)
		return resp
	}

	slog.Debug("Importer action finished", "action", req.Action, "result", resp.Result, "duration", time.Since(started))
	return resp
}

// RunChunk runs one import_posts chunk and returns the importer's result.
func (d *Dispatcher) RunChunk(ctx context.Context, req Request) importer.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.importPosts(ctx, req)
}

// Status returns the stored checkpoint and the state of the last importer.
func (d *Dispatcher) Status() (importer.Checkpoint, importer.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := importer.StateNotStarted
	if d.current != nil {
		state = d.current.State()
	}
	cp, err := d.checkpoint.Read()
	return cp, state, err
}

// Export writes the options files and the content document to dir.
func (d *Dispatcher) Export(ctx context.Context, dir string) (*options.ExportResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := options.NewExporter(d.store, d.profile, dir).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export options: %w", err)
	}

	exporter := options.NewContentExporter(d.store, wxr.NewGenerator(d.opts.Version), d.opts.SiteURL, d.profile.Name)
	result.Content, err = exporter.Run(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to export content: %w", err)
	}
	return result, nil
}

func (d *Dispatcher) start(ctx context.Context, req Request) error {
	if !strings.Contains(req.ClearTables, "posts") {
		return nil
	}

	cp, err := d.checkpoint.Read()
	if err != nil {
		return err
	}
	if cp.LastID != 0 {
		slog.Info("Import in progress, tables kept", "last_id", cp.LastID)
		return nil
	}

	if err := d.store.Truncate(ctx); err != nil {
		return err
	}
	slog.Info("Content tables cleared", "profile", d.profile.Name)
	return d.checkpoint.Clear()
}

func (d *Dispatcher) importPosts(ctx context.Context, req Request) importer.Result {
	if req.LastID == 0 && !req.resume {
		if err := d.checkpoint.Clear(); err != nil {
			return importer.Result{Percent: 100, Err: &importer.FatalError{Op: "clear checkpoint", Err: err}}
		}
	}

	d.current = importer.New(d.store, d.checkpoint, d.rewriter, d.fetcher, importer.Options{
		PostsAtOnce:      d.profile.PostsAtOnce,
		TimeBudget:       d.opts.TimeBudget,
		FetchAttachments: req.FetchAttachments,
		Overwrite:        d.opts.Overwrite,
		CreateUsers:      d.profile.CreateUsers,
		DefaultAuthor:    d.profile.DefaultAuthor,
		PostTypes:        d.profile.PostTypes,
		Taxonomies:       d.profile.Taxonomies,
		DemoURL:          d.profile.DemoURL(),
		SiteURL:          d.opts.SiteURL,
		ImageSizes:       d.profile.ImageSizes,
	})

	return d.current.RunFile(ctx, d.profile.ContentFile(req.DataType))
}

func (d *Dispatcher) end(ctx context.Context) error {
	if err := d.store.Optimize(ctx); err != nil {
		return err
	}
	return d.checkpoint.Clear()
}

func (d *Dispatcher) optionsImporter() *options.Importer {
	return options.NewImporter(d.store, d.rewriter, d.profile)
}
