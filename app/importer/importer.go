package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/media"
	"github.com/lysyi3m/demo-importer/app/wxr"
)

var ErrValidation = errors.New("validation failed")

type State int32

const (
	StateNotStarted State = iota
	StateProcessingTaxonomies
	StateProcessingPosts
	StateBackfilling
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateProcessingTaxonomies:
		return "processing_taxonomies"
	case StateProcessingPosts:
		return "processing_posts"
	case StateBackfilling:
		return "backfilling"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// FatalError aborts a run. Retrying the same chunk will not help.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one chunk. Percent is 100 when the run is finished or failed.
type Result struct {
	Percent int
	LastID  int64
	Err     error
}

type Options struct {
	PostsAtOnce int
	// TimeBudget is the execution time allowed for one chunk. Values under 30s count as 30s.
	TimeBudget       time.Duration
	FetchAttachments bool
	Overwrite        bool
	CreateUsers      bool
	DefaultAuthor    int64
	// PostTypes are accepted in addition to the built-in ones.
	PostTypes []string
	// Taxonomies maps a post type to its taxonomy; the post types are accepted as well.
	Taxonomies map[string]string
	DemoURL    string
	SiteURL    string
	ImageSizes []media.ImageSize
}

// AttachmentFetcher downloads a remote file to a local path.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, url, dest string) (*media.FetchResult, error)
}

type Importer struct {
	store      database.ContentStore
	checkpoint *CheckpointLog
	rewriter   *media.UploadsRewriter
	fetcher    AttachmentFetcher
	opts       Options
	state      atomic.Int32
	now        func() time.Time
}

func New(store database.ContentStore, checkpoint *CheckpointLog, rewriter *media.UploadsRewriter, fetcher AttachmentFetcher, opts Options) *Importer {
	if opts.PostsAtOnce <= 0 {
		opts.PostsAtOnce = 10
	}
	if opts.DefaultAuthor <= 0 {
		opts.DefaultAuthor = 1
	}
	return &Importer{
		store:      store,
		checkpoint: checkpoint,
		rewriter:   rewriter,
		fetcher:    fetcher,
		opts:       opts,
		now:        time.Now,
	}
}

func (im *Importer) State() State {
	return State(im.state.Load())
}

func (im *Importer) setState(s State) {
	im.state.Store(int32(s))
}

func (im *Importer) Checkpoint() (Checkpoint, error) {
	return im.checkpoint.Read()
}

// RunFile parses the export file at path and runs one chunk of it.
func (im *Importer) RunFile(ctx context.Context, path string) Result {
	doc, err := wxr.NewParser().ParseFile(path)
	if err != nil {
		return im.fail("parse", err)
	}
	return im.Run(ctx, doc)
}

// Run imports the next chunk of doc, resuming after the stored checkpoint.
// Callers repeat it until Percent reaches 100.
func (im *Importer) Run(ctx context.Context, doc *wxr.Document) Result {
	started := im.now()

	cp, err := im.checkpoint.Read()
	if err != nil {
		return im.fail("read checkpoint", err)
	}

	if cp.LastID == 0 {
		if err := im.store.ClearState(ctx); err != nil {
			return im.fail("clear run state", err)
		}
	}

	state := NewRunState(im.store)
	if err := state.Load(ctx); err != nil {
		return im.fail("load run state", err)
	}

	r := &run{im: im, doc: doc, state: state, start: cp.LastID}

	if err := r.mapAuthors(ctx); err != nil {
		return im.fail("map authors", err)
	}

	if cp.LastID == 0 {
		im.setState(StateProcessingTaxonomies)
		if err := r.processTaxonomies(ctx); err != nil {
			return im.fail("process taxonomies", err)
		}
	}

	im.setState(StateProcessingPosts)
	percent, lastID, err := r.processPosts(ctx, started)
	if err != nil {
		return im.fail("process posts", err)
	}

	if percent >= 100 {
		im.setState(StateBackfilling)
		if err := r.backfill(ctx); err != nil {
			return im.fail("backfill", err)
		}
		if err := im.store.RecountTerms(ctx); err != nil {
			slog.Warn("Failed to recount terms", "error", err)
		}
		if err := im.store.ClearState(ctx); err != nil {
			return im.fail("clear run state", err)
		}
		if err := im.checkpoint.Clear(); err != nil {
			return im.fail("clear checkpoint", err)
		}
		im.setState(StateFinished)
	}

	slog.Info("Import chunk finished",
		"from_id", cp.LastID,
		"last_id", lastID,
		"percent", percent,
		"duration", im.now().Sub(started))

	return Result{Percent: percent, LastID: lastID}
}

func (im *Importer) fail(op string, err error) Result {
	im.setState(StateError)
	slog.Error("Import failed", "operation", op, "error", err)
	return Result{Percent: 100, Err: &FatalError{Op: op, Err: err}}
}

// maxTime is the share of the time budget a chunk may spend on posts.
func maxTime(budget time.Duration) time.Duration {
	tm := max(30, int64(math.Round(budget.Seconds())))
	return time.Duration(tm-min(10, int64(math.Round(float64(tm)*0.33)))) * time.Second
}

func percentOf(counter, total int) int {
	if counter >= total {
		return 100
	}
	return min(99, int(math.Round(float64(counter)/float64(total)*100)))
}

func (im *Importer) validPostType(postType string) bool {
	switch postType {
	case "post", "page", "attachment", "revision", "nav_menu_item":
		return true
	}
	if slices.Contains(im.opts.PostTypes, postType) {
		return true
	}
	_, ok := im.opts.Taxonomies[postType]
	return ok
}

// run holds what one call of Run works on.
type run struct {
	im    *Importer
	doc   *wxr.Document
	state *RunState
	start int64
}

func (r *run) processPosts(ctx context.Context, started time.Time) (int, int64, error) {
	posts := make([]*wxr.Post, len(r.doc.Posts))
	for i := range r.doc.Posts {
		posts[i] = &r.doc.Posts[i]
	}
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })

	budget := maxTime(r.im.opts.TimeBudget)
	total := len(posts)
	lastID := r.start
	processed := 0

	for i, post := range posts {
		if post.ID <= r.start {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, lastID, err
		}

		if err := r.processPost(ctx, post); err != nil {
			return 0, lastID, err
		}

		lastID = max(post.ID, r.start)
		percent := percentOf(i+1, total)
		if err := r.im.checkpoint.Write(Checkpoint{LastID: lastID, Percent: percent}); err != nil {
			return 0, lastID, err
		}

		slog.Debug("Post processed",
			"post_id", post.ID,
			"percent", percent,
			"elapsed", r.im.now().Sub(started))

		processed++
		if processed >= r.im.opts.PostsAtOnce || r.im.now().Sub(started) >= budget {
			return percent, lastID, nil
		}
	}

	return 100, lastID, nil
}
