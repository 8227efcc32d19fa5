package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/importer"
	"github.com/lysyi3m/demo-importer/app/media"
	"github.com/lysyi3m/demo-importer/app/profile"
)

type testEnv struct {
	dir        string
	store      *database.Store
	checkpoint *importer.CheckpointLog
	dispatcher *Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := database.Open(filepath.Join(dir, "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	testdata, err := filepath.Abs("../wxr/testdata")
	require.NoError(t, err)

	modsFile := filepath.Join(dir, "theme_mods.yml")
	require.NoError(t, os.WriteFile(modsFile, []byte("logo: http://demo.example.com/wp-content/imports/logo.png\n"), 0o644))

	p := &profile.Profile{
		Name:            "sample",
		Dir:             testdata,
		PostsAtOnce:     1,
		DataType:        profile.DataTypeVC,
		FileWithContent: profile.ContentFiles{VC: "sample.xml"},
		FileWithMods:    modsFile,
		UploadsFolder:   "imports",
		DomainDemo:      "demo.example.com",
		ThemeSlug:       "rosemary",
		DefaultAuthor:   1,
	}

	checkpoint := importer.NewCheckpointLog(filepath.Join(dir, "import", "posts.log"))
	rewriter := media.NewUploadsRewriter("imports", "http://site.test/uploads", filepath.Join(dir, "uploads"))
	dispatcher := NewDispatcher(store, p, checkpoint, rewriter, media.NewFetcher(media.FetcherOptions{}), DispatcherOptions{
		TimeBudget: time.Minute,
		SiteURL:    "http://site.test",
		Version:    "test",
	})

	return &testEnv{dir: dir, store: store, checkpoint: checkpoint, dispatcher: dispatcher}
}

func TestDispatchUnknownAction(t *testing.T) {
	env := newTestEnv(t)

	resp := env.dispatcher.Dispatch(context.Background(), Request{Action: "import_sliders"})
	assert.Equal(t, "import_sliders", resp.Action)
	assert.True(t, resp.Error)
	assert.Equal(t, 100, resp.Result)
	assert.Contains(t, resp.Message, "unknown importer action")
}

func TestDispatchImportSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.dispatcher.Dispatch(ctx, Request{Action: ActionImportStart, ClearTables: "posts"})
	require.False(t, resp.Error, resp.Message)
	assert.Equal(t, 100, resp.Result)

	var results []int
	req := Request{Action: ActionImportPosts, DataType: profile.DataTypeVC}
	for i := 0; i < 10; i++ {
		resp := env.dispatcher.Dispatch(ctx, req)
		require.False(t, resp.Error, resp.Message)
		results = append(results, resp.Result)
		if resp.Result >= 100 {
			break
		}
		req.LastID = 1
	}
	assert.Equal(t, []int{33, 67, 100}, results)

	_, state, err := env.dispatcher.Status()
	require.NoError(t, err)
	assert.Equal(t, importer.StateFinished, state)

	for _, action := range []string{ActionImportMods, ActionImportOptions, ActionImportTpl, ActionImportWidgets, ActionImportEnd} {
		resp := env.dispatcher.Dispatch(ctx, Request{Action: action})
		assert.False(t, resp.Error, "%s: %s", action, resp.Message)
		assert.Equal(t, 100, resp.Result)
	}

	mods, ok, err := env.store.GetOption(ctx, "theme_mods_rosemary")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, mods, "http://site.test/uploads/logo.png")

	stats, err := env.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Posts)

	cp, err := env.checkpoint.Read()
	require.NoError(t, err)
	assert.Equal(t, importer.Checkpoint{}, cp)
}

func TestDispatchImportPostsRestartsWithoutLastID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.dispatcher.Dispatch(ctx, Request{Action: ActionImportPosts})
	require.False(t, resp.Error)
	assert.Equal(t, 33, resp.Result)

	// last_id 0 starts over from the first post
	resp = env.dispatcher.Dispatch(ctx, Request{Action: ActionImportPosts})
	require.False(t, resp.Error)
	assert.Equal(t, 33, resp.Result)

	cp, _, err := env.dispatcher.Status()
	require.NoError(t, err)
	assert.Equal(t, int64(10), cp.LastID)
}

func TestDispatchImportStartKeepsTablesMidRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.dispatcher.Dispatch(ctx, Request{Action: ActionImportPosts})
	require.False(t, resp.Error)

	resp = env.dispatcher.Dispatch(ctx, Request{Action: ActionImportStart, ClearTables: "posts"})
	require.False(t, resp.Error)

	stats, err := env.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Posts)

	require.NoError(t, env.checkpoint.Clear())
	resp = env.dispatcher.Dispatch(ctx, Request{Action: ActionImportStart, ClearTables: "posts,options"})
	require.False(t, resp.Error)

	stats, err = env.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Posts)
	assert.Equal(t, 0, stats.Terms)
}

func TestDispatchReportsFatalErrors(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.profile.FileWithContent = profile.ContentFiles{VC: "missing.xml"}

	resp := env.dispatcher.Dispatch(context.Background(), Request{Action: ActionImportPosts})
	assert.True(t, resp.Error)
	assert.Equal(t, 100, resp.Result)

	_, state, err := env.dispatcher.Status()
	require.NoError(t, err)
	assert.Equal(t, importer.StateError, state)
}

func TestDispatchMissingOptionsFile(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.profile.FileWithWidgets = "missing_widgets.yml"

	resp := env.dispatcher.Dispatch(context.Background(), Request{Action: ActionImportWidgets})
	assert.True(t, resp.Error)
	assert.Equal(t, 100, resp.Result)
}

func TestDispatcherExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env.dispatcher.Dispatch(ctx, Request{Action: ActionImportPosts, LastID: int64(i)})
	}

	result, err := env.dispatcher.Export(ctx, filepath.Join(env.dir, "export"))
	require.NoError(t, err)

	for _, path := range []string{result.Mods, result.Options, result.Templates, result.Widgets, result.Content} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
}
