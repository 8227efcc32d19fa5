package importer

import (
	"context"
	"sort"

	"github.com/lysyi3m/demo-importer/app/database"
)

const (
	kindTerm        = "term"
	kindPost        = "post"
	kindMenuItem    = "menu_item"
	kindPostOrphan  = "post_orphan"
	kindMenuOrphan  = "menu_orphan"
	kindMissingMenu = "missing_menu"
	kindFeatured    = "featured"
)

// IdentityMap maps source ids from the export document to ids in the store.
// Entries are only ever added during a run.
type IdentityMap struct {
	Authors   map[string]int64 // sanitized login -> user id
	AuthorIDs map[int64]int64
	Terms     map[int64]int64
	Posts     map[int64]int64
	MenuItems map[int64]int64
}

// OrphanSets hold child -> parent source ids whose parent was not mapped yet.
type OrphanSets struct {
	Posts     map[int64]int64
	MenuItems map[int64]int64
}

// URLRemap maps old attachment URLs to their new location.
type URLRemap map[string]string

// SortedKeys returns the keys longest first, so that a URL is replaced before any of its prefixes.
func (r URLRemap) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// RunState is everything one run carries between chunks. Every change is
// journalled so that the next chunk, possibly in another process, resumes with it.
type RunState struct {
	IdentityMap
	Orphans          OrphanSets
	MissingMenuItems map[int64]struct{}
	FeaturedImages   map[int64]int64 // destination post id -> source thumbnail id
	URLRemap         URLRemap

	journal database.StateJournal
}

func NewRunState(journal database.StateJournal) *RunState {
	return &RunState{
		IdentityMap: IdentityMap{
			Authors:   make(map[string]int64),
			AuthorIDs: make(map[int64]int64),
			Terms:     make(map[int64]int64),
			Posts:     make(map[int64]int64),
			MenuItems: make(map[int64]int64),
		},
		Orphans: OrphanSets{
			Posts:     make(map[int64]int64),
			MenuItems: make(map[int64]int64),
		},
		MissingMenuItems: make(map[int64]struct{}),
		FeaturedImages:   make(map[int64]int64),
		URLRemap:         make(URLRemap),
		journal:          journal,
	}
}

// Load replays the journal. Authors are not journalled; they are re-derived every chunk.
func (s *RunState) Load(ctx context.Context) error {
	entries, urls, err := s.journal.LoadState(ctx)
	if err != nil {
		return err
	}

	for _, e := range entries {
		switch e.Kind {
		case kindTerm:
			s.Terms[e.SourceID] = e.DestID
		case kindPost:
			s.Posts[e.SourceID] = e.DestID
		case kindMenuItem:
			s.MenuItems[e.SourceID] = e.DestID
		case kindPostOrphan:
			s.Orphans.Posts[e.SourceID] = e.DestID
		case kindMenuOrphan:
			s.Orphans.MenuItems[e.SourceID] = e.DestID
		case kindMissingMenu:
			s.MissingMenuItems[e.SourceID] = struct{}{}
		case kindFeatured:
			s.FeaturedImages[e.SourceID] = e.DestID
		}
	}
	for k, v := range urls {
		s.URLRemap[k] = v
	}
	return nil
}

func (s *RunState) mapTerm(ctx context.Context, src, dst int64) error {
	s.Terms[src] = dst
	return s.journal.RecordMapping(ctx, kindTerm, src, dst)
}

func (s *RunState) mapPost(ctx context.Context, src, dst int64) error {
	s.Posts[src] = dst
	return s.journal.RecordMapping(ctx, kindPost, src, dst)
}

func (s *RunState) mapMenuItem(ctx context.Context, src, dst int64) error {
	s.MenuItems[src] = dst
	return s.journal.RecordMapping(ctx, kindMenuItem, src, dst)
}

func (s *RunState) addPostOrphan(ctx context.Context, child, parent int64) error {
	s.Orphans.Posts[child] = parent
	return s.journal.RecordMapping(ctx, kindPostOrphan, child, parent)
}

func (s *RunState) addMenuOrphan(ctx context.Context, child, parent int64) error {
	s.Orphans.MenuItems[child] = parent
	return s.journal.RecordMapping(ctx, kindMenuOrphan, child, parent)
}

func (s *RunState) addMissingMenuItem(ctx context.Context, id int64) error {
	s.MissingMenuItems[id] = struct{}{}
	return s.journal.RecordMapping(ctx, kindMissingMenu, id, 0)
}

func (s *RunState) removeMissingMenuItem(ctx context.Context, id int64) error {
	delete(s.MissingMenuItems, id)
	return s.journal.DeleteMapping(ctx, kindMissingMenu, id)
}

func (s *RunState) addFeaturedImage(ctx context.Context, postID, thumbnailID int64) error {
	s.FeaturedImages[postID] = thumbnailID
	return s.journal.RecordMapping(ctx, kindFeatured, postID, thumbnailID)
}

func (s *RunState) addURL(ctx context.Context, oldURL, newURL string) error {
	if oldURL == "" || oldURL == newURL {
		return nil
	}
	s.URLRemap[oldURL] = newURL
	return s.journal.RecordURL(ctx, oldURL, newURL)
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
