package importer

import (
	"context"
	"log/slog"
	"strconv"
)

// backfill fixes references that could not be resolved while posts were imported.
// Every step can be repeated without changing the result.
func (r *run) backfill(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"post parents", r.backfillParents},
		{"missing menu items", r.retryMissingMenuItems},
		{"menu item parents", r.backfillMenuParents},
		{"attachment urls", r.backfillAttachmentURLs},
		{"featured images", r.remapFeaturedImages},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.fn(ctx); err != nil {
			return err
		}
		slog.Debug("Backfill step completed", "step", step.name)
	}
	return nil
}

func (r *run) backfillParents(ctx context.Context) error {
	for _, child := range sortedIDs(r.state.Orphans.Posts) {
		childID, ok := r.state.Posts[child]
		if !ok {
			continue
		}
		parentID, ok := r.state.Posts[r.state.Orphans.Posts[child]]
		if !ok {
			continue
		}
		if err := r.im.store.UpdatePostParent(ctx, childID, parentID); err != nil {
			if err := r.recoverable(ctx, "Failed to update post parent", err, "post_id", childID, "parent", parentID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) retryMissingMenuItems(ctx context.Context) error {
	for _, id := range sortedIDs(r.state.MissingMenuItems) {
		post, ok := r.doc.PostByID(id)
		if !ok {
			if err := r.state.removeMissingMenuItem(ctx, id); err != nil {
				return err
			}
			continue
		}
		if err := r.processMenuItem(ctx, post, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) backfillMenuParents(ctx context.Context) error {
	for _, child := range sortedIDs(r.state.Orphans.MenuItems) {
		childID, ok := r.state.MenuItems[child]
		if !ok {
			continue
		}
		parentID, ok := r.state.MenuItems[r.state.Orphans.MenuItems[child]]
		if !ok {
			continue
		}
		err := r.im.store.SetPostMeta(ctx, childID, "_menu_item_menu_item_parent", strconv.FormatInt(parentID, 10))
		if err != nil {
			if err := r.recoverable(ctx, "Failed to update menu item parent", err, "post_id", childID, "parent", parentID); err != nil {
				return err
			}
		}
	}
	return nil
}

// backfillAttachmentURLs replaces old attachment URLs in post content and enclosures,
// longest URL first.
func (r *run) backfillAttachmentURLs(ctx context.Context) error {
	for _, oldURL := range r.state.URLRemap.SortedKeys() {
		newURL := r.state.URLRemap[oldURL]

		posts, err := r.im.store.ReplaceInContent(ctx, oldURL, newURL)
		if err != nil {
			if err := r.recoverable(ctx, "Failed to replace url in content", err, "url", oldURL); err != nil {
				return err
			}
			continue
		}
		enclosures, err := r.im.store.ReplaceInMeta(ctx, "enclosure", oldURL, newURL)
		if err != nil {
			if err := r.recoverable(ctx, "Failed to replace url in enclosures", err, "url", oldURL); err != nil {
				return err
			}
			continue
		}

		if posts > 0 || enclosures > 0 {
			slog.Debug("Attachment url replaced",
				"from", oldURL,
				"to", newURL,
				"posts", posts,
				"enclosures", enclosures)
		}
	}
	return nil
}

func (r *run) remapFeaturedImages(ctx context.Context) error {
	for _, postID := range sortedIDs(r.state.FeaturedImages) {
		source := r.state.FeaturedImages[postID]
		newID, ok := r.state.Posts[source]
		if !ok || newID == source {
			continue
		}
		if err := r.im.store.SetPostMeta(ctx, postID, "_thumbnail_id", strconv.FormatInt(newID, 10)); err != nil {
			if err := r.recoverable(ctx, "Failed to remap featured image", err, "post_id", postID); err != nil {
				return err
			}
		}
	}
	return nil
}
