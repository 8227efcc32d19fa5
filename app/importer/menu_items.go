package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/phpserial"
	"github.com/lysyi3m/demo-importer/app/wxr"
)

const menuItemMetaPrefix = "_menu_item_"

// MenuItemFields is the typed form of a menu item's _menu_item_* meta.
type MenuItemFields struct {
	Type           string
	MenuItemParent int64
	ObjectID       int64
	Object         string
	Target         string
	Classes        string
	XFN            string
	URL            string
	CustomData     string
	hasCustomData  bool
}

func menuItemFields(post *wxr.Post) MenuItemFields {
	var f MenuItemFields
	for _, m := range post.Meta {
		switch m.Key {
		case "_menu_item_type":
			f.Type = m.Value
		case "_menu_item_menu_item_parent":
			f.MenuItemParent, _ = strconv.ParseInt(strings.TrimSpace(m.Value), 10, 64)
		case "_menu_item_object_id":
			f.ObjectID, _ = strconv.ParseInt(strings.TrimSpace(m.Value), 10, 64)
		case "_menu_item_object":
			f.Object = m.Value
		case "_menu_item_target":
			f.Target = m.Value
		case "_menu_item_classes":
			f.Classes = m.Value
		case "_menu_item_xfn":
			f.XFN = m.Value
		case "_menu_item_url":
			f.URL = m.Value
		case "_item_custom_data":
			f.CustomData = m.Value
			f.hasCustomData = true
		}
	}
	return f
}

// joinClasses turns a serialized list of CSS classes into a space separated string.
func joinClasses(classes string) string {
	if !phpserial.IsSerialized(classes) {
		return classes
	}
	v, err := phpserial.Unserialize(classes)
	if err != nil {
		return classes
	}
	if arr, ok := v.(*phpserial.Array); ok {
		return strings.TrimSpace(strings.Join(arr.Strings(), " "))
	}
	return fmt.Sprint(v)
}

// menuSlug returns the slug of the first nav_menu term of the item.
func menuSlug(post *wxr.Post) string {
	for _, ref := range post.Terms {
		if ref.Domain == "nav_menu" {
			return ref.Slug
		}
	}
	return ""
}

// processMenuItem imports a nav_menu_item post. An item whose object is not mapped yet
// is deferred to the backfill pass; on that retry it is dropped if still unresolved.
func (r *run) processMenuItem(ctx context.Context, post *wxr.Post, retry bool) error {
	if post.Status == "draft" {
		return nil
	}

	slug := menuSlug(post)
	if slug == "" {
		slog.Warn("Menu item skipped",
			"post_id", post.ID,
			"title", post.Title,
			"error", fmt.Errorf("%w: missing menu slug", ErrValidation))
		return nil
	}

	menuID, err := r.im.store.TermExists(ctx, slug, "nav_menu")
	if err != nil {
		return r.recoverable(ctx, "Failed to look up menu", err, "slug", slug)
	}
	if menuID == 0 {
		slog.Warn("Menu item skipped",
			"post_id", post.ID,
			"title", post.Title,
			"error", fmt.Errorf("%w: invalid menu slug %q", ErrValidation, slug))
		return nil
	}

	existing, err := r.im.store.MenuItemExists(ctx, menuID, post.Title, post.Date, post.MenuOrder)
	if err != nil {
		return r.recoverable(ctx, "Failed to look up menu item", err, "post_id", post.ID)
	}
	if existing != 0 {
		slog.Debug("Menu item already exists", "post_id", post.ID, "id", existing)
		if err := r.state.mapMenuItem(ctx, post.ID, existing); err != nil {
			return err
		}
		if retry {
			return r.state.removeMissingMenuItem(ctx, post.ID)
		}
		return nil
	}

	fields := menuItemFields(post)

	objectID, resolved := r.resolveMenuObject(fields)
	if !resolved {
		if retry {
			slog.Warn("Menu item skipped, object was not imported",
				"post_id", post.ID,
				"type", fields.Type,
				"object_id", fields.ObjectID)
			return r.state.removeMissingMenuItem(ctx, post.ID)
		}
		slog.Debug("Menu item deferred", "post_id", post.ID, "object_id", fields.ObjectID)
		return r.state.addMissingMenuItem(ctx, post.ID)
	}

	var parent int64
	if fields.MenuItemParent > 0 {
		if mapped, ok := r.state.MenuItems[fields.MenuItemParent]; ok {
			parent = mapped
		} else if err := r.state.addMenuOrphan(ctx, post.ID, fields.MenuItemParent); err != nil {
			return err
		}
	}

	url := fields.URL
	if fields.Type == "custom" && r.im.opts.DemoURL != "" && strings.Contains(url, r.im.opts.DemoURL) {
		siteURL := strings.TrimRight(r.im.opts.SiteURL, "/")
		if strings.HasSuffix(r.im.opts.DemoURL, "/") {
			siteURL += "/"
		}
		url = strings.ReplaceAll(url, r.im.opts.DemoURL, siteURL)
	}

	id, err := r.im.store.InsertPost(ctx, database.Post{
		AuthorID:  r.authorFor(post.Creator),
		Date:      post.Date,
		DateGMT:   post.DateGMT,
		Title:     post.Title,
		Content:   post.Content,
		Excerpt:   post.Excerpt,
		Status:    post.Status,
		Name:      post.Name,
		MenuOrder: post.MenuOrder,
		Type:      "nav_menu_item",
	})
	if err != nil {
		return r.recoverable(ctx, "Failed to import menu item", err, "post_id", post.ID)
	}
	if r.im.opts.Overwrite {
		id = r.assignPostID(ctx, id, post.ID)
	}
	if fields.Type == "custom" {
		objectID = id
	}

	meta := []database.Meta{
		{Key: "_menu_item_type", Value: fields.Type},
		{Key: "_menu_item_menu_item_parent", Value: strconv.FormatInt(parent, 10)},
		{Key: "_menu_item_object_id", Value: strconv.FormatInt(objectID, 10)},
		{Key: "_menu_item_object", Value: fields.Object},
		{Key: "_menu_item_target", Value: fields.Target},
		{Key: "_menu_item_classes", Value: joinClasses(fields.Classes)},
		{Key: "_menu_item_xfn", Value: fields.XFN},
		{Key: "_menu_item_url", Value: url},
	}
	if fields.hasCustomData {
		meta = append(meta, database.Meta{Key: "_item_custom_data", Value: fields.CustomData})
	}
	for _, m := range post.Meta {
		if strings.HasPrefix(m.Key, menuItemMetaPrefix) || m.Key == "_item_custom_data" || skippedMetaKeys[m.Key] {
			continue
		}
		meta = append(meta, database.Meta{Key: m.Key, Value: phpserial.ReplaceInSerialized(m.Value, r.im.rewriter.Rewrite)})
	}

	for _, m := range meta {
		if err := r.im.store.SetPostMeta(ctx, id, m.Key, m.Value); err != nil {
			if err := r.recoverable(ctx, "Failed to import menu item meta", err, "post_id", id, "key", m.Key); err != nil {
				return err
			}
		}
	}

	if err := r.im.store.SetPostTerms(ctx, id, "nav_menu", []int64{menuID}); err != nil {
		if err := r.recoverable(ctx, "Failed to add menu item to menu", err, "post_id", id, "menu_id", menuID); err != nil {
			return err
		}
	}

	if err := r.state.mapMenuItem(ctx, post.ID, id); err != nil {
		return err
	}
	if retry {
		return r.state.removeMissingMenuItem(ctx, post.ID)
	}
	return nil
}

func (r *run) resolveMenuObject(f MenuItemFields) (int64, bool) {
	switch f.Type {
	case "taxonomy":
		id, ok := r.state.Terms[f.ObjectID]
		return id, ok
	case "post_type":
		id, ok := r.state.Posts[f.ObjectID]
		return id, ok
	case "custom":
		return f.ObjectID, true
	default:
		return 0, false
	}
}
