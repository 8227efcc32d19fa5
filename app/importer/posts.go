package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/phpserial"
	"github.com/lysyi3m/demo-importer/app/wxr"
)

var skippedMetaKeys = map[string]bool{
	"_wp_attached_file":       true,
	"_wp_attachment_metadata": true,
	"_edit_lock":              true,
}

// processPost imports one post with its terms, comments and meta. Only errors that
// must stop the run are returned; anything else is logged and the post is skipped.
func (r *run) processPost(ctx context.Context, post *wxr.Post) error {
	if !r.im.validPostType(post.Type) {
		slog.Warn("Failed to import post",
			"post_id", post.ID,
			"title", post.Title,
			"error", fmt.Errorf("%w: invalid post type %q", ErrValidation, post.Type))
		return nil
	}
	if _, ok := r.state.Posts[post.ID]; ok {
		return nil
	}
	if _, ok := r.state.MenuItems[post.ID]; ok {
		return nil
	}
	if post.Status == "auto-draft" {
		return nil
	}
	if post.Type == "nav_menu_item" {
		return r.processMenuItem(ctx, post, false)
	}

	existing, err := r.im.store.PostExists(ctx, post.Title, post.Date, post.Type)
	if err != nil {
		return r.recoverable(ctx, "Failed to look up post", err, "post_id", post.ID)
	}

	postID := existing
	if existing > 0 {
		slog.Info("Post already exists", "post_id", post.ID, "type", post.Type, "title", post.Title)
	} else {
		postID, err = r.createPost(ctx, post)
		if err != nil || postID == 0 {
			return err
		}
	}

	if err := r.state.mapPost(ctx, post.ID, postID); err != nil {
		return err
	}

	if err := r.processPostTerms(ctx, post, postID); err != nil {
		return err
	}
	if err := r.processComments(ctx, post, postID, existing > 0); err != nil {
		return err
	}
	return r.processPostMeta(ctx, post, postID)
}

// createPost inserts the post and returns its id, or 0 when it could not be created.
func (r *run) createPost(ctx context.Context, post *wxr.Post) (int64, error) {
	var parent int64
	if post.Parent > 0 {
		if mapped, ok := r.state.Posts[post.Parent]; ok {
			parent = mapped
		} else if err := r.state.addPostOrphan(ctx, post.ID, post.Parent); err != nil {
			return 0, err
		}
	}

	record := database.Post{
		AuthorID:      r.authorFor(post.Creator),
		Date:          post.Date,
		DateGMT:       post.DateGMT,
		Content:       r.im.rewriter.Rewrite(post.Content),
		Title:         post.Title,
		Excerpt:       r.im.rewriter.Rewrite(post.Excerpt),
		Status:        post.Status,
		CommentStatus: post.CommentStatus,
		PingStatus:    post.PingStatus,
		Password:      post.Password,
		Name:          post.Name,
		Parent:        parent,
		GUID:          post.GUID,
		MenuOrder:     post.MenuOrder,
		Type:          post.Type,
	}

	var id int64
	var err error
	if post.Type == "attachment" {
		id, err = r.processAttachment(ctx, post, record)
		if err != nil || id == 0 {
			return 0, err
		}
	} else {
		id, err = r.im.store.InsertPost(ctx, record)
		if err != nil {
			return 0, r.recoverable(ctx, "Failed to import post", err, "post_id", post.ID, "title", post.Title)
		}
	}

	if r.im.opts.Overwrite {
		id = r.assignPostID(ctx, id, post.ID)
	}

	if post.IsSticky {
		if err := r.im.store.StickPost(ctx, id); err != nil {
			slog.Warn("Failed to stick post", "post_id", id, "error", err)
		}
	}

	return id, nil
}

// assignPostID moves a new post to its source id and returns the id the post ends up with.
func (r *run) assignPostID(ctx context.Context, id, sourceID int64) int64 {
	if err := r.im.store.AssignPostID(ctx, id, sourceID); err != nil {
		if errors.Is(err, database.ErrIDInUse) {
			slog.Warn("Post id already in use, keeping generated id", "source_id", sourceID, "post_id", id)
		} else {
			slog.Warn("Failed to assign post id", "source_id", sourceID, "post_id", id, "error", err)
		}
		return id
	}
	return sourceID
}

func (r *run) processPostTerms(ctx context.Context, post *wxr.Post, postID int64) error {
	byTaxonomy := make(map[string][]int64)
	var order []string

	for _, ref := range post.Terms {
		taxonomy := ref.Domain
		if taxonomy == "tag" {
			taxonomy = "post_tag"
		}
		slug := ref.Slug
		if slug == "" {
			slug = wxr.SanitizeTitle(ref.Name)
		}
		if taxonomy == "" || slug == "" {
			continue
		}

		termID, err := r.im.store.TermExists(ctx, slug, taxonomy)
		if err == nil && termID == 0 {
			termID, err = r.im.store.InsertTerm(ctx, database.Term{Taxonomy: taxonomy, Slug: slug, Name: ref.Name})
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("Failed to import post term, remaining terms skipped",
				"post_id", post.ID,
				"taxonomy", taxonomy,
				"slug", slug,
				"error", err)
			break
		}

		if _, ok := byTaxonomy[taxonomy]; !ok {
			order = append(order, taxonomy)
		}
		byTaxonomy[taxonomy] = append(byTaxonomy[taxonomy], termID)
	}

	for _, taxonomy := range order {
		if err := r.im.store.SetPostTerms(ctx, postID, taxonomy, byTaxonomy[taxonomy]); err != nil {
			if err := r.recoverable(ctx, "Failed to set post terms", err, "post_id", postID, "taxonomy", taxonomy); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) processComments(ctx context.Context, post *wxr.Post, postID int64, postExisted bool) error {
	comments := append([]wxr.Comment(nil), post.Comments...)
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })

	inserted := make(map[int64]int64, len(comments))
	for _, c := range comments {
		if postExisted {
			existing, err := r.im.store.CommentExists(ctx, postID, c.Author, c.Date)
			if err != nil {
				if err := r.recoverable(ctx, "Failed to look up comment", err, "comment_id", c.ID); err != nil {
					return err
				}
				continue
			}
			if existing > 0 {
				inserted[c.ID] = existing
				continue
			}
		}

		var parent, userID int64
		if c.Parent > 0 {
			parent = inserted[c.Parent]
		}
		if c.UserID > 0 {
			userID = r.state.AuthorIDs[c.UserID]
		}

		id, err := r.im.store.InsertComment(ctx, database.Comment{
			PostID:      postID,
			Author:      c.Author,
			AuthorEmail: c.AuthorEmail,
			AuthorURL:   c.AuthorURL,
			AuthorIP:    c.AuthorIP,
			Date:        c.Date,
			DateGMT:     c.DateGMT,
			Content:     c.Content,
			Approved:    c.Approved,
			Type:        c.Type,
			Parent:      parent,
			UserID:      userID,
		})
		if err != nil {
			if err := r.recoverable(ctx, "Failed to import comment", err, "comment_id", c.ID, "post_id", postID); err != nil {
				return err
			}
			continue
		}
		inserted[c.ID] = id

		for _, m := range c.Meta {
			if err := r.im.store.SetCommentMeta(ctx, id, m.Key, m.Value); err != nil {
				slog.Warn("Failed to import comment meta", "comment_id", id, "key", m.Key, "error", err)
			}
		}
	}
	return nil
}

func (r *run) processPostMeta(ctx context.Context, post *wxr.Post, postID int64) error {
	for _, m := range post.Meta {
		if m.Key == "" || skippedMetaKeys[m.Key] {
			continue
		}

		value := m.Value
		if m.Key == "_edit_last" {
			source, _ := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			userID, ok := r.state.AuthorIDs[source]
			if !ok {
				continue
			}
			value = strconv.FormatInt(userID, 10)
		} else {
			value = phpserial.ReplaceInSerialized(value, r.im.rewriter.Rewrite)
		}

		if err := r.im.store.SetPostMeta(ctx, postID, m.Key, value); err != nil {
			if err := r.recoverable(ctx, "Failed to import post meta", err, "post_id", postID, "key", m.Key); err != nil {
				return err
			}
			continue
		}

		if m.Key == "_thumbnail_id" {
			thumbnailID, _ := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if thumbnailID > 0 {
				if err := r.state.addFeaturedImage(ctx, postID, thumbnailID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
