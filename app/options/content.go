package options

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/wxr"
)

const ContentFile = "content.xml"

// ContentSource is the read side of the content store used for export.
type ContentSource interface {
	ListUsers(ctx context.Context) ([]database.User, error)
	ListTerms(ctx context.Context) ([]database.Term, error)
	ListPosts(ctx context.Context) ([]database.Post, error)
	ListPostMeta(ctx context.Context, postID int64) ([]database.Meta, error)
	PostTerms(ctx context.Context, postID int64) ([]database.Term, error)
	ListComments(ctx context.Context, postID int64) ([]database.Comment, error)
	ListCommentMeta(ctx context.Context, commentID int64) ([]database.Meta, error)
}

// ContentExporter writes the store's content as an export document.
type ContentExporter struct {
	source    ContentSource
	generator *wxr.Generator
	siteURL   string
	title     string
}

func NewContentExporter(source ContentSource, generator *wxr.Generator, siteURL, title string) *ContentExporter {
	return &ContentExporter{
		source:    source,
		generator: generator,
		siteURL:   siteURL,
		title:     title,
	}
}

// Run writes the document to dir and returns its path.
func (ce *ContentExporter) Run(ctx context.Context, dir string) (string, error) {
	doc, err := ce.Document(ctx)
	if err != nil {
		return "", err
	}

	out, err := ce.generator.Run(doc)
	if err != nil {
		return "", fmt.Errorf("failed to generate export document: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, ContentFile)
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export document: %w", err)
	}

	slog.Info("Content exported", "path", path, "posts", len(doc.Posts), "terms", len(doc.Categories)+len(doc.Tags)+len(doc.Terms))
	return path, nil
}

func (ce *ContentExporter) Document(ctx context.Context) (*wxr.Document, error) {
	doc := &wxr.Document{
		Version:     "1.2",
		Title:       ce.title,
		Link:        ce.siteURL,
		BaseURL:     ce.siteURL,
		BaseBlogURL: ce.siteURL,
		Authors:     make(map[string]wxr.Author),
	}

	users, err := ce.source.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	logins := make(map[int64]string, len(users))
	for _, u := range users {
		logins[u.ID] = u.Login
		doc.AuthorOrder = append(doc.AuthorOrder, u.Login)
		doc.Authors[u.Login] = wxr.Author{
			ID:          u.ID,
			Login:       u.Login,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
		}
	}

	terms, err := ce.source.ListTerms(ctx)
	if err != nil {
		return nil, err
	}
	slugs := make(map[int64]string, len(terms))
	for _, t := range terms {
		slugs[t.ID] = t.Slug
	}
	for _, t := range terms {
		term := wxr.Term{
			ID:          t.ID,
			Taxonomy:    t.Taxonomy,
			Slug:        t.Slug,
			Name:        t.Name,
			Parent:      slugs[t.Parent],
			Description: t.Description,
		}
		switch t.Taxonomy {
		case "category":
			doc.Categories = append(doc.Categories, term)
		case "post_tag":
			term.Parent = ""
			doc.Tags = append(doc.Tags, term)
		default:
			doc.Terms = append(doc.Terms, term)
		}
	}

	posts, err := ce.source.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		post, err := ce.exportPost(ctx, p, logins)
		if err != nil {
			return nil, fmt.Errorf("failed to export post %d: %w", p.ID, err)
		}
		doc.Posts = append(doc.Posts, post)
	}

	return doc, nil
}

func (ce *ContentExporter) exportPost(ctx context.Context, p database.Post, logins map[int64]string) (wxr.Post, error) {
	post := wxr.Post{
		ID:            p.ID,
		Type:          p.Type,
		Status:        p.Status,
		Title:         p.Title,
		Link:          ce.siteURL + "/?p=" + strconv.FormatInt(p.ID, 10),
		GUID:          p.GUID,
		Date:          p.Date,
		DateGMT:       p.DateGMT,
		Creator:       logins[p.AuthorID],
		Parent:        p.Parent,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		Name:          p.Name,
		CommentStatus: p.CommentStatus,
		PingStatus:    p.PingStatus,
		Password:      p.Password,
		MenuOrder:     p.MenuOrder,
		IsSticky:      p.IsSticky,
	}
	if p.Type == "attachment" {
		post.AttachmentURL = p.GUID
	}

	terms, err := ce.source.PostTerms(ctx, p.ID)
	if err != nil {
		return post, err
	}
	for _, t := range terms {
		post.Terms = append(post.Terms, wxr.TermRef{Domain: t.Taxonomy, Slug: t.Slug, Name: t.Name})
	}

	meta, err := ce.source.ListPostMeta(ctx, p.ID)
	if err != nil {
		return post, err
	}
	for _, m := range meta {
		post.Meta = append(post.Meta, wxr.Meta{Key: m.Key, Value: m.Value})
	}

	comments, err := ce.source.ListComments(ctx, p.ID)
	if err != nil {
		return post, err
	}
	for _, c := range comments {
		comment := wxr.Comment{
			ID:          c.ID,
			Author:      c.Author,
			AuthorEmail: c.AuthorEmail,
			AuthorURL:   c.AuthorURL,
			AuthorIP:    c.AuthorIP,
			Date:        c.Date,
			DateGMT:     c.DateGMT,
			Content:     c.Content,
			Approved:    c.Approved,
			Type:        c.Type,
			Parent:      c.Parent,
			UserID:      c.UserID,
		}
		cmeta, err := ce.source.ListCommentMeta(ctx, c.ID)
		if err != nil {
			return post, err
		}
		for _, m := range cmeta {
			comment.Meta = append(comment.Meta, wxr.Meta{Key: m.Key, Value: m.Value})
		}
		post.Comments = append(post.Comments, comment)
	}

	return post, nil
}
