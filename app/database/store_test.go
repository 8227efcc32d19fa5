package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsAdminUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "admin", user.Login)

	missing, err := s.UserByLogin(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTermLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertTerm(ctx, Term{Taxonomy: "category", Slug: "news", Name: "News"})
	require.NoError(t, err)

	found, err := s.TermExists(ctx, "news", "category")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	other, err := s.TermExists(ctx, "news", "post_tag")
	require.NoError(t, err)
	assert.Zero(t, other)

	_, err = s.InsertTerm(ctx, Term{Taxonomy: "category", Slug: "news"})
	assert.Error(t, err, "duplicate slug in one taxonomy must fail")
}

func TestAssignTermIDCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	parent, err := s.InsertTerm(ctx, Term{Taxonomy: "category", Slug: "news", Name: "News"})
	require.NoError(t, err)
	child, err := s.InsertTerm(ctx, Term{Taxonomy: "category", Slug: "local", Name: "Local", Parent: parent})
	require.NoError(t, err)
	postID, err := s.InsertPost(ctx, Post{Title: "Hello"})
	require.NoError(t, err)
	require.NoError(t, s.SetPostTerms(ctx, postID, "category", []int64{parent}))

	require.NoError(t, s.AssignTermID(ctx, parent, 40))

	terms, err := s.PostTerms(ctx, postID)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, int64(40), terms[0].ID)

	all, err := s.ListTerms(ctx)
	require.NoError(t, err)
	for _, term := range all {
		if term.ID == child {
			assert.Equal(t, int64(40), term.Parent)
		}
	}

	next, err := s.InsertTerm(ctx, Term{Taxonomy: "category", Slug: "later"})
	require.NoError(t, err)
	assert.Greater(t, next, int64(40))

	err = s.AssignTermID(ctx, child, 40)
	assert.True(t, errors.Is(err, ErrIDInUse))
}

func TestAssignPostIDCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	parent, err := s.InsertPost(ctx, Post{Title: "Parent", Type: "page"})
	require.NoError(t, err)
	child, err := s.InsertPost(ctx, Post{Title: "Child", Type: "page", Parent: parent})
	require.NoError(t, err)
	require.NoError(t, s.SetPostMeta(ctx, parent, "layout", "wide"))
	commentID, err := s.InsertComment(ctx, Comment{PostID: parent, Author: "Ann", Date: "2015-05-01 10:00:00"})
	require.NoError(t, err)

	require.NoError(t, s.AssignPostID(ctx, parent, 100))

	moved, err := s.GetPost(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, "Parent", moved.Title)

	gone, err := s.GetPost(ctx, parent)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kid, err := s.GetPost(ctx, child)
	require.NoError(t, err)
	assert.Equal(t, int64(100), kid.Parent)

	value, ok, err := s.GetPostMeta(ctx, 100, "layout")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "wide", value)

	comments, err := s.ListComments(ctx, 100)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, commentID, comments[0].ID)

	err = s.AssignPostID(ctx, child, 100)
	assert.ErrorIs(t, err, ErrIDInUse)

	err = s.AssignPostID(ctx, 999, 1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostExistsAndMeta(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertPost(ctx, Post{Title: "Hello", Date: "2015-05-01 10:00:00", Type: "post"})
	require.NoError(t, err)

	found, err := s.PostExists(ctx, "Hello", "2015-05-01 10:00:00", "post")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	found, err = s.PostExists(ctx, "Hello", "2015-05-01 10:00:00", "page")
	require.NoError(t, err)
	assert.Zero(t, found)

	require.NoError(t, s.SetPostMeta(ctx, id, "color", "red"))
	require.NoError(t, s.SetPostMeta(ctx, id, "color", "blue"))

	meta, err := s.ListPostMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []Meta{{Key: "color", Value: "blue"}}, meta)

	_, ok, err := s.GetPostMeta(ctx, id, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMenuItemExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	main, err := s.InsertTerm(ctx, Term{Taxonomy: "nav_menu", Slug: "main"})
	require.NoError(t, err)
	footer, err := s.InsertTerm(ctx, Term{Taxonomy: "nav_menu", Slug: "footer"})
	require.NoError(t, err)

	id, err := s.InsertPost(ctx, Post{Date: "2015-05-01 10:00:00", MenuOrder: 2, Type: "nav_menu_item"})
	require.NoError(t, err)
	require.NoError(t, s.SetPostTerms(ctx, id, "nav_menu", []int64{main}))

	found, err := s.MenuItemExists(ctx, main, "", "2015-05-01 10:00:00", 2)
	require.NoError(t, err)
	assert.Equal(t, id, found)

	found, err = s.MenuItemExists(ctx, footer, "", "2015-05-01 10:00:00", 2)
	require.NoError(t, err)
	assert.Zero(t, found)

	found, err = s.MenuItemExists(ctx, main, "", "2015-05-01 10:00:00", 3)
	require.NoError(t, err)
	assert.Zero(t, found)
}

func TestReplaceInContentAndMeta(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := "http://demo.example.com/a.jpg"
	id, err := s.InsertPost(ctx, Post{Content: `<img src="` + old + `">`})
	require.NoError(t, err)
	_, err = s.InsertPost(ctx, Post{Content: "untouched"})
	require.NoError(t, err)
	require.NoError(t, s.SetPostMeta(ctx, id, "enclosure", old+"\n1024\nimage/jpeg"))
	require.NoError(t, s.SetPostMeta(ctx, id, "other", old))

	n, err := s.ReplaceInContent(ctx, old, "/uploads/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	post, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `<img src="/uploads/a.jpg">`, post.Content)

	n, err = s.ReplaceInMeta(ctx, "enclosure", old, "/uploads/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	other, _, err := s.GetPostMeta(ctx, id, "other")
	require.NoError(t, err)
	assert.Equal(t, old, other)
}

func TestSetPostTermsReplacesPerTaxonomy(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cat, err := s.InsertTerm(ctx, Term{Taxonomy: "category", Slug: "news"})
	require.NoError(t, err)
	tag1, err := s.InsertTerm(ctx, Term{Taxonomy: "post_tag", Slug: "one"})
	require.NoError(t, err)
	tag2, err := s.InsertTerm(ctx, Term{Taxonomy: "post_tag", Slug: "two"})
	require.NoError(t, err)
	postID, err := s.InsertPost(ctx, Post{Title: "Tagged"})
	require.NoError(t, err)

	require.NoError(t, s.SetPostTerms(ctx, postID, "category", []int64{cat}))
	require.NoError(t, s.SetPostTerms(ctx, postID, "post_tag", []int64{tag1}))
	require.NoError(t, s.SetPostTerms(ctx, postID, "post_tag", []int64{tag2}))
	require.NoError(t, s.RecountTerms(ctx))

	terms, err := s.PostTerms(ctx, postID)
	require.NoError(t, err)
	var slugs []string
	for _, term := range terms {
		slugs = append(slugs, term.Slug)
	}
	assert.ElementsMatch(t, []string{"news", "two"}, slugs)

	all, err := s.ListTerms(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, term := range all {
		counts[term.Slug] = term.Count
	}
	assert.Equal(t, map[string]int{"news": 1, "one": 0, "two": 1}, counts)
}

func TestOptions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateOption(ctx, "theme_options", "a"))
	require.NoError(t, s.UpdateOption(ctx, "theme_options", "b"))
	require.NoError(t, s.UpdateOption(ctx, "theme_options_template_home", "c"))
	require.NoError(t, s.UpdateOption(ctx, "blogname", "d"))

	value, ok, err := s.GetOption(ctx, "theme_options")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", value)

	opts, err := s.ListOptions(ctx, "theme_options%")
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestStateJournal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordMapping(ctx, "post", 10, 1))
	require.NoError(t, s.RecordMapping(ctx, "term", 3, 2))
	require.NoError(t, s.RecordMapping(ctx, "missing_menu", 30, 0))
	require.NoError(t, s.DeleteMapping(ctx, "missing_menu", 30))
	require.NoError(t, s.RecordURL(ctx, "http://a/x.jpg", "/uploads/x.jpg"))

	entries, urls, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StateEntry{{Kind: "post", SourceID: 10, DestID: 1}, {Kind: "term", SourceID: 3, DestID: 2}}, entries)
	assert.Equal(t, map[string]string{"http://a/x.jpg": "/uploads/x.jpg"}, urls)

	require.NoError(t, s.ClearState(ctx))
	entries, urls, err = s.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, urls)
}

func TestTruncateKeepsUsersAndOptions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertPost(ctx, Post{Title: "Gone"})
	require.NoError(t, err)
	_, err = s.InsertUser(ctx, User{Login: "editor"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateOption(ctx, "blogname", "Demo"))

	require.NoError(t, s.Truncate(ctx))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Posts)
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 1, stats.Options)

	id, err := s.InsertPost(ctx, Post{Title: "Fresh"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}
