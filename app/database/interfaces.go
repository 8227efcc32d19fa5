package database

import (
	"context"
	"errors"
)

var (
	ErrIDInUse  = errors.New("identifier already in use")
	ErrNotFound = errors.New("record not found")
)

type TermRepository interface {
	// TermExists returns the id of the term with slug in taxonomy, or 0.
	TermExists(ctx context.Context, slug, taxonomy string) (int64, error)
	InsertTerm(ctx context.Context, term Term) (int64, error)
	// AssignTermID moves a term from one id to another, cascading to
	// relationships and child terms. It fails with ErrIDInUse when to is taken.
	AssignTermID(ctx context.Context, from, to int64) error
	SetPostTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error
	RecountTerms(ctx context.Context) error
	ListTerms(ctx context.Context) ([]Term, error)
	PostTerms(ctx context.Context, postID int64) ([]Term, error)
}

type PostRepository interface {
	// PostExists returns the id of a post with the same title, date and type, or 0.
	PostExists(ctx context.Context, title, date, postType string) (int64, error)
	// MenuItemExists returns the id of an item in the menu with the same title, date and order, or 0.
	MenuItemExists(ctx context.Context, menuID int64, title, date string, menuOrder int) (int64, error)
	InsertPost(ctx context.Context, post Post) (int64, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	UpdatePostParent(ctx context.Context, id, parent int64) error
	// AssignPostID moves a post from one id to another, cascading to meta,
	// term relationships, comments and child posts. It fails with ErrIDInUse when to is taken.
	AssignPostID(ctx context.Context, from, to int64) error
	StickPost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context) ([]Post, error)

	SetPostMeta(ctx context.Context, postID int64, key, value string) error
	GetPostMeta(ctx context.Context, postID int64, key string) (string, bool, error)
	ListPostMeta(ctx context.Context, postID int64) ([]Meta, error)

	ReplaceInContent(ctx context.Context, old, new string) (int64, error)
	ReplaceInMeta(ctx context.Context, key, old, new string) (int64, error)
}

type CommentRepository interface {
	InsertComment(ctx context.Context, comment Comment) (int64, error)
	// CommentExists returns the id of a comment on postID with the same author and date, or 0.
	CommentExists(ctx context.Context, postID int64, author, date string) (int64, error)
	SetCommentMeta(ctx context.Context, commentID int64, key, value string) error
	ListComments(ctx context.Context, postID int64) ([]Comment, error)
	ListCommentMeta(ctx context.Context, commentID int64) ([]Meta, error)
}

type UserRepository interface {
	UserByLogin(ctx context.Context, login string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	InsertUser(ctx context.Context, user User) (int64, error)
	ListUsers(ctx context.Context) ([]User, error)
}

type OptionRepository interface {
	GetOption(ctx context.Context, name string) (string, bool, error)
	UpdateOption(ctx context.Context, name, value string) error
	// ListOptions returns options whose name matches a LIKE pattern.
	ListOptions(ctx context.Context, pattern string) ([]Option, error)
}

// StateJournal persists one import run's identity maps between chunks.
type StateJournal interface {
	LoadState(ctx context.Context) ([]StateEntry, map[string]string, error)
	RecordMapping(ctx context.Context, kind string, sourceID, destID int64) error
	DeleteMapping(ctx context.Context, kind string, sourceID int64) error
	RecordURL(ctx context.Context, oldURL, newURL string) error
	ClearState(ctx context.Context) error
}

// ContentStore is everything the importer needs from the host content store.
type ContentStore interface {
	TermRepository
	PostRepository
	CommentRepository
	UserRepository
	OptionRepository
	StateJournal
}

var _ ContentStore = (*Store)(nil)
