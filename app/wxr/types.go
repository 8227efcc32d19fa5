package wxr

import "errors"

var ErrParse = errors.New("wxr: malformed export document")

// Document is the parsed form of one export file. It is not modified after Parse returns.
type Document struct {
	Version     string
	Title       string
	Link        string
	BaseURL     string // wp:base_site_url
	BaseBlogURL string // wp:base_blog_url

	Authors     map[string]Author // keyed by login
	AuthorOrder []string

	Categories []Term
	Tags       []Term
	Terms      []Term
	Posts      []Post
}

type Author struct {
	ID          int64
	Login       string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
}

// Term is a category, tag or generic taxonomy entry. Parent holds the parent's slug,
// which is how export files reference term parents.
type Term struct {
	ID          int64
	Taxonomy    string
	Slug        string
	Name        string
	Parent      string
	Description string
}

// TermRef is a term attached to a post (<category domain="..." nicename="...">).
type TermRef struct {
	Domain string
	Slug   string
	Name   string
}

type Meta struct {
	Key   string
	Value string
}

type Comment struct {
	ID          int64
	Author      string
	AuthorEmail string
	AuthorURL   string
	AuthorIP    string
	Date        string
	DateGMT     string
	Content     string
	Approved    string
	Type        string
	Parent      int64
	UserID      int64
	Meta        []Meta
}

type Post struct {
	ID            int64
	Type          string
	Status        string
	Title         string
	Link          string
	GUID          string
	Date          string
	DateGMT       string
	Creator       string
	Parent        int64
	Content       string
	Excerpt       string
	Name          string
	CommentStatus string
	PingStatus    string
	Password      string
	MenuOrder     int
	IsSticky      bool
	AttachmentURL string

	Terms    []TermRef
	Comments []Comment
	Meta     []Meta
}

// MetaValue returns the first value stored under key.
func (p *Post) MetaValue(key string) (string, bool) {
	for _, m := range p.Meta {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// PostByID returns the post with the given source id.
func (d *Document) PostByID(id int64) (*Post, bool) {
	for i := range d.Posts {
		if d.Posts[i].ID == id {
			return &d.Posts[i], true
		}
	}
	return nil, false
}
