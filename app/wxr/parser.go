package wxr

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
)

const (
	NamespaceContent = "http://purl.org/rss/1.0/modules/content/"
	NamespaceWP      = "http://wordpress.org/export/1.2/"
	NamespaceExcerpt = "http://wordpress.org/export/1.2/excerpt/"
	NamespaceDC      = "http://purl.org/dc/elements/1.1/"
	NamespaceWFW     = "http://wellformedweb.org/CommentAPI/"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// Elements are matched by local name so that 1.0, 1.1 and 1.2 exports share one model.
type rawRSS struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rawChannel `xml:"channel"`
}

type rawChannel struct {
	Title       string        `xml:"title"`
	Links       []rawElement  `xml:"link"`
	WXRVersion  string        `xml:"wxr_version"`
	BaseSiteURL string        `xml:"base_site_url"`
	BaseBlogURL string        `xml:"base_blog_url"`
	Authors     []rawAuthor   `xml:"author"`
	Categories  []rawCategory `xml:"category"`
	Tags        []rawTag      `xml:"tag"`
	Terms       []rawTerm     `xml:"term"`
	Items       []rawItem     `xml:"item"`
}

type rawElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type rawAuthor struct {
	ID          string `xml:"author_id"`
	Login       string `xml:"author_login"`
	Email       string `xml:"author_email"`
	DisplayName string `xml:"author_display_name"`
	FirstName   string `xml:"author_first_name"`
	LastName    string `xml:"author_last_name"`
}

type rawCategory struct {
	TermID      string `xml:"term_id"`
	Nicename    string `xml:"category_nicename"`
	Parent      string `xml:"category_parent"`
	Name        string `xml:"cat_name"`
	Description string `xml:"category_description"`
}

type rawTag struct {
	TermID      string `xml:"term_id"`
	Slug        string `xml:"tag_slug"`
	Name        string `xml:"tag_name"`
	Description string `xml:"tag_description"`
}

type rawTerm struct {
	TermID      string `xml:"term_id"`
	Taxonomy    string `xml:"term_taxonomy"`
	Slug        string `xml:"term_slug"`
	Parent      string `xml:"term_parent"`
	Name        string `xml:"term_name"`
	Description string `xml:"term_description"`
}

type rawItemCategory struct {
	Domain   string `xml:"domain,attr"`
	Nicename string `xml:"nicename,attr"`
	Value    string `xml:",chardata"`
}

type rawMeta struct {
	Key   string `xml:"meta_key"`
	Value string `xml:"meta_value"`
}

type rawComment struct {
	ID          string    `xml:"comment_id"`
	Author      string    `xml:"comment_author"`
	AuthorEmail string    `xml:"comment_author_email"`
	AuthorURL   string    `xml:"comment_author_url"`
	AuthorIP    string    `xml:"comment_author_IP"`
	Date        string    `xml:"comment_date"`
	DateGMT     string    `xml:"comment_date_gmt"`
	Content     string    `xml:"comment_content"`
	Approved    string    `xml:"comment_approved"`
	Type        string    `xml:"comment_type"`
	Parent      string    `xml:"comment_parent"`
	UserID      string    `xml:"comment_user_id"`
	Meta        []rawMeta `xml:"commentmeta"`
}

type rawItem struct {
	Title         string            `xml:"title"`
	Link          string            `xml:"link"`
	GUID          string            `xml:"guid"`
	Creator       string            `xml:"creator"`
	Encoded       []rawElement      `xml:"encoded"`
	PostID        string            `xml:"post_id"`
	PostDate      string            `xml:"post_date"`
	PostDateGMT   string            `xml:"post_date_gmt"`
	CommentStatus string            `xml:"comment_status"`
	PingStatus    string            `xml:"ping_status"`
	PostName      string            `xml:"post_name"`
	Status        string            `xml:"status"`
	PostParent    string            `xml:"post_parent"`
	MenuOrder     string            `xml:"menu_order"`
	PostType      string            `xml:"post_type"`
	PostPassword  string            `xml:"post_password"`
	IsSticky      string            `xml:"is_sticky"`
	AttachmentURL string            `xml:"attachment_url"`
	Categories    []rawItemCategory `xml:"category"`
	Meta          []rawMeta         `xml:"postmeta"`
	Comments      []rawComment      `xml:"comment"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrParse, path, err)
	}
	return p.Run(data)
}

func (p *Parser) Run(data []byte) (*Document, error) {
	if gofeed.DetectFeedType(bytes.NewReader(data)) != gofeed.FeedTypeRSS {
		return nil, fmt.Errorf("%w: not an RSS document", ErrParse)
	}

	var raw rawRSS
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	version := strings.TrimSpace(raw.Channel.WXRVersion)
	if !versionPattern.MatchString(version) {
		return nil, fmt.Errorf("%w: missing or invalid WXR version number", ErrParse)
	}

	ch := raw.Channel
	doc := &Document{
		Version:     version,
		Title:       strings.TrimSpace(ch.Title),
		BaseURL:     strings.TrimSpace(ch.BaseSiteURL),
		BaseBlogURL: strings.TrimSpace(ch.BaseBlogURL),
		Authors:     make(map[string]Author, len(ch.Authors)),
	}

	for _, link := range ch.Links {
		if link.XMLName.Space == "" {
			doc.Link = strings.TrimSpace(link.Value)
			break
		}
	}
	doc.BaseBlogURL = cmp.Or(doc.BaseBlogURL, doc.BaseURL)

	for _, a := range ch.Authors {
		login := strings.TrimSpace(a.Login)
		if login == "" {
			continue
		}
		if _, ok := doc.Authors[login]; !ok {
			doc.AuthorOrder = append(doc.AuthorOrder, login)
		}
		doc.Authors[login] = Author{
			ID:          toInt64(a.ID),
			Login:       login,
			Email:       a.Email,
			DisplayName: a.DisplayName,
			FirstName:   a.FirstName,
			LastName:    a.LastName,
		}
	}

	for _, c := range ch.Categories {
		doc.Categories = append(doc.Categories, Term{
			ID:          toInt64(c.TermID),
			Taxonomy:    "category",
			Slug:        strings.TrimSpace(c.Nicename),
			Name:        c.Name,
			Parent:      strings.TrimSpace(c.Parent),
			Description: c.Description,
		})
	}

	for _, t := range ch.Tags {
		doc.Tags = append(doc.Tags, Term{
			ID:          toInt64(t.TermID),
			Taxonomy:    "post_tag",
			Slug:        strings.TrimSpace(t.Slug),
			Name:        t.Name,
			Description: t.Description,
		})
	}

	for _, t := range ch.Terms {
		doc.Terms = append(doc.Terms, Term{
			ID:          toInt64(t.TermID),
			Taxonomy:    strings.TrimSpace(t.Taxonomy),
			Slug:        strings.TrimSpace(t.Slug),
			Name:        t.Name,
			Parent:      strings.TrimSpace(t.Parent),
			Description: t.Description,
		})
	}

	doc.Posts = make([]Post, 0, len(ch.Items))
	for _, item := range ch.Items {
		doc.Posts = append(doc.Posts, p.normalizeItem(item))
	}

	return doc, nil
}

func (p *Parser) normalizeItem(item rawItem) Post {
	post := Post{
		ID:            toInt64(item.PostID),
		Type:          strings.TrimSpace(item.PostType),
		Status:        strings.TrimSpace(item.Status),
		Title:         item.Title,
		Link:          strings.TrimSpace(item.Link),
		GUID:          strings.TrimSpace(item.GUID),
		Date:          strings.TrimSpace(item.PostDate),
		DateGMT:       strings.TrimSpace(item.PostDateGMT),
		Creator:       strings.TrimSpace(item.Creator),
		Parent:        toInt64(item.PostParent),
		Name:          strings.TrimSpace(item.PostName),
		CommentStatus: strings.TrimSpace(item.CommentStatus),
		PingStatus:    strings.TrimSpace(item.PingStatus),
		Password:      item.PostPassword,
		MenuOrder:     int(toInt64(item.MenuOrder)),
		IsSticky:      strings.TrimSpace(item.IsSticky) == "1",
		AttachmentURL: strings.TrimSpace(item.AttachmentURL),
	}

	for _, enc := range item.Encoded {
		switch {
		case strings.Contains(enc.XMLName.Space, "excerpt"):
			post.Excerpt = enc.Value
		default:
			post.Content = enc.Value
		}
	}

	for _, c := range item.Categories {
		post.Terms = append(post.Terms, TermRef{
			Domain: strings.TrimSpace(c.Domain),
			Slug:   strings.TrimSpace(c.Nicename),
			Name:   c.Value,
		})
	}

	for _, m := range item.Meta {
		post.Meta = append(post.Meta, Meta{Key: strings.TrimSpace(m.Key), Value: m.Value})
	}

	for _, c := range item.Comments {
		comment := Comment{
			ID:          toInt64(c.ID),
			Author:      c.Author,
			AuthorEmail: strings.TrimSpace(c.AuthorEmail),
			AuthorURL:   strings.TrimSpace(c.AuthorURL),
			AuthorIP:    strings.TrimSpace(c.AuthorIP),
			Date:        strings.TrimSpace(c.Date),
			DateGMT:     strings.TrimSpace(c.DateGMT),
			Content:     c.Content,
			Approved:    strings.TrimSpace(c.Approved),
			Type:        strings.TrimSpace(c.Type),
			Parent:      toInt64(c.Parent),
			UserID:      toInt64(c.UserID),
		}
		for _, m := range c.Meta {
			comment.Meta = append(comment.Meta, Meta{Key: strings.TrimSpace(m.Key), Value: m.Value})
		}
		post.Comments = append(post.Comments, comment)
	}

	return post
}

func toInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
