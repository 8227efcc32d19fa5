package wxr

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSampleDocument(t *testing.T) {
	parser := NewParser()
	doc, err := parser.ParseFile(filepath.Join("testdata", "sample.xml"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if doc.Version != "1.2" {
		t.Errorf("Expected version '1.2', got: %s", doc.Version)
	}
	if doc.Title != "Rosemary Demo" {
		t.Errorf("Expected title 'Rosemary Demo', got: %s", doc.Title)
	}
	if doc.Link != "http://demo.example.com" {
		t.Errorf("Expected link 'http://demo.example.com', got: %s", doc.Link)
	}
	if doc.BaseURL != "http://demo.example.com" {
		t.Errorf("Expected base URL 'http://demo.example.com', got: %s", doc.BaseURL)
	}

	author, ok := doc.Authors["editor"]
	if !ok {
		t.Fatalf("Expected author 'editor' to be parsed")
	}
	if author.ID != 2 || author.DisplayName != "Chief Editor" || author.Email != "editor@example.com" {
		t.Errorf("Unexpected author: %+v", author)
	}

	if len(doc.Categories) != 2 {
		t.Fatalf("Expected 2 categories, got: %d", len(doc.Categories))
	}
	if doc.Categories[1].Slug != "local-news" || doc.Categories[1].Parent != "news" {
		t.Errorf("Unexpected category: %+v", doc.Categories[1])
	}
	if doc.Categories[1].Description != "Around town" {
		t.Errorf("Expected category description 'Around town', got: %s", doc.Categories[1].Description)
	}
	if len(doc.Tags) != 1 || doc.Tags[0].Taxonomy != "post_tag" || doc.Tags[0].Slug != "featured" {
		t.Errorf("Unexpected tags: %+v", doc.Tags)
	}
	if len(doc.Terms) != 1 || doc.Terms[0].Taxonomy != "nav_menu" || doc.Terms[0].ID != 6 {
		t.Errorf("Unexpected terms: %+v", doc.Terms)
	}

	if len(doc.Posts) != 3 {
		t.Fatalf("Expected 3 posts, got: %d", len(doc.Posts))
	}

	post := doc.Posts[0]
	if post.ID != 10 || post.Type != "post" || post.Status != "publish" {
		t.Errorf("Unexpected post header: %+v", post)
	}
	if !strings.Contains(post.Content, "wp-content/imports/2015/05/photo.jpg") {
		t.Errorf("Expected content to keep image markup, got: %s", post.Content)
	}
	if post.Excerpt != "Short intro" {
		t.Errorf("Expected excerpt 'Short intro', got: %s", post.Excerpt)
	}
	if post.Creator != "editor" {
		t.Errorf("Expected creator 'editor', got: %s", post.Creator)
	}
	if !post.IsSticky {
		t.Error("Expected post to be sticky")
	}
	if len(post.Terms) != 2 || post.Terms[1].Domain != "post_tag" || post.Terms[1].Slug != "featured" {
		t.Errorf("Unexpected post terms: %+v", post.Terms)
	}
	if v, ok := post.MetaValue("_thumbnail_id"); !ok || v != "20" {
		t.Errorf("Expected _thumbnail_id '20', got: %q", v)
	}

	if len(post.Comments) != 1 {
		t.Fatalf("Expected 1 comment, got: %d", len(post.Comments))
	}
	comment := post.Comments[0]
	if comment.ID != 7 || comment.Author != "Reader" || comment.AuthorIP != "127.0.0.1" || comment.Approved != "1" {
		t.Errorf("Unexpected comment: %+v", comment)
	}
	if len(comment.Meta) != 1 || comment.Meta[0].Key != "rating" {
		t.Errorf("Unexpected comment meta: %+v", comment.Meta)
	}

	attachment := doc.Posts[1]
	if attachment.Type != "attachment" || attachment.Parent != 10 {
		t.Errorf("Unexpected attachment: %+v", attachment)
	}
	if attachment.AttachmentURL != "http://demo.example.com/wp-content/imports/2015/05/photo.jpg" {
		t.Errorf("Unexpected attachment URL: %s", attachment.AttachmentURL)
	}

	menuItem, ok := doc.PostByID(30)
	if !ok {
		t.Fatal("Expected to find post 30")
	}
	if menuItem.MenuOrder != 1 || menuItem.Type != "nav_menu_item" {
		t.Errorf("Unexpected menu item: %+v", menuItem)
	}
}

func TestParseRejectsNonRSS(t *testing.T) {
	atom := `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>x</title></feed>`

	_, err := NewParser().Run([]byte(atom))
	if !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse, got: %v", err)
	}
}

func TestParseRejectsMissingVersion(t *testing.T) {
	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>Plain</title></channel></rss>`

	_, err := NewParser().Run([]byte(rss))
	if !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse, got: %v", err)
	}
}

func TestParseRejectsMalformedXML(t *testing.T) {
	rss := `<?xml version="1.0"?><rss version="2.0"><channel><wp:wxr_version>1.2</wp:wxr_version><item>`

	_, err := NewParser().Run([]byte(rss))
	if !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse, got: %v", err)
	}
}

func TestSanitizeUser(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"editor", "editor"},
		{"  José  Müller ", "Jose Muller"},
		{"john<script>", "johnscript"},
		{"mail@example.com", "mail@example.com"},
	}

	for _, tt := range tests {
		if got := SanitizeUser(tt.input); got != tt.expected {
			t.Errorf("SanitizeUser(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Local News", "local-news"},
		{"Café & Bar!", "cafe-bar"},
		{"  --Hello--World-- ", "hello-world"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeTitle(tt.input); got != tt.expected {
			t.Errorf("SanitizeTitle(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
