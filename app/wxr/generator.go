package wxr

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
)

type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

func (g *Generator) Run(doc *Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0"`)
	buf.WriteString(` xmlns:excerpt="` + NamespaceExcerpt + `"`)
	buf.WriteString(` xmlns:content="` + NamespaceContent + `"`)
	buf.WriteString(` xmlns:wfw="` + NamespaceWFW + `"`)
	buf.WriteString(` xmlns:dc="` + NamespaceDC + `"`)
	buf.WriteString(` xmlns:wp="` + NamespaceWP + `">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", doc.Title, 4)
	g.writeElement(&buf, "link", doc.Link, 4)
	g.writeElement(&buf, "pubDate", time.Now().In(time.Local).Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "wp:wxr_version", cmp.Or(doc.Version, "1.2"), 4)
	g.writeElement(&buf, "wp:base_site_url", doc.BaseURL, 4)
	g.writeElement(&buf, "wp:base_blog_url", doc.BaseBlogURL, 4)

	for _, login := range doc.AuthorOrder {
		a := doc.Authors[login]
		buf.WriteString("    <wp:author>")
		g.writeInline(&buf, "wp:author_id", strconv.FormatInt(a.ID, 10))
		g.writeCDATA(&buf, "wp:author_login", a.Login, 0)
		g.writeCDATA(&buf, "wp:author_email", a.Email, 0)
		g.writeCDATA(&buf, "wp:author_display_name", a.DisplayName, 0)
		g.writeCDATA(&buf, "wp:author_first_name", a.FirstName, 0)
		g.writeCDATA(&buf, "wp:author_last_name", a.LastName, 0)
		buf.WriteString("</wp:author>\n")
	}

	for _, c := range doc.Categories {
		buf.WriteString("    <wp:category>")
		g.writeInline(&buf, "wp:term_id", strconv.FormatInt(c.ID, 10))
		g.writeCDATA(&buf, "wp:category_nicename", c.Slug, 0)
		g.writeCDATA(&buf, "wp:category_parent", c.Parent, 0)
		g.writeCDATA(&buf, "wp:cat_name", c.Name, 0)
		if c.Description != "" {
			g.writeCDATA(&buf, "wp:category_description", c.Description, 0)
		}
		buf.WriteString("</wp:category>\n")
	}

	for _, t := range doc.Tags {
		buf.WriteString("    <wp:tag>")
		g.writeInline(&buf, "wp:term_id", strconv.FormatInt(t.ID, 10))
		g.writeCDATA(&buf, "wp:tag_slug", t.Slug, 0)
		g.writeCDATA(&buf, "wp:tag_name", t.Name, 0)
		if t.Description != "" {
			g.writeCDATA(&buf, "wp:tag_description", t.Description, 0)
		}
		buf.WriteString("</wp:tag>\n")
	}

	for _, t := range doc.Terms {
		buf.WriteString("    <wp:term>")
		g.writeInline(&buf, "wp:term_id", strconv.FormatInt(t.ID, 10))
		g.writeCDATA(&buf, "wp:term_taxonomy", t.Taxonomy, 0)
		g.writeCDATA(&buf, "wp:term_slug", t.Slug, 0)
		g.writeCDATA(&buf, "wp:term_parent", t.Parent, 0)
		g.writeCDATA(&buf, "wp:term_name", t.Name, 0)
		if t.Description != "" {
			g.writeCDATA(&buf, "wp:term_description", t.Description, 0)
		}
		buf.WriteString("</wp:term>\n")
	}

	g.writeElement(&buf, "generator", fmt.Sprintf("demo-importer/%s", g.version), 4)

	for i := range doc.Posts {
		g.writeItem(&buf, &doc.Posts[i])
	}

	buf.WriteString("  </channel>\n</rss>\n")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, post *Post) {
	buf.WriteString("    <item>\n")

	g.writeElement(buf, "title", post.Title, 6)
	g.writeElement(buf, "link", post.Link, 6)
	g.writeCDATA(buf, "dc:creator", post.Creator, 6)
	if post.GUID != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"false\">%s</guid>\n", html.EscapeString(post.GUID)))
	}
	buf.WriteString("      <description></description>\n")
	g.writeCDATA(buf, "content:encoded", post.Content, 6)
	g.writeCDATA(buf, "excerpt:encoded", post.Excerpt, 6)
	g.writeElement(buf, "wp:post_id", strconv.FormatInt(post.ID, 10), 6)
	g.writeCDATA(buf, "wp:post_date", post.Date, 6)
	g.writeCDATA(buf, "wp:post_date_gmt", post.DateGMT, 6)
	g.writeCDATA(buf, "wp:comment_status", post.CommentStatus, 6)
	g.writeCDATA(buf, "wp:ping_status", post.PingStatus, 6)
	g.writeCDATA(buf, "wp:post_name", post.Name, 6)
	g.writeCDATA(buf, "wp:status", post.Status, 6)
	g.writeElement(buf, "wp:post_parent", strconv.FormatInt(post.Parent, 10), 6)
	g.writeElement(buf, "wp:menu_order", strconv.Itoa(post.MenuOrder), 6)
	g.writeCDATA(buf, "wp:post_type", post.Type, 6)
	g.writeCDATA(buf, "wp:post_password", post.Password, 6)
	sticky := "0"
	if post.IsSticky {
		sticky = "1"
	}
	g.writeElement(buf, "wp:is_sticky", sticky, 6)
	if post.AttachmentURL != "" {
		g.writeCDATA(buf, "wp:attachment_url", post.AttachmentURL, 6)
	}

	for _, t := range post.Terms {
		buf.WriteString(fmt.Sprintf("      <category domain=\"%s\" nicename=\"%s\">",
			html.EscapeString(t.Domain), html.EscapeString(t.Slug)))
		writeCDATAValue(buf, t.Name)
		buf.WriteString("</category>\n")
	}

	for _, m := range post.Meta {
		buf.WriteString("      <wp:postmeta>\n")
		g.writeCDATA(buf, "wp:meta_key", m.Key, 8)
		g.writeCDATA(buf, "wp:meta_value", m.Value, 8)
		buf.WriteString("      </wp:postmeta>\n")
	}

	for _, c := range post.Comments {
		buf.WriteString("      <wp:comment>\n")
		g.writeElement(buf, "wp:comment_id", strconv.FormatInt(c.ID, 10), 8)
		g.writeCDATA(buf, "wp:comment_author", c.Author, 8)
		g.writeCDATA(buf, "wp:comment_author_email", c.AuthorEmail, 8)
		g.writeCDATA(buf, "wp:comment_author_url", c.AuthorURL, 8)
		g.writeCDATA(buf, "wp:comment_author_IP", c.AuthorIP, 8)
		g.writeCDATA(buf, "wp:comment_date", c.Date, 8)
		g.writeCDATA(buf, "wp:comment_date_gmt", c.DateGMT, 8)
		g.writeCDATA(buf, "wp:comment_content", c.Content, 8)
		g.writeCDATA(buf, "wp:comment_approved", c.Approved, 8)
		g.writeCDATA(buf, "wp:comment_type", c.Type, 8)
		g.writeElement(buf, "wp:comment_parent", strconv.FormatInt(c.Parent, 10), 8)
		g.writeElement(buf, "wp:comment_user_id", strconv.FormatInt(c.UserID, 10), 8)
		for _, m := range c.Meta {
			buf.WriteString("        <wp:commentmeta>\n")
			g.writeCDATA(buf, "wp:meta_key", m.Key, 10)
			g.writeCDATA(buf, "wp:meta_value", m.Value, 10)
			buf.WriteString("        </wp:commentmeta>\n")
		}
		buf.WriteString("      </wp:comment>\n")
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) writeInline(buf *bytes.Buffer, tag, content string) {
	buf.WriteString("<" + tag + ">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</" + tag + ">")
}

// writeCDATA always emits the element, empty values included, since importers
// distinguish an empty field from a missing one.
func (g *Generator) writeCDATA(buf *bytes.Buffer, tag, content string, indent int) {
	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<" + tag + ">")
	writeCDATAValue(buf, content)
	buf.WriteString("</" + tag + ">")
	if indent > 0 {
		buf.WriteString("\n")
	}
}

func writeCDATAValue(buf *bytes.Buffer, content string) {
	if content == "" {
		return
	}
	buf.WriteString("<![CDATA[")
	buf.WriteString(strings.ReplaceAll(content, "]]>", "]]]]><![CDATA[>"))
	buf.WriteString("]]>")
}
