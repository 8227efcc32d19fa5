package importer

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/media"
	"github.com/lysyi3m/demo-importer/app/wxr"
)

var attachedFileDate = regexp.MustCompile(`^(\d{4})/(\d{2})/`)

var allowedMIMETypes = []string{
	"application/pdf",
	"application/zip",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain",
	"text/csv",
}

func allowedMIME(mimeType string) bool {
	for _, prefix := range []string{"image/", "audio/", "video/"} {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return slices.Contains(allowedMIMETypes, mimeType)
}

// processAttachment stores the attachment file locally and creates the attachment post.
// It returns 0 when the attachment was skipped.
func (r *run) processAttachment(ctx context.Context, post *wxr.Post, record database.Post) (int64, error) {
	remoteURL := post.AttachmentURL
	if remoteURL == "" {
		remoteURL = post.GUID
	}
	if strings.HasPrefix(remoteURL, "/") && !strings.HasPrefix(remoteURL, "//") {
		remoteURL = strings.TrimRight(r.doc.BaseURL, "/") + remoteURL
	}
	if remoteURL == "" {
		slog.Warn("Attachment skipped",
			"post_id", post.ID,
			"error", fmt.Errorf("%w: attachment without url", ErrValidation))
		return 0, nil
	}

	localURL := r.im.rewriter.Rewrite(remoteURL)
	localPath, hasLocal := r.im.rewriter.LocalPath(localURL)

	fileURL := localURL
	filePath := ""
	switch {
	case hasLocal && fileExists(localPath):
		filePath = localPath
		if err := r.remapAttachmentURLs(ctx, post, "", remoteURL, localURL, fileURL, mimeTypeOf(filePath, fileURL)); err != nil {
			return 0, err
		}
	case !r.im.opts.FetchAttachments:
		if hasLocal {
			filePath = localPath
		}
	default:
		fetched, err := r.fetchAttachment(ctx, post, remoteURL)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			slog.Warn("Failed to fetch attachment, creating it without a file",
				"post_id", post.ID,
				"url", remoteURL,
				"error", err)
			break
		}

		mimeType := detectMIME(fetched.Path)
		if !allowedMIME(mimeType) {
			os.Remove(fetched.Path)
			slog.Warn("Attachment skipped",
				"post_id", post.ID,
				"url", remoteURL,
				"error", fmt.Errorf("%w: unsupported file type %q", ErrValidation, mimeType))
			return 0, nil
		}

		filePath = fetched.Path
		fileURL = r.im.rewriter.URLFor(fetched.Path)
		if err := r.remapAttachmentURLs(ctx, post, fetched.FinalURL, remoteURL, localURL, fileURL, mimeType); err != nil {
			return 0, err
		}
	}

	record.GUID = fileURL
	record.MimeType = mimeTypeOf(filePath, fileURL)

	id, err := r.im.store.InsertPost(ctx, record)
	if err != nil {
		return 0, r.recoverable(ctx, "Failed to import attachment", err, "post_id", post.ID)
	}

	if filePath != "" {
		r.recordAttachmentFile(ctx, id, filePath, record.MimeType)
	}
	return id, nil
}

func (r *run) fetchAttachment(ctx context.Context, post *wxr.Post, remoteURL string) (*media.FetchResult, error) {
	year, month := uploadDate(post)
	dir, err := r.im.rewriter.DatedDir(year, month)
	if err != nil {
		return nil, err
	}

	name := path.Base(urlPath(remoteURL))
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("attachment-%d", post.ID)
	}
	dest := filepath.Join(dir, media.UniqueFilename(dir, name))

	return r.im.fetcher.Fetch(ctx, remoteURL, dest)
}

// remapAttachmentURLs maps every URL the source used for an attachment to fileURL.
func (r *run) remapAttachmentURLs(ctx context.Context, post *wxr.Post, finalURL, remoteURL, localURL, fileURL, mimeType string) error {
	olds := []string{remoteURL, post.GUID, finalURL, localURL}
	for _, old := range olds {
		if err := r.state.addURL(ctx, old, fileURL); err != nil {
			return err
		}
	}

	if !strings.HasPrefix(mimeType, "image/") {
		return nil
	}
	newStub := urlStub(fileURL)
	for _, old := range []string{remoteURL, localURL} {
		if err := r.state.addURL(ctx, urlStub(old), newStub); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) recordAttachmentFile(ctx context.Context, id int64, filePath, mimeType string) {
	rel := r.im.rewriter.Relative(filePath)
	if err := r.im.store.SetPostMeta(ctx, id, "_wp_attached_file", rel); err != nil {
		slog.Warn("Failed to record attached file", "post_id", id, "error", err)
	}

	if !strings.HasPrefix(mimeType, "image/") || !fileExists(filePath) {
		return
	}

	meta, err := media.GenerateSizes(filePath, r.im.opts.ImageSizes)
	if err != nil {
		slog.Warn("Failed to generate image sizes", "post_id", id, "path", filePath, "error", err)
		return
	}
	meta.File = rel
	if err := r.im.store.SetPostMeta(ctx, id, "_wp_attachment_metadata", meta.Serialize()); err != nil {
		slog.Warn("Failed to record attachment metadata", "post_id", id, "error", err)
	}
}

// uploadDate picks the uploads/YYYY/MM folder from _wp_attached_file, falling back to the post date.
func uploadDate(post *wxr.Post) (string, string) {
	if attached, ok := post.MetaValue("_wp_attached_file"); ok {
		if m := attachedFileDate.FindStringSubmatch(attached); m != nil {
			return m[1], m[2]
		}
	}
	if len(post.Date) >= 7 && post.Date[4] == '-' {
		return post.Date[:4], post.Date[5:7]
	}
	now := time.Now()
	return now.Format("2006"), now.Format("01")
}

// urlStub strips the extension from the last path segment.
func urlStub(u string) string {
	ext := path.Ext(u)
	if ext == "" || strings.Contains(ext, "/") {
		return u
	}
	return strings.TrimSuffix(u, ext)
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func detectMIME(filePath string) string {
	mt, err := mimetype.DetectFile(filePath)
	if err != nil {
		return ""
	}
	mediaType, _, _ := strings.Cut(mt.String(), ";")
	return mediaType
}

// mimeTypeOf prefers the file's content and falls back to the URL's extension.
func mimeTypeOf(filePath, fileURL string) string {
	if filePath != "" && fileExists(filePath) {
		if m := detectMIME(filePath); m != "" && m != "application/octet-stream" {
			return m
		}
	}
	mediaType, _, _ := strings.Cut(mime.TypeByExtension(path.Ext(urlPath(fileURL))), ";")
	return mediaType
}
