package importer

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/demo-importer/app/database"
	"github.com/lysyi3m/demo-importer/app/wxr"
)

// documentAuthors returns the document's authors, or the distinct post creators
// when the document lists none.
func documentAuthors(doc *wxr.Document) []wxr.Author {
	if len(doc.AuthorOrder) > 0 {
		authors := make([]wxr.Author, 0, len(doc.AuthorOrder))
		for _, login := range doc.AuthorOrder {
			authors = append(authors, doc.Authors[login])
		}
		return authors
	}

	seen := make(map[string]bool)
	var authors []wxr.Author
	for _, post := range doc.Posts {
		if post.Creator == "" || seen[post.Creator] {
			continue
		}
		seen[post.Creator] = true
		authors = append(authors, wxr.Author{Login: post.Creator, DisplayName: post.Creator})
	}
	return authors
}

// mapAuthors resolves every author to a user id. It is repeated on each chunk and
// only creates users that do not exist yet.
func (r *run) mapAuthors(ctx context.Context) error {
	for _, author := range documentAuthors(r.doc) {
		login := wxr.SanitizeUser(author.Login)
		if login == "" {
			continue
		}

		userID := r.im.opts.DefaultAuthor
		if r.im.opts.CreateUsers {
			id, err := r.ensureUser(ctx, login, author)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("Failed to create user, using default author",
					"login", login,
					"default_author", userID,
					"error", err)
			} else {
				userID = id
			}
		}

		r.state.Authors[login] = userID
		if author.ID > 0 {
			r.state.AuthorIDs[author.ID] = userID
		}
	}
	return nil
}

func (r *run) ensureUser(ctx context.Context, login string, author wxr.Author) (int64, error) {
	user, err := r.im.store.UserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}
	if user != nil {
		return user.ID, nil
	}

	id, err := r.im.store.InsertUser(ctx, database.User{
		Login:       login,
		Email:       author.Email,
		DisplayName: author.DisplayName,
		FirstName:   author.FirstName,
		LastName:    author.LastName,
	})
	if err != nil {
		return 0, err
	}

	slog.Info("User created", "login", login, "user_id", id)
	return id, nil
}

func (r *run) authorFor(creator string) int64 {
	if id, ok := r.state.Authors[wxr.SanitizeUser(creator)]; ok {
		return id
	}
	return r.im.opts.DefaultAuthor
}
