package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/autoblog"
	"github.com/lightnindragon/listgenius/pkg/model"
	"github.com/lightnindragon/listgenius/pkg/store/postgres"
)

// ErrAlreadyPublished reports a same-day duplicate rejected by the store's
// unique index. The pipeline treats it as a hard failure.
var ErrAlreadyPublished = errors.New("post already published for this owner today")

// PostStore is the slice of the post repository the publisher needs.
type PostStore interface {
	GetByID(ctx context.Context, id string) (*model.Post, error)
	PublishPost(ctx context.Context, id string, publishedAt, publishedOn time.Time, url string) error
}

// Publisher promotes an approved post to its public URL. The store enforces
// the at-most-one-auto-post-per-owner-per-day constraint at commit time.
type Publisher struct {
	posts   PostStore
	baseURL string
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

func New(posts PostStore, baseURL string, loc *time.Location, logger *zap.Logger) *Publisher {
	if loc == nil {
		loc = time.UTC
	}
	return &Publisher{
		posts:   posts,
		baseURL: strings.TrimRight(baseURL, "/"),
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *Publisher) Publish(ctx context.Context, postID string) (string, error) {
	post, err := p.posts.GetByID(ctx, postID)
	if err != nil {
		return "", fmt.Errorf("load post %s: %w", postID, err)
	}

	url := p.publicURL(post)
	publishedAt := p.now()
	local := publishedAt.In(p.loc)
	publishedOn := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.loc)

	if err := p.posts.PublishPost(ctx, postID, publishedAt, publishedOn, url); err != nil {
		if errors.Is(err, postgres.ErrDuplicatePublish) {
			return "", fmt.Errorf("publish post %s: %w", postID, ErrAlreadyPublished)
		}
		return "", fmt.Errorf("publish post %s: %w", postID, err)
	}

	p.logger.Info("post published",
		zap.String("post_id", postID),
		zap.String("owner_id", post.OwnerID.String()),
		zap.String("url", url),
	)

	return url, nil
}

func (p *Publisher) publicURL(post *model.Post) string {
	slug := post.Slug
	if slug == "" {
		slug = autoblog.Slugify(post.PrimaryKeyword)
	}
	return fmt.Sprintf("%s/blog/%s", p.baseURL, slug)
}
