package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lightnindragon/listgenius/pkg/autoblog"
)

// WriterClient asks the content-generation service to produce and persist a
// blog post for a topic package.
type WriterClient struct {
	client *Client
}

func NewWriterClient(baseURL, apiKey string, timeout time.Duration) *WriterClient {
	return &WriterClient{client: newClient(baseURL, apiKey, timeout)}
}

type generateRequest struct {
	OwnerID           string   `json:"owner_id"`
	PrimaryKeyword    string   `json:"primary_keyword"`
	SecondaryKeywords []string `json:"secondary_keywords,omitempty"`
	Category          string   `json:"category"`
	InternalLink      string   `json:"internal_link"`
}

type generateResponse struct {
	PostID    string `json:"post_id"`
	WordCount int    `json:"word_count"`
}

func (c *WriterClient) GenerateContent(ctx context.Context, ownerID uuid.UUID, topic *autoblog.TopicPackage) (*autoblog.GeneratedContent, error) {
	req := generateRequest{
		OwnerID:           ownerID.String(),
		PrimaryKeyword:    topic.PrimaryKeyword,
		SecondaryKeywords: topic.SecondaryKeywords,
		Category:          topic.Category,
		InternalLink:      topic.InternalLink,
	}

	var resp generateResponse
	if err := c.client.postJSON(ctx, "/v1/generate", req, &resp); err != nil {
		return nil, err
	}
	if resp.PostID == "" {
		return nil, fmt.Errorf("writer returned no post id")
	}

	return &autoblog.GeneratedContent{
		PostID:    resp.PostID,
		WordCount: resp.WordCount,
	}, nil
}
