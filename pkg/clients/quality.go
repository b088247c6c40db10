package clients

import (
	"context"
	"time"

	"github.com/lightnindragon/listgenius/pkg/autoblog"
)

// QualityClient wraps the scoring service, which owns both the quality
// threshold and the revision model. The pipeline only relays its verdicts.
type QualityClient struct {
	client *Client
}

func NewQualityClient(baseURL, apiKey string, timeout time.Duration) *QualityClient {
	return &QualityClient{client: newClient(baseURL, apiKey, timeout)}
}

type scoreRequest struct {
	PostID string `json:"post_id"`
}

type scoreResponse struct {
	Score    float64 `json:"score"`
	Approved bool    `json:"approved"`
}

func (c *QualityClient) Assess(ctx context.Context, postID string) (*autoblog.Assessment, error) {
	var resp scoreResponse
	if err := c.client.postJSON(ctx, "/v1/score", scoreRequest{PostID: postID}, &resp); err != nil {
		return nil, err
	}
	return &autoblog.Assessment{Score: resp.Score, Approved: resp.Approved}, nil
}

type reviseRequest struct {
	PostID string `json:"post_id"`
}

type reviseResponse struct {
	RevisionCount int `json:"revision_count"`
}

func (c *QualityClient) Revise(ctx context.Context, postID string) (int, error) {
	var resp reviseResponse
	if err := c.client.postJSON(ctx, "/v1/revise", reviseRequest{PostID: postID}, &resp); err != nil {
		return 0, err
	}
	return resp.RevisionCount, nil
}
