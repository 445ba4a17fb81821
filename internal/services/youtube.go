// YouTube Data API [VideoSearcher] implementation
package services

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// YouTubeSearch finds videos with the YouTube Data API v3 search endpoint.
type YouTubeSearch struct {
	svc        *youtube.Service
	safeSearch string
}

// YouTubeOptions configures [NewYouTubeSearch]. Endpoint and HTTPClient are for tests.
type YouTubeOptions struct {
	APIKey     string
	SafeSearch string
	Endpoint   string
	HTTPClient *http.Client
}

// NewYouTubeSearch creates a searcher. A missing key is reported as [shared.ErrNotConfigured].
func NewYouTubeSearch(ctx context.Context, opts YouTubeOptions) (*YouTubeSearch, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: YouTube API key not configured", shared.ErrNotConfigured)
	}
	if opts.SafeSearch == "" {
		opts.SafeSearch = "moderate"
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &YouTubeSearch{svc: svc, safeSearch: opts.SafeSearch}, nil
}

// Search returns up to q.MaxResults videos. Results without an id or title are dropped.
func (y *YouTubeSearch) Search(ctx context.Context, q VideoQuery) ([]models.Video, error) {
	if q.MaxResults <= 0 {
		q.MaxResults = 2
	}

	call := y.svc.Search.List([]string{"snippet"}).
		Q(q.Query).
		Type("video").
		MaxResults(int64(q.MaxResults)).
		SafeSearch(y.safeSearch)
	if q.Language != "" {
		call = call.RelevanceLanguage(q.Language)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: youtube search: %w", shared.ErrAPIRequest, err)
	}

	videos := make([]models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil || item.Snippet.Title == "" {
			continue
		}
		videos = append(videos, models.Video{
			ID:           item.Id.VideoId,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			Thumbnail:    thumbnailURL(item.Snippet.Thumbnails),
			URL:          models.WatchURL(item.Id.VideoId),
		})
	}
	return videos, nil
}

// thumbnailURL prefers the medium rendition.
func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	if t.Medium != nil && t.Medium.Url != "" {
		return t.Medium.Url
	}
	if t.Default != nil {
		return t.Default.Url
	}
	return ""
}
