package providers

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeClient implements VideoUploader via the YouTube Data API v3 using a
// refresh-token OAuth client. Videos.Insert uses the library's resumable
// upload; Thumbnails.Set is idempotent and may be retried independently.
type YouTubeClient struct {
	service *youtube.Service
}

// NewYouTubeClient authenticates from YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET,
// and YOUTUBE_REFRESH_TOKEN.
func NewYouTubeClient(ctx context.Context) (*YouTubeClient, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("youtube: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	svc, err := youtube.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &YouTubeClient{service: svc}, nil
}

// UploadVideo uploads the file with full metadata and returns the video ID.
func (c *YouTubeClient) UploadVideo(ctx context.Context, req UploadRequest) (string, error) {
	f, err := os.Open(req.VideoPath)
	if err != nil {
		return "", fmt.Errorf("youtube upload: open video file: %w", err)
	}
	defer f.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                req.Title,
			Description:          req.Description,
			Tags:                 req.Tags,
			CategoryId:           req.CategoryID,
			DefaultLanguage:      req.DefaultLanguage,
			DefaultAudioLanguage: req.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           req.Privacy,
			SelfDeclaredMadeForKids: req.MadeForKids,
		},
	}

	call := c.service.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)
	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}
	return uploaded.Id, nil
}

// UploadThumbnail attaches a thumbnail image to an uploaded video.
func (c *YouTubeClient) UploadThumbnail(ctx context.Context, videoID, thumbnailPath string) error {
	f, err := os.Open(thumbnailPath)
	if err != nil {
		return fmt.Errorf("youtube thumbnail: open file: %w", err)
	}
	defer f.Close()

	call := c.service.Thumbnails.Set(videoID)
	call.Media(f)
	if _, err := call.Context(ctx).Do(); err != nil {
		return fmt.Errorf("youtube thumbnail: %w", err)
	}
	return nil
}
