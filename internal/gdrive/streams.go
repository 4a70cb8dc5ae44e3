package gdrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gdrive/internal/accounts"
	"gdrive/internal/logging"
)

// ResolutionOriginal names the untranscoded file.
const ResolutionOriginal = "Original"

// itagResolutions maps the transcode formats Drive serves to display labels,
// highest quality first.
var itagResolutions = []struct {
	itag       string
	resolution string
}{
	{"37", "1080P"},
	{"22", "720P"},
	{"59", "480P"},
	{"18", "360P"},
}

// Stream is one transcoded rendition of a file.
type Stream struct {
	Resolution string
	URL        string
}

// Streams returns the transcoded renditions Drive offers for fileID, highest
// resolution first. A file that has not been transcoded yields no streams
// and no error.
func (c *Client) Streams(ctx context.Context, account accounts.Account, fileID string) ([]Stream, error) {
	httpClient, err := c.authorizedClient(ctx, account)
	if err != nil {
		return nil, err
	}
	endpoint, err := url.Parse(c.videoInfoURL)
	if err != nil {
		return nil, fmt.Errorf("parse video info url: %w", err)
	}
	params := endpoint.Query()
	params.Set("docid", strings.TrimSpace(fileID))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch video info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video info returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read video info: %w", err)
	}
	streams, err := ParseVideoInfo(string(body))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("streams resolved",
		logging.String(logging.FieldAccount, account.Name),
		logging.String("file_id", fileID),
		logging.Int("streams", len(streams)))
	return streams, nil
}

// ParseVideoInfo extracts the known renditions from a get_video_info body.
// fmt_stream_map entries are "itag|url" pairs separated by commas.
func ParseVideoInfo(body string) ([]Stream, error) {
	values, err := url.ParseQuery(strings.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("parse video info: %w", err)
	}
	if status := values.Get("status"); status != "" && status != "ok" {
		return nil, nil
	}
	urls := make(map[string]string)
	for _, entry := range strings.Split(values.Get("fmt_stream_map"), ",") {
		itag, streamURL, ok := strings.Cut(entry, "|")
		if !ok || streamURL == "" {
			continue
		}
		urls[strings.TrimSpace(itag)] = streamURL
	}
	var streams []Stream
	for _, known := range itagResolutions {
		if streamURL, ok := urls[known.itag]; ok {
			streams = append(streams, Stream{Resolution: known.resolution, URL: streamURL})
		}
	}
	return streams, nil
}
