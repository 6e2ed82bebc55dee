package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/angeloszaimis/clientid-rotator/internal/identity"
)

const (
	kindTrack           = "track"
	protocolProgressive = "progressive"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type Format struct {
	Protocol string `json:"protocol"`
	MimeType string `json:"mime_type"`
}

type Transcoding struct {
	URL      string `json:"url"`
	Preset   string `json:"preset"`
	Duration int64  `json:"duration"`
	Snipped  bool   `json:"snipped"`
	Format   Format `json:"format"`
}

type Media struct {
	Transcodings []Transcoding `json:"transcodings"`
}

// Track is the subset of the /resolve response the rotator uses.
type Track struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	DurationMS   int64  `json:"duration"`
	Genre        string `json:"genre"`
	Description  string `json:"description"`
	ArtworkURL   string `json:"artwork_url"`
	PermalinkURL string `json:"permalink_url"`
	CreatedAt    string `json:"created_at"`
	User         User   `json:"user"`
	Media        Media  `json:"media"`
}

func (t *Track) Artist() string {
	return t.User.Username
}

func (t *Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// Resolve looks up the track behind a public SoundCloud URL.
func (c *Client) Resolve(ctx context.Context, trackURL string) (*Track, error) {
	if err := ValidateTrackURL(trackURL); err != nil {
		return nil, err
	}

	c.logger.Info("Resolving URL", slog.String("url", trackURL))

	var track Track
	if err := c.Do(ctx, "/resolve", url.Values{"url": {trackURL}}, &track); err != nil {
		return nil, fmt.Errorf("resolving %s: %w", trackURL, err)
	}

	if track.Kind != kindTrack {
		return nil, fmt.Errorf("%w: %s is a %q", ErrNotATrack, trackURL, track.Kind)
	}

	c.logger.Info("Retrieved track",
		slog.String("artist", track.Artist()),
		slog.String("title", track.Title))

	return &track, nil
}

// StreamURL returns a playable media URL for track. Progressive transcodings
// are tried first, then the first listed transcoding.
func (c *Client) StreamURL(ctx context.Context, track *Track) (string, error) {
	candidates := streamCandidates(track.Media.Transcodings)
	if len(candidates) == 0 {
		return "", ErrNoStream
	}

	var lastErr error
	for _, tc := range candidates {
		var media struct {
			URL string `json:"url"`
		}

		err := c.Do(ctx, tc.URL, nil, &media)
		switch {
		case err == nil && media.URL != "":
			return media.URL, nil
		case err == nil:
			lastErr = fmt.Errorf("transcoding %s returned no url", tc.Preset)
		case errors.Is(err, identity.ErrAllIdentitiesExhausted), ctx.Err() != nil:
			return "", err
		default:
			lastErr = err
		}

		c.logger.Debug("Transcoding unusable, trying next",
			slog.String("preset", tc.Preset),
			slog.String("protocol", tc.Format.Protocol),
			slog.String("error", lastErr.Error()))
	}

	return "", fmt.Errorf("%w: %w", ErrNoStream, lastErr)
}

func streamCandidates(transcodings []Transcoding) []Transcoding {
	var out []Transcoding
	for _, tc := range transcodings {
		if tc.URL != "" && tc.Format.Protocol == protocolProgressive {
			out = append(out, tc)
		}
	}

	if len(transcodings) > 0 && transcodings[0].URL != "" && transcodings[0].Format.Protocol != protocolProgressive {
		out = append(out, transcodings[0])
	}

	return out
}
