package upstream

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var trackHosts = []any{"soundcloud.com", "www.soundcloud.com", "m.soundcloud.com"}

// ValidateTrackURL checks that raw is a SoundCloud URL with a non-root path.
// The returned error wraps ErrInvalidURL.
func ValidateTrackURL(raw string) error {
	err := validation.Validate(raw,
		validation.Required,
		is.URL,
		validation.By(validateTrackLocation),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	return nil
}

func validateTrackLocation(value any) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if err := validation.Validate(strings.ToLower(u.Host), validation.In(trackHosts...)); err != nil {
		return validation.NewError("validation_invalid_host", "must be a soundcloud.com URL")
	}

	if u.Path == "" || u.Path == "/" {
		return validation.NewError("validation_invalid_path", "must point to a track, not the site root")
	}

	return nil
}

// ParseTrackPath extracts the artist and track slug from a SoundCloud track URL.
func ParseTrackPath(raw string) (artist, slug string, err error) {
	if err := ValidateTrackURL(raw); err != nil {
		return "", "", err
	}

	u, _ := url.Parse(raw)

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: expected /<artist>/<track> path, got %q", ErrInvalidURL, u.Path)
	}

	return parts[0], parts[1], nil
}
