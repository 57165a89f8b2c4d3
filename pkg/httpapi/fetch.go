package httpapi

import (
	"context"
	"io"
	"net/http"
	"strings"

	"voiceauth-server/pkg/config"
	"voiceauth-server/pkg/errors"
	"voiceauth-server/pkg/version"
)

// audioFetcher downloads remote audio referenced by audioUrl requests.
type audioFetcher struct {
	client   *http.Client
	maxBytes int64
}

func newAudioFetcher(cfg config.AudioConfig) *audioFetcher {
	return &audioFetcher{
		client:   &http.Client{Timeout: cfg.FetchTimeout},
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch retrieves the audio at url, enforcing the configured size cap.
func (f *audioFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, errors.NewInvalidInput("audioUrl must be an http or https URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewInvalidInput("invalid audioUrl")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAudioFetch, "failed to fetch audio").
			WithField("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(errors.ErrAudioFetch, "audio fetch returned non-200 status").
			WithField("url", url).
			WithField("status", resp.StatusCode)
	}

	// Read one byte past the cap so oversized bodies are detectable.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrAudioFetch, "failed to read audio body").
			WithField("url", url)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, errors.NewInvalidInput("fetched audio exceeds size limit").
			WithField("limit_bytes", f.maxBytes)
	}
	if len(data) == 0 {
		return nil, errors.Wrap(errors.ErrAudioFetch, "fetched audio is empty").
			WithField("url", url)
	}

	return data, nil
}
