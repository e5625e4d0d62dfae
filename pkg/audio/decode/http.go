// ABOUTME: HTTP MP3 stream source
// ABOUTME: Streams MP3 audio from an HTTP(S) URL without looping
package decode

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// httpClient bounds connection setup; the body itself streams until interrupted
var httpClient = &http.Client{Transport: newHTTPTransport()}

func newHTTPTransport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = 15 * time.Second
	return transport
}

// OpenHTTPMP3 starts streaming MP3 audio from url.
// The returned source implements Interrupter: Interrupt aborts the request,
// releasing a Pull that is waiting on a stalled server.
func OpenHTTPMP3(url string, logger zerolog.Logger) (Source, error) {
	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build HTTP request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	logger = logger.With().Str("url", url).Logger()
	src, err := newMP3Source(resp.Body, logger)
	if err != nil {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}
	src.format.Codec = "mp3-http"

	logger.Info().Int("sample_rate", src.format.SampleRate).Msg("Streaming MP3 from HTTP")

	return &closingSource{Source: src, closer: resp.Body, cancel: cancel}, nil
}
