// ABOUTME: Tests for the HTTP MP3 stream source
// ABOUTME: Serves synthesized silent MP3 frames from httptest and checks stall handling
package decode

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentMP3Frames returns n MPEG-1 Layer III frames (128 kbps, 44.1 kHz, stereo)
// with zeroed side info and main data, which decode to silence.
func silentMP3Frames(n int) []byte {
	const frameSize = 417 // 144 * 128000 / 44100
	data := make([]byte, 0, n*frameSize)
	for i := 0; i < n; i++ {
		frame := make([]byte, frameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
		data = append(data, frame...)
	}
	return data
}

// stallingServer writes frames, flushes, then holds the connection open
func stallingServer(t *testing.T, frames int) *httptest.Server {
	t.Helper()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(silentMP3Frames(frames))
		w.(http.Flusher).Flush()

		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}

func TestHTTPMP3StreamsToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(silentMP3Frames(4))
	}))
	defer srv.Close()

	src, err := OpenHTTPMP3(srv.URL, zerolog.Nop())
	require.NoError(t, err)
	defer src.Close()

	format := src.Format()
	assert.Equal(t, "mp3-http", format.Codec)
	assert.Equal(t, 44100, format.SampleRate)
	assert.Equal(t, 2, format.Channels)

	buf := make([]int32, 1024)
	total := 0
	for {
		n := src.Pull(buf)
		if n == 0 {
			break
		}
		assert.Zero(t, n%2, "pull must return whole frames")
		total += n
	}
	assert.Positive(t, total)
}

func TestHTTPMP3RejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := OpenHTTPMP3(srv.URL, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPMP3InterruptReleasesStalledPull(t *testing.T) {
	srv := stallingServer(t, 2)

	src, err := OpenHTTPMP3(srv.URL, zerolog.Nop())
	require.NoError(t, err)
	defer src.Close()

	// Ask for far more audio than the server sent so Pull waits on the socket
	buf := make([]int32, 64*1152*2)
	returned := make(chan int, 1)
	go func() { returned <- src.Pull(buf) }()

	select {
	case <-returned:
		t.Fatal("Pull returned before the stream stalled")
	case <-time.After(100 * time.Millisecond):
	}

	Interrupt(src)

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Pull still blocked after Interrupt")
	}
	assert.Zero(t, src.Pull(buf), "interrupted stream must report end")
}

func TestHTTPMP3InterruptThroughResampler(t *testing.T) {
	srv := stallingServer(t, 2)

	src, err := OpenHTTPMP3(srv.URL, zerolog.Nop())
	require.NoError(t, err)

	wrapped := Resampled(src, 48000)
	defer wrapped.Close()
	_, ok := wrapped.(Interrupter)
	require.True(t, ok)

	buf := make([]int32, 64*1152*2)
	returned := make(chan struct{})
	go func() {
		for wrapped.Pull(buf) > 0 {
		}
		close(returned)
	}()

	time.Sleep(100 * time.Millisecond)
	Interrupt(wrapped)

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("resampled Pull still blocked after Interrupt")
	}
}
