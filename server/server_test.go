package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/asciidraw/ascii"
	"github.com/nvr-ai/asciidraw/config"
	"github.com/nvr-ai/asciidraw/profiler"
)

const curlUA = "curl/8.4.0"

func checkerboardPNG(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	img.SetRGBA(0, 0, color.RGBA{A: 255})
	img.SetRGBA(1, 0, white)
	img.SetRGBA(0, 1, color.RGBA{A: 255})
	img.SetRGBA(1, 1, white)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gradientPNG(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newUpload builds a multipart POST. A nil file omits the file field.
func newUpload(t *testing.T, file []byte, fields map[string]string, userAgent string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "upload.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestConvertTerminal(t *testing.T) {
	s := New(config.Default(), nil)

	rec := serve(s, newUpload(t, checkerboardPNG(t), map[string]string{"width": "2"}, curlUA))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x1b[38;2;0;0;0m@\x1b[38;2;255;255;255m \x1b[0m\n", rec.Body.String())

	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestConvertBrowser(t *testing.T) {
	s := New(config.Default(), nil)

	rec := serve(s, newUpload(t, checkerboardPNG(t), nil, "Mozilla/5.0"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	grid, err := ascii.ParseStructured(body["ascii"])
	require.NoError(t, err)
	assert.Equal(t, 150, grid.Width, "browser default width")
	assert.Equal(t, 75, grid.Height)
	assert.Equal(t, '@', grid.At(0, 0).Glyph)
	assert.Equal(t, ' ', grid.At(149, 74).Glyph)
}

func TestConvertTerminalDefaultWidth(t *testing.T) {
	s := New(config.Default(), nil)

	rec := serve(s, newUpload(t, gradientPNG(t, 200, 100), nil, curlUA))
	require.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
	assert.Len(t, lines, 20, "80 columns of a 2:1 image give 20 rows")
	for _, line := range lines {
		assert.Equal(t, 80, strings.Count(line, "\x1b[38;2;"))
	}
}

func TestConvertErrors(t *testing.T) {
	truncated := gradientPNG(t, 64, 64)
	truncated = truncated[:len(truncated)-40]

	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
		msg    string
	}{
		{
			name:   "missing file",
			req:    func(t *testing.T) *http.Request { return newUpload(t, nil, map[string]string{"width": "10"}, curlUA) },
			status: http.StatusBadRequest,
			msg:    "No file uploaded",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("hello"))
				req.Header.Set("Content-Type", "text/plain")
				return req
			},
			status: http.StatusBadRequest,
			msg:    "No file uploaded",
		},
		{
			name:   "not an image",
			req:    func(t *testing.T) *http.Request { return newUpload(t, []byte("<html></html>"), nil, curlUA) },
			status: http.StatusBadRequest,
			msg:    "Invalid or malicious image file",
		},
		{
			name: "oversized raster",
			req: func(t *testing.T) *http.Request {
				var buf bytes.Buffer
				require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4001, 2))))
				return newUpload(t, buf.Bytes(), nil, curlUA)
			},
			status: http.StatusBadRequest,
			msg:    "Invalid or malicious image file",
		},
		{
			name: "invalid width",
			req: func(t *testing.T) *http.Request {
				return newUpload(t, checkerboardPNG(t), map[string]string{"width": "wide"}, curlUA)
			},
			status: http.StatusBadRequest,
			msg:    "Invalid width",
		},
		{
			name: "negative width",
			req: func(t *testing.T) *http.Request {
				return newUpload(t, checkerboardPNG(t), map[string]string{"width": "-3"}, curlUA)
			},
			status: http.StatusBadRequest,
			msg:    "Invalid width",
		},
		{
			name:   "corrupt pixel data",
			req:    func(t *testing.T) *http.Request { return newUpload(t, truncated, nil, curlUA) },
			status: http.StatusInternalServerError,
			msg:    "Failed to process image",
		},
	}

	s := New(config.Default(), profiler.New(profiler.Options{}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req(t))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, errorBody(t, rec))
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestConvertFileTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxUploadBytes = 1024
	s := New(cfg, nil)

	rec := serve(s, newUpload(t, bytes.Repeat([]byte{0xff}, 4096), nil, curlUA))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File too large", errorBody(t, rec))
}

func TestConvertTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.ConvertTimeout = time.Nanosecond
	cfg.Cache.Entries = 0
	s := New(cfg, nil)

	rec := serve(s, newUpload(t, gradientPNG(t, 256, 256), nil, curlUA))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to process image", errorBody(t, rec))
}

func TestConvertWidthClamped(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxGridWidth = 50
	cfg.Conversion.TerminalWidth = 40
	cfg.Conversion.BrowserWidth = 40
	s := New(cfg, nil)

	rec := serve(s, newUpload(t, gradientPNG(t, 100, 100), map[string]string{"width": "5000"}, "Mozilla/5.0"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	grid, err := ascii.ParseStructured(body["ascii"])
	require.NoError(t, err)
	assert.Equal(t, 50, grid.Width)
}

func TestConvertUsesCache(t *testing.T) {
	prof := profiler.New(profiler.Options{})
	s := New(config.Default(), prof)
	data := gradientPNG(t, 120, 60)

	first := serve(s, newUpload(t, data, nil, curlUA))
	second := serve(s, newUpload(t, data, nil, curlUA))
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	stats := s.Cache().Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, int64(1), prof.Counter("cache.hit"))
	assert.Equal(t, int64(1), prof.Snapshot()["convert"].Count)

	// A different width is a different entry.
	third := serve(s, newUpload(t, data, map[string]string{"width": "20"}, curlUA))
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, 2, s.Cache().Stats().Entries)
}

func TestScript(t *testing.T) {
	s := New(config.Default(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/convert", nil)
	req.Header.Set("User-Agent", curlUA)
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/x-shellscript", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "#!/bin/bash\n"))
	assert.Contains(t, body, `curl -F "file=@$FILE" http://example.com/api/convert`)
	assert.Contains(t, body, `tr -d '\r'`)

	cfg := config.Default()
	cfg.Server.PublicURL = "https://ascii.example.org/"
	rec = serve(New(cfg, nil), req)
	assert.Contains(t, rec.Body.String(), "https://ascii.example.org/api/convert")

	req.Header.Set("X-Forwarded-Proto", "https")
	rec = serve(s, req)
	assert.Contains(t, rec.Body.String(), "https://example.com/api/convert")
}

func TestScriptRedirectsBrowsers(t *testing.T) {
	s := New(config.Default(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/convert", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := serve(s, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestIndexAndHealth(t *testing.T) {
	s := New(config.Default(), profiler.New(profiler.Options{}))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "curl -s http://example.com/api/convert | bash")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/api/convert", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(config.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	req, err := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/healthz", nil)
	require.NoError(t, err)

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.DefaultClient.Do(req)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
