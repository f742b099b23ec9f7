package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nvr-ai/asciidraw/cache"
)

// Client-facing error messages. Internal causes are only logged.
const (
	msgFileTooLarge    = "File too large"
	msgNoFile          = "No file uploaded"
	msgInvalidImage    = "Invalid or malicious image file"
	msgInvalidWidth    = "Invalid width"
	msgProcessingError = "Failed to process image"
)

type ctxKey struct{}

// withRequestID tags every request and response with a fresh X-Request-ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// isTerminal reports whether the client is curl, which gets ANSI output.
func isTerminal(r *http.Request) bool {
	return strings.Contains(r.UserAgent(), "curl")
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	s.prof.Inc("requests")
	defer s.prof.StartOperation("request")()

	data, status, msg, err := s.readUpload(w, r)
	if err != nil {
		log.Printf("[%s] Upload rejected: %v", id, err)
		s.prof.Inc("rejected.upload")
		writeError(w, status, msg)
		return
	}

	terminal := isTerminal(r)
	opts := s.cfg.Options(terminal)
	if raw := r.FormValue("width"); raw != "" {
		width, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || width <= 0 {
			log.Printf("[%s] Invalid width %q", id, raw)
			writeError(w, http.StatusBadRequest, msgInvalidWidth)
			return
		}
		opts.Width = min(width, s.cfg.Limits.MaxGridWidth)
	}

	done := s.prof.StartOperation("validate")
	meta, err := s.validator.Check(data)
	done()
	if err != nil {
		log.Printf("[%s] Image rejected: %v", id, err)
		s.prof.Inc("rejected.image")
		writeError(w, http.StatusBadRequest, msgInvalidImage)
		return
	}

	key := cache.Key(data, opts)
	out, hit := s.cache.Get(key)
	if hit {
		s.prof.Inc("cache.hit")
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Limits.ConvertTimeout)
		done := s.prof.StartOperation("convert")
		out, err = s.converter.ConvertContext(ctx, data, opts)
		done()
		cancel()

		if err != nil {
			log.Printf("[%s] Conversion of %s %dx%d failed: %v", id, meta.Format, meta.Width, meta.Height, errors.Cause(err))
			s.prof.Inc("failed")
			writeError(w, http.StatusInternalServerError, msgProcessingError)
			return
		}
		s.cache.Put(key, out)
	}

	log.Printf("[%s] Converted %s %dx%d at width %d (terminal=%t, cached=%t)",
		id, meta.Format, meta.Width, meta.Height, opts.Width, terminal, hit)

	if terminal {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, out)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ascii": out})
}

// readUpload returns the bytes of the "file" field, or the status and
// client message to reply with.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, int, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Limits.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.cfg.Limits.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, msgFileTooLarge, errors.Wrapf(err, "body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, http.StatusBadRequest, msgNoFile, errors.Wrap(err, "failed to parse multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, msgNoFile, errors.Wrap(err, "missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, msgNoFile, errors.Wrapf(err, "failed to read %q", header.Filename)
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, msgNoFile, errors.Errorf("%q is empty", header.Filename)
	}

	return data, 0, "", nil
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	if !isTerminal(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/x-shellscript")
	if err := renderScript(w, s.origin(r)); err != nil {
		log.Printf("[%s] Failed to render script: %v", requestID(r), err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	origin := s.origin(r)
	fmt.Fprintf(w, "ASCII Draw\n\n")
	fmt.Fprintf(w, "  Convert a file:   curl -F \"file=@image.png\" %s/api/convert\n", origin)
	fmt.Fprintf(w, "  Pick interactively: curl -s %s/api/convert | bash\n", origin)
	fmt.Fprintf(w, "\nAccepted formats: JPEG, PNG, WEBP, GIF up to %dx%d, %d bytes.\n",
		s.cfg.Limits.MaxImageWidth, s.cfg.Limits.MaxImageHeight, s.cfg.Limits.MaxUploadBytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"cache":   s.cache.Stats(),
		"metrics": s.prof.Snapshot(),
	})
}

// origin is the scheme and host clients should post back to.
func (s *Server) origin(r *http.Request) string {
	if s.cfg.Server.PublicURL != "" {
		return strings.TrimRight(s.cfg.Server.PublicURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
