package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"dugo-banana-studio/internal/media"
)

var (
	errBadRequest = errors.New("bad request")
	errTooLarge   = errors.New("upload too large")
)

// readUpload returns the "image" part of a multipart form. The declared
// type is ignored: only bytes that sniff as PNG, JPEG or WEBP pass.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (media.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return media.Image{}, errTooLarge
		}
		return media.Image{}, fmt.Errorf("%w: invalid multipart form", errBadRequest)
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return media.Image{}, fmt.Errorf("%w: missing image", errBadRequest)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.Image{}, fmt.Errorf("%w: failed to read image", errBadRequest)
	}

	img, err := media.New(data, "")
	if err != nil {
		return media.Image{}, fmt.Errorf("upload: %w", err)
	}
	return img, nil
}

// decodeJSON reads a small JSON body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathIndex(r *http.Request) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: history index", errBadRequest)
	}
	return n, nil
}

func writeImage(w http.ResponseWriter, img media.Image, filename string) {
	w.Header().Set("content-type", img.MimeType)
	w.Header().Set("content-length", strconv.Itoa(len(img.Data)))
	if filename != "" {
		w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func (s *Server) callContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}
