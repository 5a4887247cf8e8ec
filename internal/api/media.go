package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/bookwise/bookwise/internal/media"
	"github.com/bookwise/bookwise/internal/storage"
)

// maxVoiceUploadBytes bounds the multipart body held in memory while the
// audio file part is extracted.
const maxVoiceUploadBytes = 25 << 20

func handleVoiceToImage(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Media == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MEDIA_NOT_CONFIGURED", "media dependencies are not configured", false, nil)
		return
	}

	if err := r.ParseMultipartForm(maxVoiceUploadBytes); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart request body", false, map[string]any{"details": err.Error()})
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "AUDIO_REQUIRED", "an audio file part named \"audio\" is required", false, nil)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := deps.Media.VoiceToImage(r.Context(), file, header.Filename)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "MEDIA_PIPELINE_FAILED", "voice to image pipeline failed", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func handleArchivedMedia(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Media == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MEDIA_NOT_CONFIGURED", "media dependencies are not configured", false, nil)
		return
	}

	reader, contentType, err := deps.Media.Archived(r.Context(), r.PathValue("id"), r.PathValue("file"))
	if err != nil {
		switch {
		case errors.Is(err, media.ErrArchiveDisabled):
			writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "the media archive is not enabled", false, nil)
		case errors.Is(err, storage.ErrObjectNotFound):
			writeError(r.Context(), w, http.StatusNotFound, "ARCHIVE_OBJECT_NOT_FOUND", "no such archived media file", false, nil)
		default:
			writeError(r.Context(), w, http.StatusBadGateway, "ARCHIVE_READ_FAILED", "failed to read archived media", true, map[string]any{"details": err.Error()})
		}
		return
	}
	defer func() { _ = reader.Close() }()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
