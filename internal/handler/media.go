package handler

import (
	"net/http"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/service"
)

const maxMultipartMemory = 2 << 20

// MediaHandler serves post image uploads. mediaService is nil when R2 is
// not configured; every route then answers 503.
type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

func (h *MediaHandler) available(w http.ResponseWriter) bool {
	if h.mediaService == nil {
		httputil.WriteServiceError(w, "Media handler", model.ErrMediaNotAvailable, "Media storage not configured")
		return false
	}
	return true
}

// Upload handles POST /media/posts (multipart field "image").
// The image is normalised server-side and stored with a thumbnail.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if !h.available(w) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, model.MaxPostImageSizeBytes+(1<<20))
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit or form is malformed")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteBadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	res, err := h.mediaService.UploadPostImage(r.Context(), file, header)
	if err != nil {
		httputil.WriteServiceError(w, "Upload media handler", err, "Failed to upload image")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, res)
}

// PresignPostUpload handles POST /media/posts/presign
// Returns a presigned URL for uploading post media directly to R2.
func (h *MediaHandler) PresignPostUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if !h.available(w) {
		return
	}

	var req model.PresignPostUploadRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	res, err := h.mediaService.PresignPostUpload(r.Context(), req)
	if err != nil {
		httputil.WriteServiceError(w, "PresignPostUpload handler", err, "Failed to create upload URL")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
