package model

import "errors"

const (
	MaxPostImageSizeBytes = 10 * 1024 * 1024
	PostImageMaxWidth     = 1080
	PostImageMaxHeight    = 1350
	ThumbnailSize         = 360
	PostImageFolder       = "square"
	ThumbnailFolder       = "square/thumbs"
	ImageExt              = ".jpg"
	ImageCacheControl     = "public, max-age=31536000" // 1 year
	PresignExpirySeconds  = 15 * 60
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrInvalidImageType  = errors.New("invalid image type")
	ErrMediaNotAvailable = errors.New("media storage not configured")
)

// UploadResult is a stored post image and its thumbnail.
// Keys are the object keys inside the bucket, used for deletes.
type UploadResult struct {
	URL          string `json:"url"`
	Key          string `json:"key"`
	ThumbnailURL string `json:"thumbnail_url"`
	ThumbnailKey string `json:"thumbnail_key"`
}

// PresignPostUploadRequest requests a presigned URL for uploading a post image directly to R2.
// Client uploads bytes to UploadURL, then publishes with PublicURL as result_image_uri.
type PresignPostUploadRequest struct {
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"` // Optional but recommended for validation
}

// PresignPostUploadResponse returns upload details for direct-to-R2 uploads.
type PresignPostUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	PublicURL  string `json:"public_url"`
	Key        string `json:"key"`
	ExpiresInS int    `json:"expires_in"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
