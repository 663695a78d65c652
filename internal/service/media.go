package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"outfitsquare/internal/config"
	domain "outfitsquare/internal/model"
)

const jpegQuality = 85

// MediaService stores square post images in Cloudflare R2.
type MediaService struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if !cfg.MediaEnabled() {
		return nil, domain.ErrMediaNotAvailable
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	log.Printf("[MediaService] R2 configured: bucket=%s", cfg.R2BucketName)
	return &MediaService{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

// UploadPostImage validates the upload, stores a normalised JPEG within
// 1080x1350 and a square thumbnail, and returns both public URLs.
func (s *MediaService) UploadPostImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*domain.UploadResult, error) {
	data, _, err := readAndValidateImage(file, header, domain.MaxPostImageSizeBytes)
	if err != nil {
		return nil, err
	}

	full, thumb, err := normalizePostImage(data)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s/%s%s", domain.PostImageFolder, id, domain.ImageExt)
	thumbKey := fmt.Sprintf("%s/%s%s", domain.ThumbnailFolder, id, domain.ImageExt)

	if err := s.putObject(ctx, key, full, domain.ContentTypeJPEG, domain.ImageCacheControl); err != nil {
		return nil, err
	}
	if err := s.putObject(ctx, thumbKey, thumb, domain.ContentTypeJPEG, domain.ImageCacheControl); err != nil {
		_ = s.DeleteObject(ctx, key)
		return nil, err
	}

	log.Printf("[MediaService] UploadPostImage OK: key=%s bytes=%d", key, len(full))
	return &domain.UploadResult{
		URL:          s.objectURL(key),
		Key:          key,
		ThumbnailURL: s.objectURL(thumbKey),
		ThumbnailKey: thumbKey,
	}, nil
}

// PresignPostUpload returns a presigned PUT so the app can upload the image
// bytes straight to R2.
func (s *MediaService) PresignPostUpload(ctx context.Context, req domain.PresignPostUploadRequest) (*domain.PresignPostUploadResponse, error) {
	contentType := strings.TrimSpace(req.ContentType)
	if !domain.IsAllowedImageType(contentType) {
		return nil, domain.ErrInvalidImageType
	}
	if req.FileSize > domain.MaxPostImageSizeBytes {
		return nil, domain.ErrFileTooLarge
	}

	key := fmt.Sprintf("%s/%s%s", domain.PostImageFolder, uuid.NewString(), extensionFor(contentType))
	expires := time.Duration(domain.PresignExpirySeconds) * time.Second

	presigned, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(domain.ImageCacheControl),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &domain.PresignPostUploadResponse{
		UploadURL:  presigned.URL,
		PublicURL:  s.objectURL(key),
		Key:        key,
		ExpiresInS: domain.PresignExpirySeconds,
	}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case domain.ContentTypePNG:
		return ".png"
	case domain.ContentTypeGIF:
		return ".gif"
	case domain.ContentTypeWebP:
		return ".webp"
	}
	return domain.ImageExt
}

func (s *MediaService) objectURL(key string) string {
	return s.publicURL + "/" + key
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", domain.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !domain.IsAllowedImageType(contentType) {
		return nil, "", domain.ErrInvalidImageType
	}

	return data, contentType, nil
}

// normalizePostImage scales the image down to fit the post bounds (never up)
// and crops a centred square thumbnail. Both are JPEG encoded.
func normalizePostImage(data []byte) (full, thumb []byte, err error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidImageType, err)
	}

	fitted := imaging.Fit(img, domain.PostImageMaxWidth, domain.PostImageMaxHeight, imaging.Lanczos)
	square := imaging.Fill(img, domain.ThumbnailSize, domain.ThumbnailSize, imaging.Center, imaging.Lanczos)

	if full, err = encodeJPEG(fitted); err != nil {
		return nil, nil, err
	}
	if thumb, err = encodeJPEG(square); err != nil {
		return nil, nil, err
	}
	return full, thumb, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// putObject uploads bytes to R2 with metadata.
func (s *MediaService) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

// DeleteObject removes an object by key.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}
