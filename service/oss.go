package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"storyboard-server/config"
)

const (
	presignExpiry  = 72 * time.Hour
	maxMirrorBytes = 64 << 20
)

// MediaStore copies generated media into a MinIO bucket and hands out
// presigned links to it.
type MediaStore struct {
	client     *minio.Client
	bucket     string
	domain     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewMediaStore(cfg config.MinIOConfig, logger *zap.Logger) (*MediaStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaStore{
		client:     client,
		bucket:     cfg.Bucket,
		domain:     strings.TrimRight(cfg.Domain, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.Named("media"),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MediaStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	m.logger.Info("bucket created", zap.String("bucket", m.bucket))
	return nil
}

// Upload stores data under objectName and returns a public URL when a domain
// is configured, a presigned GET URL otherwise.
func (m *MediaStore) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentTypeFor(objectName)
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload to minio: %w", err)
	}
	m.logger.Debug("object uploaded", zap.String("object", objectName), zap.Int("bytes", len(data)))
	if m.domain != "" {
		return PublicURL(m.domain, m.bucket, objectName), nil
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, presignExpiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	return u.String(), nil
}

// Mirror fetches source, which is an http(s) URL or a base64 data URI, and
// stores it under base plus the detected file extension.
func (m *MediaStore) Mirror(ctx context.Context, base, source string) (string, error) {
	var data []byte
	if _, decoded, ok := ParseDataURI(source); ok {
		data = decoded
	} else {
		body, err := m.download(ctx, source)
		if err != nil {
			return "", err
		}
		data = body
	}
	mt := mimetype.Detect(data)
	return m.Upload(ctx, base+mt.Extension(), data, mt.String())
}

func (m *MediaStore) download(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status: %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxMirrorBytes))
}

// ObjectName is the bucket key prefix for one shot's media, without extension.
func ObjectName(projectID, shotID, kind string) string {
	return path.Join("projects", projectID, "shots", shotID, kind)
}

// PublicURL joins a public domain, bucket and object key.
func PublicURL(domain, bucket, objectName string) string {
	return strings.TrimRight(domain, "/") + "/" + path.Join(bucket, objectName)
}

// ParseDataURI decodes "data:<mime>;base64,<payload>".
func ParseDataURI(s string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return strings.TrimSuffix(meta, ";base64"), data, true
}

// ContentTypeFor maps a file extension to its content type.
func ContentTypeFor(objectName string) string {
	switch strings.ToLower(filepath.Ext(objectName)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	}
	return "application/octet-stream"
}
