package attachments

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	// 註冊常見圖片格式的解碼器
	_ "image/gif"
	_ "image/png"

	"marketplace-messaging/internal/constants"
	"marketplace-messaging/internal/platform/config"
	storage "marketplace-messaging/internal/storage/database/messaging"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Uploader 附件上傳器（S3 後端）.
type Uploader struct {
	client  *s3.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewUploader 創建附件上傳器，未配置 bucket 時返回 nil（附件功能停用）.
func NewUploader(ctx context.Context) (*Uploader, error) {
	cfg := config.Get()
	if cfg == nil || cfg.Uploads.S3Bucket == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("attachments: load AWS config: %w", err)
	}

	usePathStyle := cfg.Uploads.S3UsePathStyle
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})

	timeout := time.Duration(constants.DefaultUploadTimeoutSeconds) * time.Second
	if cfg.Uploads.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Uploads.TimeoutSeconds) * time.Second
	}

	return &Uploader{
		client:  client,
		bucket:  cfg.Uploads.S3Bucket,
		prefix:  strings.Trim(strings.TrimSpace(cfg.Uploads.S3Prefix), "/"),
		timeout: timeout,
	}, nil
}

// Timeout 單次上傳的超時時間.
func (u *Uploader) Timeout() time.Duration {
	return u.timeout
}

// s3Key 組合物件鍵（前綴不落庫，存取時套用）.
func (u *Uploader) s3Key(storageKey string) string {
	if u.prefix != "" {
		return u.prefix + "/" + storageKey
	}
	return storageKey
}

// Upload 上傳附件並回傳附件元數據，圖片附加尺寸與縮圖.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) (*storage.Attachment, error) {
	mimeType := http.DetectContentType(data)

	ext := strings.ToLower(filepath.Ext(name))
	storageKey := fmt.Sprintf("attachments/%s%s", uuid.New().String(), ext)

	if err := u.putObject(ctx, storageKey, data, mimeType); err != nil {
		return nil, err
	}

	att := &storage.Attachment{
		Name:     filepath.Base(name),
		Path:     storageKey,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}

	// 圖片附件記錄尺寸並生成縮圖，解碼失敗時僅保留原檔
	if strings.HasPrefix(mimeType, "image/") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			att.Width = cfg.Width
			att.Height = cfg.Height
		}

		if thumbKey, err := u.uploadThumbnail(ctx, storageKey, data); err == nil {
			att.ThumbnailPath = thumbKey
		}
	}

	return att, nil
}

// Delete 刪除已上傳的附件物件（含縮圖）.
func (u *Uploader) Delete(ctx context.Context, att storage.Attachment) error {
	keys := []string{att.Path}
	if att.ThumbnailPath != "" {
		keys = append(keys, att.ThumbnailPath)
	}

	for _, key := range keys {
		s3Key := u.s3Key(key)
		if _, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: &u.bucket,
			Key:    &s3Key,
		}); err != nil {
			return fmt.Errorf("attachments: delete object: %w", err)
		}
	}
	return nil
}

// putObject 上傳單一物件.
func (u *Uploader) putObject(ctx context.Context, storageKey string, data []byte, mimeType string) error {
	s3Key := u.s3Key(storageKey)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &u.bucket,
		Key:           &s3Key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   &mimeType,
	})
	if err != nil {
		return fmt.Errorf("attachments: put object: %w", err)
	}
	return nil
}

// uploadThumbnail 生成並上傳縮圖.
func (u *Uploader) uploadThumbnail(ctx context.Context, storageKey string, data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	thumb := scaleDown(img, constants.ThumbnailMaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(storageKey), filepath.Ext(storageKey))
	thumbKey := fmt.Sprintf("attachments/thumbs/%s.jpg", base)

	if err := u.putObject(ctx, thumbKey, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbKey, nil
}

// scaleDown 等比縮小至最長邊不超過 maxEdge（最近鄰取樣）.
func scaleDown(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}

	ratio := float64(maxEdge) / float64(w)
	if h > w {
		ratio = float64(maxEdge) / float64(h)
	}
	nw := int(float64(w) * ratio)
	nh := int(float64(h) * ratio)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := bounds.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			sx := bounds.Min.X + x*w/nw
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
