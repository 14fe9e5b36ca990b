package uploader

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// MaxImageSize 商品图片大小上限
const MaxImageSize = 5 << 20

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrFileTooLarge    = errors.New("file too large")
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

type Uploader interface {
	UploadFile(file *multipart.FileHeader) (string, error)
}

// ImageContentType 校验商品图片并返回 Content-Type
func ImageContentType(file *multipart.FileHeader) (string, error) {
	if file.Size > MaxImageSize {
		return "", ErrFileTooLarge
	}
	contentType, ok := imageTypes[strings.ToLower(filepath.Ext(file.Filename))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return contentType, nil
}

// ObjectKey 生成对象名: products/YYYYMMDD/uuid.ext
func ObjectKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("products/%s/%s%s", now.Format("20060102"), uuid.New().String(), ext)
}

type AliyunOSSUploader struct {
	bucket *oss.Bucket
	config config.OSSConfig
}

func NewAliyunOSSUploader(cfg config.OSSConfig) (*AliyunOSSUploader, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &AliyunOSSUploader{
		bucket: bucket,
		config: cfg,
	}, nil
}

func (u *AliyunOSSUploader) UploadFile(file *multipart.FileHeader) (string, error) {
	contentType, err := ImageContentType(file)
	if err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	key := ObjectKey(file.Filename, time.Now())
	if err := u.bucket.PutObject(key, src, oss.ContentType(contentType)); err != nil {
		return "", err
	}

	// 商品图片桶为公共读，直接拼接访问地址
	return fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key), nil
}

// GlobalUploader 未配置 OSS 时为 nil
var GlobalUploader Uploader

func InitUploader() error {
	uploader, err := NewAliyunOSSUploader(config.GlobalConfig.OSS)
	if err != nil {
		return err
	}
	GlobalUploader = uploader
	return nil
}
