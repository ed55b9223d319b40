package oss

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"

	"github.com/qs3c/chart_editor_server/config"
)

// 预览图统一放在该前缀下，删除时只允许操作此前缀
const previewPrefix = "previews/"

// ErrForeignObject URL 不指向本服务上传的预览图
var ErrForeignObject = errors.New("object is not a chart preview")

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// Client 图表预览图存储
type Client struct {
	bucket     *oss.Bucket
	bucketName string
	endpoint   string
	cdnDomain  string
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create oss client: %w", err)
	}
	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", cfg.BucketName, err)
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(client.Config.Endpoint, "https://"), "http://")
	return &Client{
		bucket:     bucket,
		bucketName: cfg.BucketName,
		endpoint:   endpoint,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// PreviewKey 每次上传生成新 key，旧图由调用方删除
func PreviewKey(chartID int64, ext string) string {
	return fmt.Sprintf("%s%d/%s%s", previewPrefix, chartID, uuid.NewString(), strings.ToLower(ext))
}

func (c *Client) UploadPreview(chartID int64, data []byte, ext string) (string, error) {
	key := PreviewKey(chartID, ext)
	err := c.bucket.PutObject(key, bytes.NewReader(data),
		oss.ContentType(ContentType(ext)),
		oss.CacheControl("public, max-age=31536000, immutable"),
	)
	if err != nil {
		return "", fmt.Errorf("upload preview for chart %d: %w", chartID, err)
	}
	return c.GetURL(key), nil
}

// DeleteByURL 只删除 previews/ 下的对象
func (c *Client) DeleteByURL(rawURL string) error {
	key := c.ExtractObjectKey(rawURL)
	if !strings.HasPrefix(key, previewPrefix) {
		return fmt.Errorf("%w: %s", ErrForeignObject, rawURL)
	}
	if err := c.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (c *Client) GetURL(key string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, c.endpoint, key)
}

// ContentType 非图片扩展名返回空
func ContentType(ext string) string {
	return imageTypes[strings.ToLower(ext)]
}

// ExtractObjectKey 解析失败时返回空
func (c *Client) ExtractObjectKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
