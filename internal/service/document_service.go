package service

import (
	"ai_exam_backend/internal/config"
	"ai_exam_backend/internal/model"
	"ai_exam_backend/internal/util"
	"ai_exam_backend/pkg/logger"
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// TextExtractor 文档转纯文本的窄接口。格式转换本身是外部协作方的职责，
// 这里只约定"字节 + 文件名 -> 文本"这一层。
type TextExtractor interface {
	Extract(content []byte, fileName string) (string, error)
}

// PlainTextExtractor 默认提取器，处理本身就是纯文本的格式
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(content []byte, fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md", ".markdown", ".csv", ".log":
		return strings.TrimSpace(string(content)), nil
	default:
		return "", fmt.Errorf("%w: %s", util.ErrUnsupportedFormat, fileName)
	}
}

// DocumentService 从 MinIO 下载参考文档并提取文本
type DocumentService struct {
	config    config.StorageConfig
	client    *minio.Client
	extractor TextExtractor
}

func NewDocumentService(cfg config.StorageConfig, extractor TextExtractor) (*DocumentService, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}

	if extractor == nil {
		extractor = PlainTextExtractor{}
	}
	return &DocumentService{config: cfg, client: client, extractor: extractor}, nil
}

// objectNameFromURL 从文件下载URL中提取对象名。路径的第一段是桶名，
// 其余部分（可能含文件夹）整体作为对象名。
func objectNameFromURL(fileURL string) (bucket, object string, err error) {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", "", err
	}

	parts := strings.SplitN(strings.TrimPrefix(parsed.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("无法从URL中解析对象名: %s", fileURL)
	}
	return parts[0], parts[1], nil
}

func (s *DocumentService) downloadBytes(ctx context.Context, bucket, object string) ([]byte, error) {
	if bucket == "" {
		bucket = s.config.MinioBucket
	}

	obj, err := s.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("MinIO文件下载成功",
		zap.String("bucket", bucket), zap.String("object", object), zap.Int("bytes", len(data)))
	return data, nil
}

// ExtractTexts 逐个下载并提取文件文本，单个文件失败只告警跳过，
// 全部失败（没有任何文本）才报错。返回合并文本和成功的文件名列表。
func (s *DocumentService) ExtractTexts(ctx context.Context, files []model.FileInfo) (string, []string, error) {
	var combined strings.Builder
	var names []string

	for _, file := range files {
		bucket, object, err := objectNameFromURL(file.FileLocation)
		if err != nil {
			logger.Log.Warn("解析文件地址失败", zap.String("file", file.FileName), zap.Error(err))
			continue
		}
		if file.FileBucketName != "" {
			bucket = file.FileBucketName
		}

		content, err := s.downloadBytes(ctx, bucket, object)
		if err != nil {
			logger.Log.Warn("下载文件失败", zap.String("file", file.FileName), zap.Error(err))
			continue
		}

		text, err := s.extractor.Extract(content, file.FileName)
		if err != nil {
			logger.Log.Warn("提取文档文本失败", zap.String("file", file.FileName), zap.Error(err))
			continue
		}
		if text == "" {
			logger.Log.Warn("文档提取的文本为空", zap.String("file", file.FileName))
			continue
		}

		fmt.Fprintf(&combined, "\n\n=== 文档: %s ===\n%s\n", file.FileName, text)
		names = append(names, file.FileName)
	}

	if strings.TrimSpace(combined.String()) == "" {
		return "", nil, util.ErrNoDocumentText
	}
	return combined.String(), names, nil
}
