package image

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"menu-scanner/internal/pkg/common"
)

// allowedTypes 副檔名與 MIME 類型都必須符合
var allowedTypes = regexp.MustCompile(`jpeg|jpg|png|gif`)

// Processor 上傳圖片檢查
type Processor struct {
	maxSize int64
}

// NewProcessor 創建圖片處理器
func NewProcessor(maxSize int64) *Processor {
	return &Processor{
		maxSize: maxSize,
	}
}

// MaxSize 允許的最大位元組數
func (p *Processor) MaxSize() int64 {
	return p.maxSize
}

// Validate 檢查檔名、MIME 類型與大小
func (p *Processor) Validate(filename, mimeType string, size int64) error {
	if size <= 0 {
		return common.NewValidationError("이미지 파일이 필요합니다.")
	}
	if size > p.maxSize {
		return common.Wrap(common.ErrInvalidImageSize, fmt.Errorf("image size %d exceeds %d bytes", size, p.maxSize))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedTypes.MatchString(ext) || !allowedTypes.MatchString(strings.ToLower(mimeType)) {
		return common.Wrap(common.ErrInvalidImageFormat, fmt.Errorf("unsupported image %q (%s)", filename, mimeType))
	}

	return nil
}

// StorageKey 以上傳時間與原始檔名產生圖片識別字串
func StorageKey(filename string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), filepath.Base(filename))
}
