package service

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	ErrUnknownButton   = errors.New("unknown button")
	ErrInvalidViewport = errors.New("viewport dimensions must be positive")
)

// DatasetIntegrityError 图像与掩码的文件名集合不一致，或数据集为空
type DatasetIntegrityError struct {
	MissingMasks  []string
	MissingImages []string
	Empty         bool
}

func (e *DatasetIntegrityError) Error() string {
	var parts []string
	if len(e.MissingMasks) > 0 {
		parts = append(parts, fmt.Sprintf("missing masks of images: %s", strings.Join(e.MissingMasks, ", ")))
	}
	if len(e.MissingImages) > 0 {
		parts = append(parts, fmt.Sprintf("missing images of masks: %s", strings.Join(e.MissingImages, ", ")))
	}
	if e.Empty {
		parts = append(parts, "empty dataset")
	}
	return "dataset integrity: " + strings.Join(parts, "; ")
}

// Stems 返回两侧集合的对称差
func (e *DatasetIntegrityError) Stems() []string {
	out := make([]string, 0, len(e.MissingMasks)+len(e.MissingImages))
	out = append(out, e.MissingMasks...)
	return append(out, e.MissingImages...)
}

// DimensionMismatchError 图像与掩码尺寸不一致
type DimensionMismatchError struct {
	Stem      string
	ImageSize image.Point
	MaskSize  image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("image %q is %dx%d but its mask is %dx%d",
		e.Stem, e.ImageSize.X, e.ImageSize.Y, e.MaskSize.X, e.MaskSize.Y)
}
