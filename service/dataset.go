package service

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/jpeg"

	"github.com/TIANLI0/MaskKit/utils"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaskExt 保存掩码时使用的扩展名
const MaskExt = ".png"

// Dataset 成对的图像/掩码目录
type Dataset struct {
	ImageDir string
	MaskDir  string
	Stems    []string

	images map[string]string
	masks  map[string]string
}

// PrepareDataset 扫描图像和掩码目录，校验两者文件名一致并返回排序后的数据集
func PrepareDataset(imageDir, maskDir string, extensions []string) (*Dataset, error) {
	images, err := scanStems(imageDir, extensions)
	if err != nil {
		return nil, err
	}
	masks, err := scanStems(maskDir, extensions)
	if err != nil {
		return nil, err
	}

	integrity := &DatasetIntegrityError{
		MissingMasks:  difference(images, masks),
		MissingImages: difference(masks, images),
		Empty:         len(images) == 0 && len(masks) == 0,
	}
	if len(integrity.MissingMasks) > 0 || len(integrity.MissingImages) > 0 || integrity.Empty {
		return nil, integrity
	}

	stems := make([]string, 0, len(images))
	for stem := range images {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	utils.Logger.Info("dataset prepared",
		zap.String("image_dir", imageDir),
		zap.String("mask_dir", maskDir),
		zap.Int("entries", len(stems)))

	return &Dataset{
		ImageDir: imageDir,
		MaskDir:  maskDir,
		Stems:    stems,
		images:   images,
		masks:    masks,
	}, nil
}

// Len 返回条目数量
func (d *Dataset) Len() int {
	return len(d.Stems)
}

// ImagePath 返回 stem 对应的图像路径
func (d *Dataset) ImagePath(stem string) string {
	return d.images[stem]
}

// MaskPath 返回 stem 对应的掩码读取路径
func (d *Dataset) MaskPath(stem string) string {
	return d.masks[stem]
}

// SavePath 返回保存掩码的路径：原文件已是 PNG（不区分大小写）时原地覆盖，否则写入 <stem>.png
func (d *Dataset) SavePath(stem string) string {
	if loaded := d.masks[stem]; loaded != "" && strings.EqualFold(filepath.Ext(loaded), MaskExt) {
		return loaded
	}
	return filepath.Join(d.MaskDir, stem+MaskExt)
}

// Load 读取 stem 对应的图像(RGB)和掩码(灰度)
func (d *Dataset) Load(stem string) (*image.RGBA, *image.Gray, error) {
	img, err := decodeFile(d.ImagePath(stem))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image %q: %w", stem, err)
	}
	mask, err := decodeFile(d.MaskPath(stem))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read mask %q: %w", stem, err)
	}

	rgb := toRGBA(img)
	gray := toGray(mask)
	if rgb.Bounds().Size() != gray.Bounds().Size() {
		return nil, nil, &DimensionMismatchError{
			Stem:      stem,
			ImageSize: rgb.Bounds().Size(),
			MaskSize:  gray.Bounds().Size(),
		}
	}
	return rgb, gray, nil
}

// Save 将掩码二值化后写回磁盘
func (d *Dataset) Save(stem string, mask *image.Gray) error {
	path := d.SavePath(stem)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mask file: %w", err)
	}
	if err := png.Encode(f, Binarize(mask)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode mask: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write mask file: %w", err)
	}
	// 旧的非 PNG 掩码被新文件取代，删除以免重新扫描时读到旧数据
	if prev := d.masks[stem]; prev != "" && prev != path {
		if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove superseded mask: %w", err)
		}
		utils.Logger.Info("superseded mask removed", zap.String("stem", stem), zap.String("path", prev))
	}
	d.masks[stem] = path

	utils.Logger.Info("mask saved", zap.String("stem", stem), zap.String("path", path))
	return nil
}

func scanStems(dir string, extensions []string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	rank := make(map[string]int, len(extensions))
	for i, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := rank[ext]; !ok {
			rank[ext] = i
		}
	}

	stems := make(map[string]string)
	picked := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		r, ok := rank[strings.ToLower(ext)]
		if !ok {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if prev, seen := picked[stem]; seen {
			// 同级扩展名只在大小写不同时出现，优先小写的那个（保存时写入的文件）
			if prev < r || (prev == r && ext != strings.ToLower(ext)) {
				continue
			}
		}
		picked[stem] = r
		stems[stem] = filepath.Join(dir, name)
	}
	return stems, nil
}

func difference(a, b map[string]string) []string {
	var out []string
	for stem := range a {
		if _, ok := b[stem]; !ok {
			out = append(out, stem)
		}
	}
	sort.Strings(out)
	return out
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// toRGBA 丢弃 alpha 通道，保留未预乘的 RGB 值
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := straight(src.At(b.Min.X+x, b.Min.Y+y))
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}

// toGray 按亮度转换为灰度，忽略 alpha
func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := src.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return dst
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := straight(src.At(b.Min.X+x, b.Min.Y+y))
			c.A = 0xff
			dst.Pix[dst.PixOffset(x, y)] = color.GrayModel.Convert(c).(color.Gray).Y
		}
	}
	return dst
}

// straight 返回未预乘的颜色，完全透明的像素也保留原始 RGB
func straight(c color.Color) color.NRGBA {
	if c64, ok := c.(color.NRGBA64); ok {
		return color.NRGBA{R: uint8(c64.R >> 8), G: uint8(c64.G >> 8), B: uint8(c64.B >> 8), A: uint8(c64.A >> 8)}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
