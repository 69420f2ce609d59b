package service

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Layers 合成一帧所需的全部图层
type Layers struct {
	Image     *image.RGBA
	Mask      *image.Gray
	Brush     *image.Gray
	MaskTint  color.RGBA
	BrushTint color.RGBA
}

// Compositor 将图像、掩码和画笔预览合成为显示帧
type Compositor struct {
	scaler draw.Interpolator
}

func NewCompositor(resample string) (*Compositor, error) {
	scaler, err := parseResample(resample)
	if err != nil {
		return nil, err
	}
	return &Compositor{scaler: scaler}, nil
}

// CalculateZoom 计算保持宽高比、完整显示图像的缩放系数
func CalculateZoom(viewportWidth, viewportHeight, imageWidth, imageHeight int) float64 {
	if viewportWidth <= 0 || viewportHeight <= 0 || imageWidth <= 0 || imageHeight <= 0 {
		return 1
	}
	vr := float64(viewportWidth) / float64(viewportHeight)
	ir := float64(imageWidth) / float64(imageHeight)
	if vr < ir {
		return float64(viewportWidth) / float64(imageWidth)
	}
	return float64(viewportHeight) / float64(imageHeight)
}

// ScaledSize 返回缩放后的尺寸，至少 1 像素
func ScaledSize(size image.Point, zoom float64) image.Point {
	return image.Point{
		X: max(1, int(math.Round(float64(size.X)*zoom))),
		Y: max(1, int(math.Round(float64(size.Y)*zoom))),
	}
}

// Compose 按透明度叠加掩码着色，再叠加画笔预览，最后按 zoom 缩放
func (c *Compositor) Compose(layers Layers, transparency, zoom float64) *image.RGBA {
	out := image.NewRGBA(layers.Image.Bounds())
	copy(out.Pix, layers.Image.Pix)

	blendTint(out, ScaleAlpha(layers.Mask, transparency), layers.MaskTint)
	if layers.Brush != nil {
		blendTint(out, layers.Brush, layers.BrushTint)
	}

	if zoom == 1 {
		return out
	}
	size := ScaledSize(out.Bounds().Size(), zoom)
	scaled := image.NewRGBA(image.Rectangle{Max: size})
	c.scaler.Scale(scaled, scaled.Bounds(), out, out.Bounds(), draw.Src, nil)
	return scaled
}

// blendTint 以 alpha 为逐像素不透明度，把纯色贴到 dst 上
func blendTint(dst *image.RGBA, alpha *image.Gray, tint color.RGBA) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint32(alpha.Pix[y*alpha.Stride+x])
			if a == 0 {
				continue
			}
			i := y*dst.Stride + x*4
			dst.Pix[i+0] = blend(tint.R, dst.Pix[i+0], a)
			dst.Pix[i+1] = blend(tint.G, dst.Pix[i+1], a)
			dst.Pix[i+2] = blend(tint.B, dst.Pix[i+2], a)
		}
	}
}

func blend(src, dst uint8, a uint32) uint8 {
	return uint8((uint32(src)*a + uint32(dst)*(255-a) + 127) / 255)
}

func parseResample(name string) (draw.Interpolator, error) {
	switch strings.ToLower(name) {
	case "", "nearest":
		return draw.NearestNeighbor, nil
	case "bilinear":
		return draw.BiLinear, nil
	case "approx-bilinear":
		return draw.ApproxBiLinear, nil
	case "catmullrom":
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("unknown resample method %q", name)
	}
}
