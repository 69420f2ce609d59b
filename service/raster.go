package service

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// FillDisk 将圆心 (cx, cy)、半径 r 内的像素设为 value
func FillDisk(dst *image.Gray, cx, cy float64, r int, value uint8) {
	forDisk(dst, cx, cy, r, func(i int, _ float64) {
		dst.Pix[i] = value
	})
}

// DrawRing 只绘制圆的一像素宽轮廓
func DrawRing(dst *image.Gray, cx, cy float64, r int, value uint8) {
	inner := float64(r-1) * float64(r-1)
	if r <= 1 {
		inner = -1
	}
	forDisk(dst, cx, cy, r, func(i int, d2 float64) {
		if d2 > inner {
			dst.Pix[i] = value
		}
	})
}

// forDisk 遍历满足 (x-cx)^2+(y-cy)^2 <= r^2 的像素
func forDisk(dst *image.Gray, cx, cy float64, r int, fn func(i int, d2 float64)) {
	if r < 0 {
		return
	}
	rr := float64(r) * float64(r)
	b := dst.Bounds()
	x0 := max(b.Min.X, int(math.Floor(cx-float64(r))))
	x1 := min(b.Max.X-1, int(math.Ceil(cx+float64(r))))
	y0 := max(b.Min.Y, int(math.Floor(cy-float64(r))))
	y1 := min(b.Max.Y-1, int(math.Ceil(cy+float64(r))))

	for y := y0; y <= y1; y++ {
		dy := float64(y) - cy
		for x := x0; x <= x1; x++ {
			dx := float64(x) - cx
			d2 := dx*dx + dy*dy
			if d2 <= rr {
				fn(dst.PixOffset(x, y), d2)
			}
		}
	}
}

// Binarize 非零像素置为 255，其余为 0
func Binarize(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if v != 0 {
			dst.Pix[i] = 0xff
		}
	}
	return dst
}

// ScaleAlpha 按透明度缩放掩码值，结果截断为 8 位
func ScaleAlpha(src *image.Gray, transparency float64) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		dst.Pix[i] = uint8(float64(v) * transparency)
	}
	return dst
}

// CloneGray 深拷贝灰度图
func CloneGray(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// ParseHexColor 解析 "#rrggbb" 或 "#rgb" 格式的颜色
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
