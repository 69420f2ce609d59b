package service

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/TIANLI0/MaskKit/config"
	"github.com/stretchr/testify/require"
)

type entrySpec struct {
	stem      string
	imageSize image.Point
	maskSize  image.Point
	mask      func(x, y int) uint8
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// newDataset 在临时目录中生成 images/ 和 masks/
func newDataset(t *testing.T, entries ...entrySpec) (root string) {
	t.Helper()
	root = t.TempDir()
	imageDir := filepath.Join(root, "images")
	maskDir := filepath.Join(root, "masks")
	require.NoError(t, os.MkdirAll(imageDir, 0755))
	require.NoError(t, os.MkdirAll(maskDir, 0755))

	for _, e := range entries {
		if e.imageSize == (image.Point{}) {
			e.imageSize = image.Pt(100, 100)
		}
		if e.maskSize == (image.Point{}) {
			e.maskSize = e.imageSize
		}

		img := image.NewRGBA(image.Rectangle{Max: e.imageSize})
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 100, 100, 100, 255
		}
		writePNG(t, filepath.Join(imageDir, e.stem+".png"), img)

		mask := image.NewGray(image.Rectangle{Max: e.maskSize})
		if e.mask != nil {
			for y := 0; y < e.maskSize.Y; y++ {
				for x := 0; x < e.maskSize.X; x++ {
					mask.SetGray(x, y, color.Gray{Y: e.mask(x, y)})
				}
			}
		}
		writePNG(t, filepath.Join(maskDir, e.stem+".png"), mask)
	}
	return root
}

func openDataset(t *testing.T, root string) *Dataset {
	t.Helper()
	ds, err := PrepareDataset(filepath.Join(root, "images"), filepath.Join(root, "masks"), []string{".png"})
	require.NoError(t, err)
	return ds
}

func editorConfig() config.EditorConfig {
	return config.Default().Editor
}

func newTestEditor(t *testing.T, root string) *Editor {
	t.Helper()
	e, err := NewEditor(openDataset(t, root), editorConfig())
	require.NoError(t, err)
	return e
}

func readMask(t *testing.T, path string) *image.Gray {
	t.Helper()
	img, err := decodeFile(path)
	require.NoError(t, err)
	return toGray(img)
}

func insideDisk(x, y int, cx, cy float64, r int) bool {
	dx, dy := float64(x)-cx, float64(y)-cy
	return dx*dx+dy*dy <= float64(r*r)
}
