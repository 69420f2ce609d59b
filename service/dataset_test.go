package service

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareDatasetSortsStems(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "c"}, entrySpec{stem: "a"}, entrySpec{stem: "b"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "masks", "sub.png"), 0755))

	ds := openDataset(t, root)

	assert.Equal(t, []string{"a", "b", "c"}, ds.Stems)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, filepath.Join(root, "images", "b.png"), ds.ImagePath("b"))
	assert.Equal(t, filepath.Join(root, "masks", "b.png"), ds.SavePath("b"))
}

func TestPrepareDatasetReportsSymmetricDifference(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "a"}, entrySpec{stem: "b"}, entrySpec{stem: "c"})
	require.NoError(t, os.Remove(filepath.Join(root, "masks", "b.png")))
	require.NoError(t, os.Remove(filepath.Join(root, "images", "c.png")))

	_, err := PrepareDataset(filepath.Join(root, "images"), filepath.Join(root, "masks"), []string{".png"})

	var integrity *DatasetIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, []string{"b"}, integrity.MissingMasks)
	assert.Equal(t, []string{"c"}, integrity.MissingImages)
	assert.Equal(t, []string{"b", "c"}, integrity.Stems())
	assert.False(t, integrity.Empty)
	assert.Contains(t, err.Error(), "missing masks of images: b")
	assert.Contains(t, err.Error(), "missing images of masks: c")
}

func TestPrepareDatasetEmpty(t *testing.T) {
	root := newDataset(t)

	_, err := PrepareDataset(filepath.Join(root, "images"), filepath.Join(root, "masks"), []string{".png"})

	var integrity *DatasetIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.True(t, integrity.Empty)
	assert.Empty(t, integrity.Stems())
}

func TestPrepareDatasetMissingDirectory(t *testing.T) {
	_, err := PrepareDataset(filepath.Join(t.TempDir(), "nope"), t.TempDir(), []string{".png"})

	assert.Error(t, err)
	var integrity *DatasetIntegrityError
	assert.False(t, errors.As(err, &integrity))
}

func TestPrepareDatasetExtensions(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "a"})
	require.NoError(t, os.Rename(filepath.Join(root, "images", "a.png"), filepath.Join(root, "images", "a.PNG")))

	ds, err := PrepareDataset(filepath.Join(root, "images"), filepath.Join(root, "masks"), []string{"png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ds.Stems)

	_, err = PrepareDataset(filepath.Join(root, "images"), filepath.Join(root, "masks"), []string{".jpg"})
	var integrity *DatasetIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.True(t, integrity.Empty)
}

func TestDatasetLoadDimensionMismatch(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "a", imageSize: image.Pt(20, 10), maskSize: image.Pt(10, 20)})
	ds := openDataset(t, root)

	_, _, err := ds.Load("a")

	var mismatch *DimensionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "a", mismatch.Stem)
	assert.Equal(t, image.Pt(20, 10), mismatch.ImageSize)
	assert.Equal(t, image.Pt(10, 20), mismatch.MaskSize)
}

func TestDatasetSaveWritesBinaryMask(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "a", imageSize: image.Pt(4, 1)})
	ds := openDataset(t, root)

	mask := image.NewGray(image.Rect(0, 0, 4, 1))
	mask.Pix = []uint8{0, 3, 127, 255}
	require.NoError(t, ds.Save("a", mask))

	saved := readMask(t, ds.SavePath("a"))
	assert.Equal(t, []uint8{0, 255, 255, 255}, saved.Pix)

	_, reloaded, err := ds.Load("a")
	require.NoError(t, err)
	assert.Equal(t, saved.Pix, reloaded.Pix)
}

func TestDatasetLoadKeepsStraightRGB(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "a", imageSize: image.Pt(2, 1)})

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 150, B: 100, A: 0})
	img.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	writePNG(t, filepath.Join(root, "images", "a.png"), img)

	mask := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	mask.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
	writePNG(t, filepath.Join(root, "masks", "a.png"), mask)

	ds := openDataset(t, root)
	rgb, gray, err := ds.Load("a")
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 200, G: 150, B: 100, A: 255}, rgb.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, rgb.RGBAAt(1, 0))
	assert.Equal(t, uint8(255), gray.GrayAt(0, 0).Y, "transparent white mask pixel stays foreground")
	assert.Equal(t, uint8(0), gray.GrayAt(1, 0).Y)
}

func TestDatasetSaveOverwritesUppercaseMask(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "a", mask: func(int, int) uint8 { return 255 }})
	maskDir := filepath.Join(root, "masks")
	require.NoError(t, os.Rename(filepath.Join(maskDir, "a.png"), filepath.Join(maskDir, "a.PNG")))

	ds := openDataset(t, root)
	require.Equal(t, filepath.Join(maskDir, "a.PNG"), ds.SavePath("a"))
	require.NoError(t, ds.Save("a", image.NewGray(image.Rect(0, 0, 100, 100))))

	files, err := os.ReadDir(maskDir)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, reloaded, err := openDataset(t, root).Load("a")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), reloaded.GrayAt(50, 50).Y)
}

func TestDatasetPrefersLowercaseOnCaseTie(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "a"})
	maskDir := filepath.Join(root, "masks")
	stale := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range stale.Pix {
		stale.Pix[i] = 255
	}
	writePNG(t, filepath.Join(maskDir, "a.PNG"), stale)

	ds := openDataset(t, root)

	assert.Equal(t, filepath.Join(maskDir, "a.png"), ds.MaskPath("a"))
}

func TestDatasetSaveReplacesNonPNGMask(t *testing.T) {
	root := newDataset(t, entrySpec{stem: "a"})
	maskDir := filepath.Join(root, "masks")
	require.NoError(t, os.Remove(filepath.Join(maskDir, "a.png")))

	full := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range full.Pix {
		full.Pix[i] = 255
	}
	f, err := os.Create(filepath.Join(maskDir, "a.jpg"))
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, full, nil))
	require.NoError(t, f.Close())

	exts := []string{".jpg", ".png"}
	ds, err := PrepareDataset(filepath.Join(root, "images"), maskDir, exts)
	require.NoError(t, err)
	require.NoError(t, ds.Save("a", image.NewGray(image.Rect(0, 0, 100, 100))))

	_, err = os.Stat(filepath.Join(maskDir, "a.jpg"))
	assert.True(t, os.IsNotExist(err), "superseded mask is removed")

	ds, err = PrepareDataset(filepath.Join(root, "images"), maskDir, exts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(maskDir, "a.png"), ds.MaskPath("a"))
	_, reloaded, err := ds.Load("a")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), reloaded.GrayAt(50, 50).Y)
}
