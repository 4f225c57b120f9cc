package similarity

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// visualScore compares source and converted screenshots page by page.
// Each pair contributes SSIM, normalized MSE and a color histogram
// intersection, blended 0.5/0.3/0.2.
func visualScore(in Input) (domain.MetricScore, error) {
	var total float64
	var n int
	details := map[string]float64{}

	for _, page := range in.Source.Pages {
		src, ok := in.SourceShots[page.ID]
		dst, ok2 := in.TargetShots[page.ID]
		if !ok || !ok2 {
			continue
		}
		score, err := compareScreenshots(src, dst)
		if err != nil {
			continue
		}
		details[page.Slug] = score
		total += score
		n++
	}
	if n == 0 {
		return domain.MetricScore{}, fmt.Errorf("no screenshot pairs available")
	}
	return domain.MetricScore{Score: clamp01(total / float64(n)), Details: details}, nil
}

const compareSize = 64

func compareScreenshots(src, dst []byte) (float64, error) {
	srcImg, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return 0, fmt.Errorf("decode source screenshot: %w", err)
	}
	dstImg, _, err := image.Decode(bytes.NewReader(dst))
	if err != nil {
		return 0, fmt.Errorf("decode target screenshot: %w", err)
	}

	srcLuma := lumaGrid(srcImg, compareSize)
	dstLuma := lumaGrid(dstImg, compareSize)

	ssim := gridSSIM(srcLuma, dstLuma)
	mse := 1 - normalizedMSE(srcLuma, dstLuma)
	hist := histogramIntersection(srcImg, dstImg)

	return clamp01(ssim*0.5 + mse*0.3 + hist*0.2), nil
}

// lumaGrid downsamples to a size x size luminance grid by nearest
// neighbor. Screenshot pairs can differ in resolution.
func lumaGrid(img image.Image, size int) []float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	grid := make([]float64, size*size)
	for y := 0; y < size; y++ {
		sy := bounds.Min.Y + y*h/size
		for x := 0; x < size; x++ {
			sx := bounds.Min.X + x*w/size
			r, g, b, _ := img.At(sx, sy).RGBA()
			grid[y*size+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return grid
}

// gridSSIM computes the structural similarity index over 8x8 windows of
// the downsampled grids and averages the window scores.
func gridSSIM(a, b []float64) float64 {
	const window = 8
	const c1 = 6.5025  // (0.01 * 255)^2
	const c2 = 58.5225 // (0.03 * 255)^2

	var total float64
	var windows int
	for wy := 0; wy+window <= compareSize; wy += window {
		for wx := 0; wx+window <= compareSize; wx += window {
			var sumA, sumB float64
			for y := 0; y < window; y++ {
				for x := 0; x < window; x++ {
					i := (wy+y)*compareSize + wx + x
					sumA += a[i]
					sumB += b[i]
				}
			}
			n := float64(window * window)
			muA, muB := sumA/n, sumB/n

			var varA, varB, cov float64
			for y := 0; y < window; y++ {
				for x := 0; x < window; x++ {
					i := (wy+y)*compareSize + wx + x
					da, db := a[i]-muA, b[i]-muB
					varA += da * da
					varB += db * db
					cov += da * db
				}
			}
			varA /= n - 1
			varB /= n - 1
			cov /= n - 1

			num := (2*muA*muB + c1) * (2*cov + c2)
			den := (muA*muA + muB*muB + c1) * (varA + varB + c2)
			total += num / den
			windows++
		}
	}
	if windows == 0 {
		return 0
	}
	return clamp01(total / float64(windows))
}

// normalizedMSE returns the mean squared luma error scaled into [0, 1].
func normalizedMSE(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	mse := sum / float64(len(a))
	return clamp01(mse / (255 * 255))
}

// histogramIntersection bins each channel into 16 buckets and measures
// how much of the color distribution the two images share.
func histogramIntersection(a, b image.Image) float64 {
	histA := colorHistogram(a)
	histB := colorHistogram(b)
	var inter float64
	for i := range histA {
		if histA[i] < histB[i] {
			inter += histA[i]
		} else {
			inter += histB[i]
		}
	}
	return clamp01(inter)
}

const histBins = 16

func colorHistogram(img image.Image) []float64 {
	hist := make([]float64, histBins*3)
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Sample on a coarse grid; full-resolution counting buys nothing
	// for a 48-bucket histogram.
	const samples = 128
	var n float64
	for y := 0; y < samples; y++ {
		sy := bounds.Min.Y + y*h/samples
		for x := 0; x < samples; x++ {
			sx := bounds.Min.X + x*w/samples
			r, g, b, _ := img.At(sx, sy).RGBA()
			hist[int(r>>8)*histBins/256]++
			hist[histBins+int(g>>8)*histBins/256]++
			hist[2*histBins+int(b>>8)*histBins/256]++
			n++
		}
	}
	for i := range hist {
		hist[i] /= n * 3
	}
	return hist
}
