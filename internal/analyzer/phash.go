package analyzer

import (
	"bytes"
	"fmt"
	"image"
	"math/bits"

	_ "image/jpeg"
	_ "image/png"
)

// PerceptualHash is a 64-bit difference hash of a screenshot. Two
// near-identical screenshots produce hashes within a small hamming
// distance of each other, which is what lets the cache absorb re-renders
// of the same page.
type PerceptualHash uint64

// hashGridW x hashGridH grayscale samples; each row contributes 8
// adjacent-pixel comparisons for 64 bits total.
const (
	hashGridW = 9
	hashGridH = 8
)

// HashScreenshot computes the dHash of an encoded PNG or JPEG image.
func HashScreenshot(data []byte) (PerceptualHash, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode screenshot: %w", err)
	}
	return hashImage(img), nil
}

func hashImage(img image.Image) PerceptualHash {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	// Nearest-neighbor downsample to the hash grid.
	var gray [hashGridH][hashGridW]uint32
	for gy := 0; gy < hashGridH; gy++ {
		for gx := 0; gx < hashGridW; gx++ {
			sx := bounds.Min.X + gx*w/hashGridW
			sy := bounds.Min.Y + gy*h/hashGridH
			r, g, b, _ := img.At(sx, sy).RGBA()
			// Luma approximation on 16-bit channels.
			gray[gy][gx] = (299*r + 587*g + 114*b) / 1000
		}
	}

	var hash PerceptualHash
	bit := 0
	for gy := 0; gy < hashGridH; gy++ {
		for gx := 0; gx < hashGridW-1; gx++ {
			if gray[gy][gx] > gray[gy][gx+1] {
				hash |= 1 << uint(bit)
			}
			bit++
		}
	}
	return hash
}

// Distance returns the hamming distance between two hashes.
func (h PerceptualHash) Distance(other PerceptualHash) int {
	return bits.OnesCount64(uint64(h ^ other))
}

// String renders the hash as fixed-width hex, used as a cache key.
func (h PerceptualHash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}
