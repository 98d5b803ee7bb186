package image

import (
	"image"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

// Channels is the number of values per pixel row. Alpha is dropped.
const Channels = 3

// Pixels flattens img into an N x 3 matrix of R, G, B values in 0..255, one
// row per pixel in row-major order.
//
// When maxDimension > 0 and the image is larger, it is first shrunk to fit
// using nearest-neighbour sampling, which only ever keeps colours that exist
// in the source image.
func Pixels(img image.Image, maxDimension int) *mat.Dense {
	bounds := img.Bounds()
	if bounds.Empty() {
		return &mat.Dense{}
	}

	var nrgba *image.NRGBA
	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		nrgba = imaging.Fit(img, maxDimension, maxDimension, imaging.NearestNeighbor)
	} else {
		nrgba = imaging.Clone(img)
	}

	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	data := make([]float64, 0, w*h*Channels)
	for y := range h {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			data = append(data, float64(row[x]), float64(row[x+1]), float64(row[x+2]))
		}
	}
	return mat.NewDense(w*h, Channels, data)
}
