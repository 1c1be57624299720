// Package export writes particle snapshots to files: the rasterized view as
// SVG, the raw particle state as CSV.
package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/san-kum/gravsim/internal/viz"
)

// WriteSVG draws every lit canvas dot as a circle, scale pixels apart.
func WriteSVG(w io.Writer, canvas *viz.Canvas, scale float64) error {
	dw, dh := canvas.Dots()
	width, height := float64(dw)*scale, float64(dh)*scale

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#ffd27f">
`, width, height, width, height)

	r := scale * 0.4
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
		}
	}

	bw.WriteString("</g>\n</svg>\n")
	return bw.Flush()
}
