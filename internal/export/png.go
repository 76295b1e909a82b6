/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"epaperadmin/internal/domain"
)

// PNGOptions controls the overlay export.
type PNGOptions struct {
	// Background paints the page area when no source image is drawn.
	Background color.Color
	// Pages restricts output to the given zero-based indexes; empty
	// exports all.
	Pages []int
}

// WriteOverlayPNGs renders one PNG per page at natural size with every
// region drawn as a 2px box and labeled with its id. Files are named
// page-<pageNo>-overlay.png under outDir.
func WriteOverlayPNGs(issue domain.Epaper, outDir string, opt PNGOptions) ([]string, error) {
	bg := opt.Background
	if bg == nil {
		bg = color.White
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}

	var written []string
	for _, pidx := range pageIndexes(len(issue.Pages), opt.Pages) {
		if pidx < 0 || pidx >= len(issue.Pages) {
			continue
		}
		pg := issue.Pages[pidx]
		w, h := int(pg.Width), int(pg.Height)
		if w <= 0 || h <= 0 {
			continue
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

		for _, r := range pg.News {
			col := color.RGBA{R: 200, G: 80, B: 0, A: 255}
			if r.EffectiveKind() == domain.RegionAnnotated {
				col = color.RGBA{R: 0, G: 130, B: 0, A: 255}
			}
			drawBox(img, r.Rect(), col, 2)
			label := r.Title
			if label == "" || !isASCII(label) {
				label = fmt.Sprintf("#%d", r.ID)
			}
			drawLabel(img, int(r.X)+4, int(r.Y)+14, label, col)
		}

		out := filepath.Join(outDir, fmt.Sprintf("page-%d-overlay.png", pg.PageNo))
		f, err := os.Create(out)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", out, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return written, fmt.Errorf("encode %s: %w", out, err)
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

// drawBox strokes an axis-aligned rectangle with the given line width.
func drawBox(img *image.RGBA, rc domain.Rect, col color.Color, lw int) {
	x0, y0 := int(rc.X), int(rc.Y)
	x1, y1 := int(rc.X+rc.Width), int(rc.Y+rc.Height)
	b := img.Bounds()
	for t := 0; t < lw; t++ {
		for x := x0; x <= x1; x++ {
			setIn(img, b, x, y0+t, col)
			setIn(img, b, x, y1-t, col)
		}
		for y := y0; y <= y1; y++ {
			setIn(img, b, x0+t, y, col)
			setIn(img, b, x1-t, y, col)
		}
	}
}

func setIn(img *image.RGBA, b image.Rectangle, x, y int, col color.Color) {
	if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
		img.Set(x, y, col)
	}
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// drawLabel prints label text with the built-in 7x13 face. The face
// only covers ASCII; callers substitute the region id for titles
// outside that range.
func drawLabel(img *image.RGBA, x, y int, label string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}
