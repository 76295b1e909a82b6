/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders mapping proofs: per-page overlays showing
// where regions sit, for editorial review before publication.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	"github.com/jung-kurt/gofpdf"

	"epaperadmin/internal/domain"
)

// PDFOptions controls the proof sheet export.
// Units are points; each natural page is scaled to fit the sheet.
type PDFOptions struct {
	// PageWidth/PageHeight of the output sheet in points. Zero values
	// default to A4 portrait (595 x 842).
	PageWidth  float64
	PageHeight float64
	// Pages restricts output to the given zero-based indexes; empty
	// exports all.
	Pages []int
	// LabelRegions prints the region title (or id) inside each box.
	LabelRegions bool
}

// ProofPDFName derives the output filename for an issue proof.
func ProofPDFName(issue domain.Epaper) string {
	s := slug.Make(issue.Title + " " + issue.Date)
	if s == "" {
		s = slug.Make(issue.ID)
	}
	return s + "-proof.pdf"
}

// WriteProofPDF renders one sheet per page with every mapped region
// drawn as an outlined box. Geometry is scaled uniformly so the whole
// page fits the sheet with a small margin.
func WriteProofPDF(issue domain.Epaper, outPath string, opt PDFOptions) error {
	sheetW, sheetH := opt.PageWidth, opt.PageHeight
	if sheetW <= 0 || sheetH <= 0 {
		sheetW, sheetH = 595.28, 841.89 // A4 portrait in points
	}
	const margin = 24.0

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: sheetW, Ht: sheetH},
		OrientationStr: "",
	})
	pdf.SetTitle(fmt.Sprintf("%s — mapping proof", issue.Title), true)
	pdf.SetAuthor("epaperadmin", false)
	pdf.SetFont("Helvetica", "", 9)

	for _, pidx := range pageIndexes(len(issue.Pages), opt.Pages) {
		if pidx < 0 || pidx >= len(issue.Pages) {
			continue
		}
		pg := issue.Pages[pidx]
		if pg.Width <= 0 || pg.Height <= 0 {
			continue
		}
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: sheetW, Ht: sheetH})

		// Uniform scale, page centered inside the margins.
		availW, availH := sheetW-2*margin, sheetH-2*margin-14
		scale := availW / pg.Width
		if s := availH / pg.Height; s < scale {
			scale = s
		}
		offX := margin + (availW-pg.Width*scale)/2
		offY := margin + 14 + (availH-pg.Height*scale)/2

		pdf.SetFont("Helvetica", "B", 11)
		pdf.Text(margin, margin, fmt.Sprintf("%s — page %d (%d regions)", issue.Title, pg.PageNo, len(pg.News)))
		pdf.SetFont("Helvetica", "", 9)

		// Page outline
		pdf.SetDrawColor(120, 120, 120)
		pdf.SetLineWidth(0.4)
		pdf.Rect(offX, offY, pg.Width*scale, pg.Height*scale, "D")

		for _, r := range pg.News {
			x := offX + r.X*scale
			y := offY + r.Y*scale
			w := r.Width * scale
			h := r.Height * scale
			if r.EffectiveKind() == domain.RegionAnnotated {
				pdf.SetDrawColor(0, 110, 0)
			} else {
				pdf.SetDrawColor(180, 60, 0)
			}
			pdf.SetLineWidth(0.8)
			pdf.Rect(x, y, w, h, "D")
			if opt.LabelRegions {
				label := r.Title
				if label == "" {
					label = fmt.Sprintf("#%d", r.ID)
				}
				pdf.Text(x+3, y+10, label)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}
