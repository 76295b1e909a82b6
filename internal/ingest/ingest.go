/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ingest prepares page images for upload: type sniffing,
// natural-size probing, thumbnail generation and PDF splitting.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gosimple/slug"
	"github.com/h2non/filetype"
	"golang.org/x/image/webp"

	"epaperadmin/internal/domain"
)

// PageFile is one sniffed and probed page image, ready for upload.
type PageFile struct {
	Path     string
	MIME     string
	Width    float64
	Height   float64
	Bytes    int64
	Filename string // slugged upload name
}

// ErrUnsupportedType is returned for files that are not page images.
var ErrUnsupportedType = fmt.Errorf("unsupported page image type")

// Probe sniffs the file's magic bytes and decodes its natural pixel
// size. Supported types: PNG, JPEG, WEBP.
func Probe(path string) (PageFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return PageFile{}, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return PageFile{}, err
	}

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return PageFile{}, err
	}
	kind, err := filetype.Match(head[:n])
	if err != nil {
		return PageFile{}, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return PageFile{}, err
	}
	var cfg image.Config
	switch kind.MIME.Value {
	case "image/png":
		cfg, err = png.DecodeConfig(f)
	case "image/jpeg":
		cfg, err = jpeg.DecodeConfig(f)
	case "image/webp":
		cfg, err = webp.DecodeConfig(f)
	default:
		return PageFile{}, fmt.Errorf("%w: %s", ErrUnsupportedType, kind.MIME.Value)
	}
	if err != nil {
		return PageFile{}, fmt.Errorf("decode %s header: %w", kind.Extension, err)
	}

	return PageFile{
		Path:     path,
		MIME:     kind.MIME.Value,
		Width:    float64(cfg.Width),
		Height:   float64(cfg.Height),
		Bytes:    st.Size(),
		Filename: UploadName(path, kind.Extension),
	}, nil
}

// UploadName derives a slug-safe upload filename from the source path.
func UploadName(path, ext string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s := slug.Make(base)
	if s == "" {
		s = "page"
	}
	return s + "." + ext
}

// Thumbnail renders a JPEG preview bounded by maxEdge pixels, keeping
// aspect ratio. Used for the issue picker grid.
func Thumbnail(path string, maxEdge int) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(82)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDFRasterizer renders one page of a PDF file to a PNG on disk and
// returns the output path. Rasterizing needs an external engine
// (pdftoppm or similar); callers inject whichever is installed.
type PDFRasterizer func(ctx context.Context, pdfPath string, pageNo int, outDir string) (string, error)

// SplitPDF rasterizes every page of a PDF into page images and probes
// each result. pageCount must come from the caller (the rasterizer
// engines report it differently).
func SplitPDF(ctx context.Context, rasterize PDFRasterizer, pdfPath string, pageCount int, outDir string) ([]PageFile, error) {
	if rasterize == nil {
		return nil, fmt.Errorf("no PDF rasterizer configured")
	}
	if pageCount <= 0 {
		return nil, fmt.Errorf("invalid page count %d", pageCount)
	}
	out := make([]PageFile, 0, pageCount)
	for pageNo := 1; pageNo <= pageCount; pageNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := rasterize(ctx, pdfPath, pageNo, outDir)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", pageNo, err)
		}
		pf, err := Probe(p)
		if err != nil {
			return nil, fmt.Errorf("probe page %d: %w", pageNo, err)
		}
		out = append(out, pf)
	}
	return out, nil
}

// Renumber rewrites pageNo and sortOrder to be contiguous and 1-based
// in the current slice order. Used after reordering or removing pages.
func Renumber(pages []domain.Page) {
	for i := range pages {
		pages[i].PageNo = i + 1
		pages[i].SortOrder = i + 1
	}
}

// MovePage shifts the page at index by delta (-1 up, +1 down) and
// renumbers. Out-of-range moves are no-ops.
func MovePage(pages []domain.Page, index, delta int) bool {
	j := index + delta
	if index < 0 || index >= len(pages) || j < 0 || j >= len(pages) {
		return false
	}
	pages[index], pages[j] = pages[j], pages[index]
	Renumber(pages)
	return true
}

// RemovePage deletes the page at index and renumbers the rest.
func RemovePage(pages []domain.Page, index int) ([]domain.Page, bool) {
	if index < 0 || index >= len(pages) {
		return pages, false
	}
	pages = append(pages[:index], pages[index+1:]...)
	Renumber(pages)
	return pages, true
}
