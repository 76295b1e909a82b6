/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"epaperadmin/internal/backend"
	"epaperadmin/internal/config"
	"epaperadmin/internal/crash"
	"epaperadmin/internal/domain"
	"epaperadmin/internal/export"
	"epaperadmin/internal/ingest"
	applog "epaperadmin/internal/log"
	"epaperadmin/internal/storage"
	"epaperadmin/internal/ui"
	"epaperadmin/internal/version"
)

func usage() {
	fmt.Println("E-Paper Admin — region mapping tools")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  epaperadmin version|-v|--version          Show version")
	fmt.Println("  epaperadmin list                           List epapers on the backend")
	fmt.Println("  epaperadmin drafts                         List local drafts")
	fmt.Println("  epaperadmin push <epaperID>                Push the local draft of an issue to the backend")
	fmt.Println("  epaperadmin upload <epaperID> <image> <pageNo>  Upload a page image")
	fmt.Println("  epaperadmin split <epaperID> <pdf> <pageCount> [outDir]  Rasterize a PDF and upload every page")
	fmt.Println("  epaperadmin move <epaperID> <pageNo> up|down    Reorder a page")
	fmt.Println("  epaperadmin rmpage <epaperID> <pageNo>          Remove a page")
	fmt.Println("  epaperadmin proof <epaperID> [outDir]      Render a mapping proof PDF and page overlays")
	fmt.Println("  epaperadmin ui [<epaperID>]                Launch desktop editor (build with -tags fyne)")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")

	var drafts *storage.DraftStore
	defer func() { crash.Recover(drafts, nil) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	cfg, token, err := config.Load()
	if err != nil {
		fail(l, "load config", err)
	}
	// Re-init logging now that the file config is known; env overrides
	// already won inside Load.
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l = applog.WithComponent("cli")
	if cfg.General.TelemetryOptIn && os.Getenv(config.EnvTelemetryOptIn) == "" {
		os.Setenv(config.EnvTelemetryOptIn, "1")
	}

	client := backend.NewClient(cfg.Backend.BaseURL, token)
	if cfg.Backend.TLSInsecure {
		client.AllowInsecureTLS()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Backend.TimeoutMs)*time.Millisecond)
	defer cancel()

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("E-Paper Admin — region mapping tools")
		fmt.Println(version.String())

	case "list":
		issues, err := client.ListEpapers(ctx)
		if err != nil {
			fail(l, "list epapers", err)
		}
		for _, is := range issues {
			regions := 0
			for _, pg := range is.Pages {
				regions += len(pg.News)
			}
			fmt.Printf("%-24s  %-10s  %2d pages  %3d regions  %s\n", is.ID, is.Date, len(is.Pages), regions, is.Title)
		}

	case "drafts":
		drafts = openDrafts(l, cfg)
		list, err := drafts.ListDrafts(ctx)
		if err != nil {
			fail(l, "list drafts", err)
		}
		for _, d := range list {
			state := "synced"
			if d.Dirty {
				state = "dirty"
			}
			fmt.Printf("%-24s  %-7s  %s  %s\n", d.EpaperID, state, d.UpdatedAt.Format(time.RFC3339), d.Title)
		}

	case "push":
		if len(args) < 3 {
			usage()
			os.Exit(2)
		}
		drafts = openDrafts(l, cfg)
		issue, err := drafts.LoadDraft(ctx, args[2])
		if errors.Is(err, storage.ErrDraftNotFound) {
			fail(l, "load draft", fmt.Errorf("no local draft for %s", args[2]))
		} else if err != nil {
			fail(l, "load draft", err)
		}
		echo, err := client.UpdateEpaper(ctx, issue)
		if err != nil {
			fail(l, "push draft", err)
		}
		echo.Dirty = false
		if err := drafts.SaveDraft(ctx, echo); err != nil {
			fail(l, "store echo", err)
		}
		fmt.Printf("Pushed %s (%d pages)\n", echo.ID, len(echo.Pages))

	case "upload":
		if len(args) < 5 {
			usage()
			os.Exit(2)
		}
		epaperID, imgPath := args[2], args[3]
		var pageNo int
		if _, err := fmt.Sscanf(args[4], "%d", &pageNo); err != nil || pageNo < 1 {
			fail(l, "parse pageNo", fmt.Errorf("invalid page number %q", args[4]))
		}
		pf, err := ingest.Probe(imgPath)
		if err != nil {
			fail(l, "probe image", err)
		}
		f, err := os.Open(pf.Path)
		if err != nil {
			fail(l, "open image", err)
		}
		defer f.Close()
		echo, err := client.UploadPage(ctx, epaperID, pageNo, pageNo, pf.Filename, f)
		if err != nil {
			fail(l, "upload page", err)
		}
		fmt.Printf("Uploaded %s (%gx%g) — issue now has %d pages\n", pf.Filename, pf.Width, pf.Height, len(echo.Pages))

	case "split":
		if len(args) < 5 {
			usage()
			os.Exit(2)
		}
		epaperID, pdfPath := args[2], args[3]
		var pageCount int
		if _, err := fmt.Sscanf(args[4], "%d", &pageCount); err != nil || pageCount < 1 {
			fail(l, "parse pageCount", fmt.Errorf("invalid page count %q", args[4]))
		}
		outDir := os.TempDir()
		if len(args) >= 6 {
			outDir = args[5]
		}
		pages, err := ingest.SplitPDF(ctx, pdftoppmRasterizer(), pdfPath, pageCount, outDir)
		if err != nil {
			fail(l, "split pdf", err)
		}
		for i, pf := range pages {
			f, err := os.Open(pf.Path)
			if err != nil {
				fail(l, "open page image", err)
			}
			_, err = client.UploadPage(ctx, epaperID, i+1, i+1, pf.Filename, f)
			f.Close()
			if err != nil {
				fail(l, "upload page", fmt.Errorf("page %d: %w", i+1, err))
			}
			if thumb, err := ingest.Thumbnail(pf.Path, 320); err == nil {
				_ = os.WriteFile(filepath.Join(outDir, fmt.Sprintf("page-%d-thumb.jpg", i+1)), thumb, 0o644)
			}
			fmt.Printf("Uploaded page %d/%d (%gx%g)\n", i+1, pageCount, pf.Width, pf.Height)
		}

	case "move":
		if len(args) < 5 {
			usage()
			os.Exit(2)
		}
		issue := fetchIssue(ctx, l, client, args[2])
		var pageNo int
		if _, err := fmt.Sscanf(args[3], "%d", &pageNo); err != nil || pageNo < 1 {
			fail(l, "parse pageNo", fmt.Errorf("invalid page number %q", args[3]))
		}
		delta := 0
		switch args[4] {
		case "up":
			delta = -1
		case "down":
			delta = 1
		default:
			fail(l, "parse direction", fmt.Errorf("direction must be up or down, got %q", args[4]))
		}
		if !ingest.MovePage(issue.Pages, pageNo-1, delta) {
			fail(l, "move page", fmt.Errorf("cannot move page %d %s", pageNo, args[4]))
		}
		echo, err := client.UpdateEpaper(ctx, issue)
		if err != nil {
			fail(l, "save page order", err)
		}
		fmt.Printf("Moved page %d %s in %s\n", pageNo, args[4], echo.ID)

	case "rmpage":
		if len(args) < 4 {
			usage()
			os.Exit(2)
		}
		issue := fetchIssue(ctx, l, client, args[2])
		var pageNo int
		if _, err := fmt.Sscanf(args[3], "%d", &pageNo); err != nil || pageNo < 1 {
			fail(l, "parse pageNo", fmt.Errorf("invalid page number %q", args[3]))
		}
		pages, ok := ingest.RemovePage(issue.Pages, pageNo-1)
		if !ok {
			fail(l, "remove page", fmt.Errorf("no page %d in %s", pageNo, issue.ID))
		}
		issue.Pages = pages
		echo, err := client.UpdateEpaper(ctx, issue)
		if err != nil {
			fail(l, "save page removal", err)
		}
		fmt.Printf("Removed page %d — %s now has %d pages\n", pageNo, echo.ID, len(echo.Pages))

	case "proof":
		if len(args) < 3 {
			usage()
			os.Exit(2)
		}
		issue := fetchIssue(ctx, l, client, args[2])
		outDir := "."
		if len(args) >= 4 {
			outDir = args[3]
		}
		pdfPath := filepath.Join(outDir, export.ProofPDFName(issue))
		if err := export.WriteProofPDF(issue, pdfPath, export.PDFOptions{LabelRegions: true}); err != nil {
			fail(l, "write proof pdf", err)
		}
		files, err := export.WriteOverlayPNGs(issue, outDir, export.PNGOptions{})
		if err != nil {
			fail(l, "write overlays", err)
		}
		fmt.Printf("Wrote %s and %d page overlays\n", pdfPath, len(files))

	case "ui":
		var id string
		if len(args) >= 3 {
			id = args[2]
		}
		if err := ui.Run(id); err != nil {
			fail(l, "run ui", err)
		}

	default:
		usage()
		os.Exit(2)
	}
}

// pdftoppmRasterizer renders single PDF pages to PNG via the poppler
// pdftoppm binary, the one rasterizer every newsroom machine has.
func pdftoppmRasterizer() ingest.PDFRasterizer {
	return func(ctx context.Context, pdfPath string, pageNo int, outDir string) (string, error) {
		prefix := filepath.Join(outDir, fmt.Sprintf("page-%d", pageNo))
		no := fmt.Sprintf("%d", pageNo)
		cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", "150", "-f", no, "-l", no, "-singlefile", pdfPath, prefix)
		if out, err := cmd.CombinedOutput(); err != nil {
			return "", fmt.Errorf("pdftoppm page %d: %w: %s", pageNo, err, strings.TrimSpace(string(out)))
		}
		return prefix + ".png", nil
	}
}

func openDrafts(l *slog.Logger, cfg config.AppConfig) *storage.DraftStore {
	root := cfg.General.DraftDir
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fail(l, "resolve home", err)
		}
		root = home
	}
	s, err := storage.Open(root)
	if err != nil {
		fail(l, "open draft store", err)
	}
	return s
}

func fetchIssue(ctx context.Context, l *slog.Logger, client *backend.Client, id string) domain.Epaper {
	issue, err := client.GetEpaper(ctx, id)
	if err != nil {
		fail(l, "fetch epaper", err)
	}
	return issue
}

func fail(l *slog.Logger, op string, err error) {
	l.Error(op+" failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
