package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/imaging"
)

// Rasterizer turns every page of a PDF deck into a bounded JPEG. The
// document is validated and counted with pdfcpu before any rendering
// happens, then each page goes through one pdftoppm invocation so a
// single corrupt page fails with its page number attached.
type Rasterizer struct {
	renderDPI   int
	maxEdge     int
	jpegQuality int
	logger      *zap.Logger
}

func NewRasterizer(renderDPI, maxEdge, jpegQuality int, logger *zap.Logger) *Rasterizer {
	// pdfcpu must not write font metrics to the user config dir; the
	// worker runs in containers without a writable HOME.
	api.DisableConfigDir()
	return &Rasterizer{
		renderDPI:   renderDPI,
		maxEdge:     maxEdge,
		jpegQuality: jpegQuality,
		logger:      logger,
	}
}

func (r *Rasterizer) RasterizePages(ctx context.Context, deckPath, workDir string) ([]entity.PagePart, error) {
	if err := api.ValidateFile(deckPath, nil); err != nil {
		return nil, &entity.DocumentDecodeError{Path: deckPath, Err: err}
	}

	pageCount, err := api.PageCountFile(deckPath)
	if err != nil {
		return nil, &entity.DocumentDecodeError{Path: deckPath, Err: err}
	}
	if pageCount == 0 {
		return nil, &entity.DocumentDecodeError{Path: deckPath, Err: errors.New("document has no pages")}
	}

	renderDir := filepath.Join(workDir, "render")
	if err := os.MkdirAll(renderDir, 0755); err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(renderDir)

	pages := make([]entity.PagePart, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		raw, err := r.renderPage(ctx, deckPath, renderDir, page)
		if err != nil {
			return nil, &entity.DocumentDecodeError{Path: deckPath, Page: page, Err: err}
		}

		encoded, err := imaging.Normalize(raw, r.maxEdge, r.jpegQuality)
		if err != nil {
			return nil, &entity.DocumentDecodeError{Path: deckPath, Page: page, Err: err}
		}

		pages = append(pages, entity.PagePart{
			PageNumber: page,
			Image:      encoded,
			MIMEType:   imaging.MIMEType,
		})
	}

	r.logger.Info("deck rasterized",
		zap.String("deck_path", deckPath),
		zap.Int("pages", pageCount),
		zap.Int("render_dpi", r.renderDPI),
	)

	return pages, nil
}

func (r *Rasterizer) renderPage(ctx context.Context, deckPath, renderDir string, page int) ([]byte, error) {
	outPrefix := filepath.Join(renderDir, fmt.Sprintf("page-%d", page))
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-r", strconv.Itoa(r.renderDPI),
		"-singlefile",
		"-png",
		deckPath,
		outPrefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm error: %w, output: %s", err, string(output))
	}

	data, err := os.ReadFile(outPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return data, nil
}
