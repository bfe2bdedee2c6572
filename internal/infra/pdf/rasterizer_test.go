package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

func skipIfNoPdftoppm(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not found in PATH")
	}
}

// buildMinimalPDF assembles a tiny valid PDF with the given number of blank
// pages, computing the xref table as objects are appended.
func buildMinimalPDF(pageCount int) []byte {
	var buf bytes.Buffer
	var offsets []int

	buf.WriteString("%PDF-1.4\n")

	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	kids := make([]string, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+i))
	}

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pageCount))
	for i := 0; i < pageCount; i++ {
		addObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] >>\nendobj\n", 3+i))
	}

	xrefOffset := buf.Len()
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", len(offsets)+1))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset))

	return buf.Bytes()
}

func TestRasterizePages(t *testing.T) {
	skipIfNoPdftoppm(t)

	workDir := t.TempDir()
	deckPath := filepath.Join(workDir, "deck.pdf")
	require.NoError(t, os.WriteFile(deckPath, buildMinimalPDF(3), 0644))

	rasterizer := NewRasterizer(144, 1024, 60, zap.NewNop())
	pages, err := rasterizer.RasterizePages(context.Background(), deckPath, workDir)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	for i, page := range pages {
		assert.Equal(t, i+1, page.PageNumber)
		assert.Equal(t, "image/jpeg", page.MIMEType)
		require.NotEmptyf(t, page.Image, "page %d has no image data", page.PageNumber)
		assert.Equal(t, []byte{0xFF, 0xD8}, page.Image[:2], "page %d is not a JPEG", page.PageNumber)
	}

	// The render scratch dir must not outlive the run.
	_, err = os.Stat(filepath.Join(workDir, "render"))
	assert.True(t, os.IsNotExist(err))
}

func TestRasterizePagesAbortsOnPageFailure(t *testing.T) {
	workDir := t.TempDir()
	deckPath := filepath.Join(workDir, "deck.pdf")
	require.NoError(t, os.WriteFile(deckPath, buildMinimalPDF(2), 0644))

	// Validation and the page count run in-process, so an empty PATH only
	// breaks the external render; the failure must carry the page number
	// and abort before any later page is attempted.
	t.Setenv("PATH", "")

	rasterizer := NewRasterizer(144, 1024, 60, zap.NewNop())
	_, err := rasterizer.RasterizePages(context.Background(), deckPath, workDir)
	require.Error(t, err)

	var decodeErr *entity.DocumentDecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 1, decodeErr.Page)
	assert.Equal(t, deckPath, decodeErr.Path)
}

func TestRasterizePagesRejectsGarbage(t *testing.T) {
	workDir := t.TempDir()
	deckPath := filepath.Join(workDir, "deck.pdf")
	require.NoError(t, os.WriteFile(deckPath, []byte("not a pdf at all"), 0644))

	rasterizer := NewRasterizer(144, 1024, 60, zap.NewNop())
	_, err := rasterizer.RasterizePages(context.Background(), deckPath, workDir)
	require.Error(t, err)

	var decodeErr *entity.DocumentDecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 0, decodeErr.Page)
	assert.Equal(t, deckPath, decodeErr.Path)
}
