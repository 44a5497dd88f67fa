package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecobalance/impact-balance/internal/api/response"
	"github.com/ecobalance/impact-balance/internal/config"
	"github.com/ecobalance/impact-balance/internal/ingest"
)

// ImportHandler handles legacy workbook uploads for bulk backfill.
type ImportHandler struct {
	normalizer      *ingest.Normalizer
	idempotencyRepo IdempotencyClaimer
	cfg             *config.Config
}

// NewImportHandler creates a new import handler.
func NewImportHandler(
	normalizer *ingest.Normalizer,
	idempotencyRepo IdempotencyClaimer,
	cfg *config.Config,
) *ImportHandler {
	return &ImportHandler{
		normalizer:      normalizer,
		idempotencyRepo: idempotencyRepo,
		cfg:             cfg,
	}
}

// HandleImport handles POST /api/v1/imports. The uploaded workbook
// (xlsx or csv) is parsed into rows and normalized into event records;
// the response reports only the imported-row count.
func (h *ImportHandler) HandleImport(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required", nil)
		return
	}

	ext := filepath.Ext(file.Filename)
	if ext != ".xlsx" && ext != ".csv" {
		response.BadRequest(c, "file must be an xlsx workbook or a CSV", nil)
		return
	}

	if file.Size > h.cfg.Import.MaxFileSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds max size of %d bytes", h.cfg.Import.MaxFileSize), nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	if err := os.MkdirAll(h.cfg.Import.TempDir, 0755); err != nil {
		response.InternalError(c, "failed to create temp directory")
		return
	}

	importID := uuid.New()
	tempPath := filepath.Join(h.cfg.Import.TempDir, importID.String()+ext)
	tempFile, err := os.Create(tempPath)
	if err != nil {
		response.InternalError(c, "failed to create temp file")
		return
	}
	defer os.Remove(tempPath)
	defer tempFile.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tempFile, hasher), src); err != nil {
		response.InternalError(c, "failed to save file")
		return
	}
	contentHash := hex.EncodeToString(hasher.Sum(nil))

	// Dedup re-uploads of the same workbook by content hash.
	claim, err := h.idempotencyRepo.Claim(c.Request.Context(), contentHash, "import", importID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("idempotency check failed: %v", err))
		return
	}
	if claim.AlreadyExists {
		response.Conflict(c, "this workbook was already imported", gin.H{
			"import_id": claim.ResourceID,
		})
		return
	}

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		response.InternalError(c, "failed to rewind temp file")
		return
	}

	var rows []ingest.Row
	if ext == ".xlsx" {
		rows, err = ingest.ReadWorkbook(tempFile)
	} else {
		rows, err = ingest.ReadCSV(tempFile)
	}
	if err != nil {
		// The claim would otherwise block a corrected re-upload forever.
		_ = h.idempotencyRepo.Release(c.Request.Context(), contentHash, "import")
		response.BadRequest(c, fmt.Sprintf("failed to parse file: %v", err), nil)
		return
	}

	imported, err := h.normalizer.Import(c.Request.Context(), rows)
	if err != nil {
		_ = h.idempotencyRepo.Release(c.Request.Context(), contentHash, "import")
		response.InternalError(c, fmt.Sprintf("import failed: %v", err))
		return
	}
	if imported == 0 {
		// Nothing landed; keep the file retryable.
		_ = h.idempotencyRepo.Release(c.Request.Context(), contentHash, "import")
	}

	response.Success(c, http.StatusOK, gin.H{
		"import_id":     importID,
		"rows_total":    len(rows),
		"rows_imported": imported,
	})
}
