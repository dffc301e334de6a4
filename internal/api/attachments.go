package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fahad/etimad-monitor/internal/models"
)

const maxAttachmentBytes = 25 << 20

var allowedAttachmentExts = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".zip":  "application/zip",
}

// handleUploadAttachment stores an uploaded file against a saved
// competition. PDF brochures are additionally scanned for date strings,
// returned as deadline suggestions the UI can offer.
func (s *Server) handleUploadAttachment(c echo.Context) error {
	compID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid competition ID"})
	}

	header, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file field is required"})
	}
	if header.Size > maxAttachmentBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "File exceeds the 25MB limit"})
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	fileType, ok := allowedAttachmentExts[ext]
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unsupported file type"})
	}

	src, err := header.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not read uploaded file"})
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, maxAttachmentBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not read uploaded file"})
	}
	if len(content) > maxAttachmentBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "File exceeds the 25MB limit"})
	}

	if err := os.MkdirAll(s.attachmentDir, 0o755); err != nil {
		s.log.Error().Err(err).Msg("creating attachment dir failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	// Stored name is random; the original name lives only in the DB row.
	storedName := uuid.New().String() + ext
	storedPath := filepath.Join(s.attachmentDir, storedName)
	if err := os.WriteFile(storedPath, content, 0o644); err != nil {
		s.log.Error().Err(err).Msg("writing attachment failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	saved, err := s.Store.InsertAttachment(c.Request().Context(), models.Attachment{
		CompetitionID: compID,
		FileName:      filepath.Base(header.Filename),
		FilePath:      storedPath,
		FileType:      fileType,
	})
	if err != nil {
		os.Remove(storedPath)
		s.log.Error().Err(err).Str("competition_id", compID.String()).Msg("inserting attachment failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	if ext == ".pdf" {
		saved.DeadlineHints = pdfDeadlineHints(content)
	}

	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleListAttachments(c echo.Context) error {
	compID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid competition ID"})
	}

	attachments, err := s.Store.ListAttachments(c.Request().Context(), compID)
	if err != nil {
		s.log.Error().Err(err).Str("competition_id", compID.String()).Msg("listing attachments failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, attachments)
}
