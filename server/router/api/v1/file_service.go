package v1

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/docuchat/docuchat/plugin/pdfextract"
	"github.com/docuchat/docuchat/plugin/storage/s3"
	"github.com/docuchat/docuchat/server/chatbot"
)

type uploadResponse struct {
	Message       string `json:"message"`
	Filename      string `json:"filename"`
	SessionID     string `json:"session_id"`
	FileURL       string `json:"file_url"`
	FileKey       string `json:"file_key"`
	ChunksCreated int    `json:"chunks_created"`
	TextLength    int    `json:"text_length"`
}

type ingestRequest struct {
	Text      string `json:"text"`
	Filename  string `json:"filename"`
	SessionID string `json:"session_id"`
}

type sessionFilesResponse struct {
	SessionID       string      `json:"session_id"`
	FilesCount      int         `json:"files_count"`
	Files           []s3.Object `json:"files"`
	EmbeddingsCount int         `json:"embeddings_count"`
}

// uploadPDF extracts and indexes the PDF first, then backs the original up
// to object storage. A storage failure after a successful ingest is reported
// as a success with an empty URL: the embeddings are what answer questions.
func (s *APIV1Service) uploadPDF(c *echo.Context) error {
	ctx := c.Request().Context()

	sessionID := c.FormValue("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id required")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		return echo.NewHTTPError(http.StatusBadRequest, "only PDF files are allowed")
	}

	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}

	text, err := pdfextract.Extract(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return httpError(&chatbot.Error{
			Kind:      chatbot.KindExtractionFailed,
			SessionID: sessionID,
			Err:       err,
		})
	}

	result, err := s.Bot.Ingest(ctx, text, fh.Filename, sessionID, "uploaded_pdf")
	if err != nil {
		return httpError(err)
	}

	resp := uploadResponse{
		Message:       "PDF uploaded and processed successfully",
		Filename:      fh.Filename,
		SessionID:     sessionID,
		ChunksCreated: result.ChunksCreated,
		TextLength:    result.TextLength,
	}
	if s.ObjectStore != nil {
		obj, err := s.ObjectStore.Upload(ctx, sessionID, fh.Filename, bytes.NewReader(data), "application/pdf")
		if err != nil {
			slog.Warn("cloud backup failed after successful ingest", "session", sessionID, "filename", fh.Filename, "err", err)
			resp.Message = "PDF processed successfully (cloud backup failed)"
		} else {
			resp.FileURL = obj.URL
			resp.FileKey = obj.Key
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// ingestText indexes raw text (.txt content) without a file upload.
func (s *APIV1Service) ingestText(c *echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil || req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text and session_id required")
	}
	if req.Filename == "" {
		req.Filename = "inline.txt"
	}
	result, err := s.Bot.Ingest(c.Request().Context(), req.Text, req.Filename, req.SessionID, "text")
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":        "Text ingested successfully",
		"filename":       req.Filename,
		"session_id":     req.SessionID,
		"chunks_created": result.ChunksCreated,
		"text_length":    result.TextLength,
	})
}

func (s *APIV1Service) listFiles(c *echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session")

	files := []s3.Object{}
	if s.ObjectStore != nil {
		objects, err := s.ObjectStore.ListSession(ctx, sessionID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		files = objects
	}
	return c.JSON(http.StatusOK, sessionFilesResponse{
		SessionID:       sessionID,
		FilesCount:      len(files),
		Files:           files,
		EmbeddingsCount: s.Vectors.Count(sessionID),
	})
}

// deleteFile removes one stored file and its embeddings.
func (s *APIV1Service) deleteFile(c *echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session")
	filename := c.Param("filename")

	if s.ObjectStore != nil {
		if err := s.ObjectStore.Delete(ctx, s3.SessionKey(sessionID, filename)); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	embeddingsDeleted, err := s.Vectors.DeleteFile(ctx, sessionID, filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if embeddingsDeleted == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "File "+filename+" not found in session "+sessionID)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":            "Deleted " + filename,
		"embeddings_deleted": embeddingsDeleted,
	})
}

func (s *APIV1Service) deleteFiles(c *echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session")

	filesDeleted := 0
	if s.ObjectStore != nil {
		n, err := s.ObjectStore.DeleteSession(ctx, sessionID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		filesDeleted = n
	}
	embeddingsDeleted, err := s.Vectors.DeleteSession(ctx, sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":            "Deleted all files for session " + sessionID,
		"files_deleted":      filesDeleted,
		"embeddings_deleted": embeddingsDeleted,
	})
}
