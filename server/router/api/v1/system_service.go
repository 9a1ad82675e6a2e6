package v1

import (
	"net/http"

	"github.com/labstack/echo/v5"
)

func (s *APIV1Service) apiIndex(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "docuchat: conversational RAG backend",
		"endpoints": map[string]string{
			"POST /api/v1/chat":                    "Send a message",
			"POST /api/v1/upload":                  "Upload a PDF and index it",
			"POST /api/v1/ingest":                  "Index raw text",
			"GET /api/v1/files/:session":           "List stored files for a session",
			"DELETE /api/v1/files/:session":        "Delete a session's files and embeddings",
			"DELETE /api/v1/files/:session/:file":  "Delete one file and its embeddings",
			"POST /api/v1/chat/clear/:session":     "Clear session history",
			"DELETE /api/v1/chat/session/:session": "Delete a session",
			"GET /api/v1/sessions":                 "List active sessions",
			"GET /api/v1/sessions/:session":        "Session stats",
			"GET /healthz":                         "Health check",
		},
	})
}

func (s *APIV1Service) health(c *echo.Context) error {
	storageBackend := "none"
	if s.ObjectStore != nil {
		storageBackend = "s3"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.Sessions.Count(),
		"storage":         storageBackend,
	})
}
