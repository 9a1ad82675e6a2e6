package v1

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	K         int    `json:"k"`
	Verbose   bool   `json:"verbose"`
}

type sessionStatsResponse struct {
	SessionID       string `json:"session_id"`
	HistoryLength   int    `json:"history_length"`
	Active          bool   `json:"active"`
	EmbeddingsCount int    `json:"embeddings_count"`
	FilesCount      int    `json:"files_count"`
}

func (s *APIV1Service) chat(c *echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	k := req.K
	if k < 1 {
		k = s.Profile.DefaultK
	}

	result, err := s.Bot.Chat(c.Request().Context(), sessionID, req.Message, k, req.Verbose)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) clearHistory(c *echo.Context) error {
	sessionID := c.Param("session")
	if s.Sessions.ClearHistory(sessionID) {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "History cleared for session " + sessionID,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Session " + sessionID + " not found",
	})
}

func (s *APIV1Service) deleteSession(c *echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session")

	chatDeleted := s.Sessions.Delete(sessionID)

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

	if !chatDeleted && filesDeleted == 0 && embeddingsDeleted == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Session "+sessionID+" not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":            "Session " + sessionID + " deleted",
		"files_deleted":      filesDeleted,
		"embeddings_deleted": embeddingsDeleted,
	})
}

func (s *APIV1Service) listSessions(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": s.Sessions.ListIDs(),
	})
}

// sessionStats reports zeros for an unknown session rather than a 404, so a
// caller can confirm a delete completed.
func (s *APIV1Service) sessionStats(c *echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session")

	resp := sessionStatsResponse{SessionID: sessionID}
	if info, ok := s.Sessions.Info(sessionID); ok {
		resp.Active = true
		resp.HistoryLength = info.HistoryLength
	}
	resp.EmbeddingsCount = s.Vectors.Count(sessionID)
	if s.ObjectStore != nil {
		objects, err := s.ObjectStore.ListSession(ctx, sessionID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		resp.FilesCount = len(objects)
	}
	return c.JSON(http.StatusOK, resp)
}
