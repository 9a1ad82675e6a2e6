// Package v1 exposes the REST surface of the RAG backend.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/docuchat/docuchat/plugin/storage/s3"
	"github.com/docuchat/docuchat/plugin/vectorstore"
	"github.com/docuchat/docuchat/server/chatbot"
	"github.com/docuchat/docuchat/server/profile"
	"github.com/docuchat/docuchat/store"
)

// APIV1Service bundles the collaborators the handlers dispatch into.
// ObjectStore is nil when no bucket is configured; file endpoints then
// degrade to embeddings-only behavior.
type APIV1Service struct {
	Profile     *profile.Profile
	Sessions    *store.Registry
	Bot         *chatbot.ChatBot
	Vectors     *vectorstore.Store
	ObjectStore *s3.Client
}

func NewAPIV1Service(p *profile.Profile, sessions *store.Registry, bot *chatbot.ChatBot, vectors *vectorstore.Store, objectStore *s3.Client) *APIV1Service {
	return &APIV1Service{
		Profile:     p,
		Sessions:    sessions,
		Bot:         bot,
		Vectors:     vectors,
		ObjectStore: objectStore,
	}
}

// RegisterRoutes attaches every endpoint to e.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/", s.apiIndex)
	e.GET("/healthz", s.health)

	g := e.Group("/api/v1")
	g.POST("/chat", s.chat)
	g.POST("/chat/clear/:session", s.clearHistory)
	g.DELETE("/chat/session/:session", s.deleteSession)
	g.GET("/sessions", s.listSessions)
	g.GET("/sessions/:session", s.sessionStats)
	g.POST("/upload", s.uploadPDF)
	g.POST("/ingest", s.ingestText)
	g.GET("/files/:session", s.listFiles)
	g.DELETE("/files/:session", s.deleteFiles)
	g.DELETE("/files/:session/:filename", s.deleteFile)
}

// httpError maps pipeline failure kinds onto HTTP status codes.
func httpError(err error) error {
	switch chatbot.KindOf(err) {
	case chatbot.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case chatbot.KindExtractionFailed:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
