package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/mirrormatch/internal/profile"
	"github.com/hrygo/mirrormatch/internal/version"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
)

type APIV1Service struct {
	Profile    *profile.Profile
	Matchmaker *matchmaker.Service
}

func NewAPIV1Service(profile *profile.Profile, svc *matchmaker.Service) *APIV1Service {
	return &APIV1Service{
		Profile:    profile,
		Matchmaker: svc,
	}
}

// RegisterGateway registers the JSON endpoints with the given Echo instance.
func (s *APIV1Service) RegisterGateway(_ context.Context, echoServer *echo.Echo) error {
	echoServer.Use(requestIDMiddleware(), requestLogMiddleware(s.Profile.IsDev()))

	api := echoServer.Group("", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	api.GET("/health", s.Health)

	// Stateless pair and portrait endpoints.
	api.POST("/match", s.Match)
	api.POST("/match/all-contexts", s.AllContextScores)
	api.POST("/match/red-flags", s.RedFlags)
	api.POST("/match/relationship-type", s.RelationshipType)
	api.POST("/match/group", s.GroupMatch)
	api.POST("/portrait", s.Portrait)
	api.POST("/portrait/growth", s.Growth)

	// Text generation.
	api.POST("/match/blurb", s.Blurb)
	api.POST("/match/opening-message", s.OpeningMessage)
	api.POST("/portrait/blind-spot", s.BlindSpot)
	api.POST("/quiz/generate", s.Quiz)

	// Store-backed endpoints.
	v2 := api.Group("/v2")
	v2.POST("/archetype", s.UpsertArchetype)
	v2.POST("/match", s.GetMatches)
	v2.POST("/match/group", s.PartitionGroupMatch)
	v2.POST("/abandon", s.ReportAbandonment)
	v2.POST("/wallet", s.LinkWallet)

	if exporter := s.Matchmaker.Metrics(); exporter != nil {
		echoServer.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	}
	return nil
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Release       bool   `json:"release"`
	LLMEnabled    bool   `json:"llm_enabled"`
	LedgerEnabled bool   `json:"ledger_enabled"`
}

func (s *APIV1Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, &healthResponse{
		Status:        "ok",
		Version:       s.Profile.Version,
		Release:       version.IsRelease(s.Profile.Version),
		LLMEnabled:    s.Matchmaker.Generator() != nil,
		LedgerEnabled: s.Profile.IsLedgerEnabled(),
	})
}
