package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
	"github.com/hrygo/mirrormatch/store"
)

type archetypeRequest struct {
	UserID          string                      `json:"user_id"`
	PartitionID     string                      `json:"partition_id"`
	Vector          *matching.PersonalityVector `json:"vector"`
	ReputationScore float64                     `json:"reputation_score"`
}

type archetypeResponse struct {
	Status      string `json:"status"`
	UserID      string `json:"user_id"`
	PartitionID string `json:"partition_id"`
}

func (s *APIV1Service) UpsertArchetype(c echo.Context) error {
	req := &archetypeRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	if req.UserID == "" || req.PartitionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and partition_id are required")
	}
	if err := validateVectors(req.Vector); err != nil {
		return toHTTPError(err)
	}
	archetype, err := s.Matchmaker.UpsertArchetype(c.Request().Context(), &store.UpsertArchetype{
		UserID:          req.UserID,
		PartitionID:     req.PartitionID,
		Vector:          req.Vector,
		ReputationScore: req.ReputationScore,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, &archetypeResponse{
		Status:      "ok",
		UserID:      archetype.UserID,
		PartitionID: archetype.PartitionID,
	})
}

func (s *APIV1Service) GetMatches(c echo.Context) error {
	req := &matchmaker.MatchRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	ctx, err := parseContext(string(req.Context))
	if err != nil {
		return toHTTPError(err)
	}
	req.Context = ctx
	if req.Vector != nil {
		if err := req.Vector.Validate(); err != nil {
			return toHTTPError(err)
		}
	}
	resp, err := s.Matchmaker.GetMatches(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// PartitionGroupMatch searches the eligible pool of a partition. Team size
// defaults to 4.
func (s *APIV1Service) PartitionGroupMatch(c echo.Context) error {
	req := &matchmaker.GroupRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	if req.TeamSize == 0 {
		req.TeamSize = 4
	}
	resp, err := s.Matchmaker.GroupMatch(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

type abandonRequest struct {
	UserID      string `json:"user_id"`
	PartitionID string `json:"partition_id"`
}

type abandonResponse struct {
	UserID           string       `json:"user_id"`
	PartitionID      string       `json:"partition_id"`
	AbandonmentCount int          `json:"abandonment_count"`
	Status           store.Status `json:"status"`
}

func (s *APIV1Service) ReportAbandonment(c echo.Context) error {
	req := &abandonRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	if req.UserID == "" || req.PartitionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and partition_id are required")
	}
	state, err := s.Matchmaker.ReportAbandonment(c.Request().Context(), req.UserID, req.PartitionID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, &abandonResponse{
		UserID:           state.UserID,
		PartitionID:      state.PartitionID,
		AbandonmentCount: state.Count,
		Status:           state.Status,
	})
}

type walletRequest struct {
	Wallet string `json:"wallet"`
	UserID string `json:"user_id"`
}

func (s *APIV1Service) LinkWallet(c echo.Context) error {
	req := &walletRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	if req.Wallet == "" || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "wallet and user_id are required")
	}
	if err := s.Matchmaker.LinkWallet(c.Request().Context(), &store.WalletLink{Wallet: req.Wallet, UserID: req.UserID}); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "wallet": req.Wallet, "user_id": req.UserID})
}
