package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mirrormatch/matching"
)

type pairRequest struct {
	VectorA *matching.PersonalityVector `json:"vector_a"`
	VectorB *matching.PersonalityVector `json:"vector_b"`
	Context string                      `json:"context"`
}

func (r *pairRequest) validate() (matching.Context, error) {
	c, err := parseContext(r.Context)
	if err != nil {
		return "", err
	}
	if err := validateVectors(r.VectorA, r.VectorB); err != nil {
		return "", err
	}
	return c, nil
}

func (s *APIV1Service) Match(c echo.Context) error {
	req := &pairRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	ctx, err := req.validate()
	if err != nil {
		return toHTTPError(err)
	}
	result, err := s.Matchmaker.Scorer().Score(req.VectorA, req.VectorB, ctx)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) AllContextScores(c echo.Context) error {
	req := &pairRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	if err := validateVectors(req.VectorA, req.VectorB); err != nil {
		return toHTTPError(err)
	}
	scores, err := s.Matchmaker.Scorer().AllContextScores(req.VectorA, req.VectorB)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, scores)
}

func (s *APIV1Service) RedFlags(c echo.Context) error {
	req := &pairRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	ctx, err := req.validate()
	if err != nil {
		return toHTTPError(err)
	}
	report, err := matching.RedFlagRadar(req.VectorA, req.VectorB, ctx)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *APIV1Service) RelationshipType(c echo.Context) error {
	req := &pairRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	if err := validateVectors(req.VectorA, req.VectorB); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, matching.RelationshipType(req.VectorA, req.VectorB))
}

type groupRequest struct {
	Vectors  []*matching.PersonalityVector `json:"vectors"`
	Names    []string                      `json:"names"`
	TeamSize int                           `json:"team_size"`
}

// GroupMatch searches an explicit pool. Team size defaults to 4.
func (s *APIV1Service) GroupMatch(c echo.Context) error {
	req := &groupRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	if req.TeamSize == 0 {
		req.TeamSize = 4
	}
	if err := validateVectors(req.Vectors...); err != nil {
		return toHTTPError(err)
	}
	result, err := s.Matchmaker.OptimizeNamed(c.Request().Context(), req.Names, req.Vectors, req.TeamSize)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}
