package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mirrormatch/matching"
)

// vectorRequest accepts {"vector": {...}} or the vector fields inline.
type vectorRequest struct {
	Vector *matching.PersonalityVector `json:"vector"`
	Name   string                      `json:"name"`
	matching.PersonalityVector
}

func (r *vectorRequest) get() *matching.PersonalityVector {
	if r.Vector != nil {
		return r.Vector
	}
	return &r.PersonalityVector
}

func (s *APIV1Service) Portrait(c echo.Context) error {
	req := &vectorRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	v := req.get()
	if err := v.Validate(); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, s.Matchmaker.Scorer().Registry().SelfPortrait(v))
}

type growthRequest struct {
	VectorPast *matching.PersonalityVector `json:"vector_past"`
	VectorNow  *matching.PersonalityVector `json:"vector_now"`
	LabelPast  string                      `json:"label_past"`
	LabelNow   string                      `json:"label_now"`
}

func (s *APIV1Service) Growth(c echo.Context) error {
	req := &growthRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	if err := validateVectors(req.VectorPast, req.VectorNow); err != nil {
		return toHTTPError(err)
	}
	if req.LabelPast == "" {
		req.LabelPast = "6 months ago"
	}
	if req.LabelNow == "" {
		req.LabelNow = "today"
	}
	growth := s.Matchmaker.Scorer().Registry().GrowthDiff(req.VectorPast, req.VectorNow, req.LabelPast, req.LabelNow)
	return c.JSON(http.StatusOK, growth)
}
