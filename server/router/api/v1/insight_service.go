package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/mirrormatch/ai/insight"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
)

type namedPairRequest struct {
	pairRequest
	NameA string `json:"name_a"`
	NameB string `json:"name_b"`
}

func (s *APIV1Service) generator() (*insight.Generator, error) {
	g := s.Matchmaker.Generator()
	if g == nil {
		return nil, toHTTPError(matchmaker.ErrBlurbsUnavailable)
	}
	return g, nil
}

func (s *APIV1Service) Blurb(c echo.Context) error {
	g, err := s.generator()
	if err != nil {
		return err
	}
	req := &namedPairRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	ctx, err := req.validate()
	if err != nil {
		return toHTTPError(err)
	}
	blurb, err := g.Blurb(c.Request().Context(),
		insight.Party{Name: req.NameA, Vector: req.VectorA},
		insight.Party{Name: req.NameB, Vector: req.VectorB},
		ctx)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, blurb)
}

func (s *APIV1Service) OpeningMessage(c echo.Context) error {
	g, err := s.generator()
	if err != nil {
		return err
	}
	req := &namedPairRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	ctx, err := req.validate()
	if err != nil {
		return toHTTPError(err)
	}
	msg, err := g.OpeningMessage(c.Request().Context(),
		insight.Party{Name: req.NameA, Vector: req.VectorA},
		insight.Party{Name: req.NameB, Vector: req.VectorB},
		ctx)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, msg)
}

func (s *APIV1Service) BlindSpot(c echo.Context) error {
	g, err := s.generator()
	if err != nil {
		return err
	}
	req := &vectorRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	v := req.get()
	if err := v.Validate(); err != nil {
		return toHTTPError(err)
	}
	spot, err := g.BlindSpot(c.Request().Context(), insight.Party{Name: req.Name, Vector: v})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, spot)
}

func (s *APIV1Service) Quiz(c echo.Context) error {
	g, err := s.generator()
	if err != nil {
		return err
	}
	req := &vectorRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	v := req.get()
	if err := v.Validate(); err != nil {
		return toHTTPError(err)
	}
	quiz, err := g.Quiz(c.Request().Context(), insight.Party{Name: req.Name, Vector: v})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, quiz)
}
