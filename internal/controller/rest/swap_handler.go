package rest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type createSwapRequest struct {
	MySlotID    uuid.UUID `json:"mySlotId" validate:"required"`
	TheirSlotID uuid.UUID `json:"theirSlotId" validate:"required"`
}

type swapResponseRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

func (s *Server) listSwappable(c echo.Context) error {
	slots, err := s.query.ListSwappableSlots(c.Request().Context(), currentUser(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(slots))
}

func (s *Server) createSwapRequest(c echo.Context) error {
	req := new(createSwapRequest)
	if err := bind(c, req); err != nil {
		return s.fail(c, err)
	}

	created, err := s.swaps.CreateProposal(c.Request().Context(), currentUser(c), req.MySlotID, req.TheirSlotID)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

func (s *Server) respondSwapRequest(c echo.Context) error {
	requestID, err := pathID(c, "requestId")
	if err != nil {
		return s.fail(c, err)
	}

	req := new(swapResponseRequest)
	if err := bind(c, req); err != nil {
		return s.fail(c, err)
	}

	res, err := s.swaps.ResolveProposal(c.Request().Context(), requestID, currentUser(c), *req.Accepted)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

func (s *Server) listIncoming(c echo.Context) error {
	views, err := s.query.ListIncoming(c.Request().Context(), currentUser(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(views))
}

func (s *Server) listOutgoing(c echo.Context) error {
	views, err := s.query.ListOutgoing(c.Request().Context(), currentUser(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, nonNil(views))
}
