package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/repopackd/internal/job"
)

// SelectionResponse is the response body for an accepted selection.
type SelectionResponse struct {
	Status string `json:"status"`
}

// handleSelection delivers {"selectedFiles": [...]} to a waiting job.
// Omitting selectedFiles asks for the default policy.
func (s *Server) handleSelection(c echo.Context) error {
	var reply job.Reply
	if err := json.NewDecoder(c.Request().Body).Decode(&reply); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	switch err := s.jobs.Reply(c.Param("id"), reply); {
	case errors.Is(err, job.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	case errors.Is(err, job.ErrNotAwaiting):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, SelectionResponse{Status: "accepted"})
}
