package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/job"
)

// JobStarted is the data of the first SSE event of a stream.
type JobStarted struct {
	JobID string `json:"jobId"`
}

// handleStream starts a job and streams its messages as SSE:
//
//	event: job
//	data: {"jobId":"..."}
//
//	event: message
//	data: {"humanFriendlyProgress":"...","progress":12.5,"complete":false}
//
// The stream ends after the terminal message. If the client disconnects
// the job keeps running and a pending selection resolves by timeout.
func (s *Server) handleStream(c echo.Context) error {
	var req job.Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	j, err := s.jobs.Start(ctx, req)
	if errors.Is(err, job.ErrInvalidRequest) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		s.logger.Error(ctx, "failed to start job", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start job")
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	if err := writeEvent(c.Response(), "job", JobStarted{JobID: j.ID}); err != nil {
		return nil
	}

	msgs := pump(ctx, j)
	ticker := time.NewTicker(s.config.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := writeEvent(c.Response(), "message", m); err != nil {
				s.logger.Debug(ctx, "stream write failed", zap.String("job_id", j.ID), zap.Error(err))
				return nil
			}
			if m.Complete {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Response(), ": heartbeat\n\n"); err != nil {
				return nil
			}
			c.Response().Flush()
		case <-ctx.Done():
			s.logger.Info(ctx, "client disconnected from job stream", zap.String("job_id", j.ID))
			return nil
		}
	}
}

// pump moves job messages onto a channel until the job ends or ctx is
// done.
func pump(ctx context.Context, j *job.Job) <-chan job.Message {
	out := make(chan job.Message)
	go func() {
		defer close(out)
		for {
			m, err := j.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func writeEvent(w *echo.Response, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}
