// Package api exposes the observational HTTP surface of a running
// workflow: health, progress, and the task list. It never mutates
// workflow state.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/env"
)

// Server serves read-only workflow state over HTTP.
type Server struct {
	echo  *echo.Echo
	state *state.State
}

func New(st *state.State) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, state: st}

	// health
	e.GET("/health", Health)

	// metrics
	prometheus.NewPrometheus("epc", nil).Use(e)

	// workflow state
	e.GET("/status", s.Status)
	e.GET("/tasks", s.Tasks)

	return s
}

// Start serves on the configured port until Shutdown.
func (s *Server) Start() error {
	err := s.echo.Start(fmt.Sprintf(":%v", env.Variables().Port))
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// StatusResponse summarizes workflow progress.
type StatusResponse struct {
	RunID          string                    `json:"run_id"`
	StartedAt      time.Time                 `json:"started_at"`
	Iteration      int                       `json:"iteration"`
	Elapsed        string                    `json:"elapsed"`
	Counts         map[models.TaskStatus]int `json:"counts"`
	ActiveSubjects []string                  `json:"active_subjects,omitempty"`
	DFTSelected    bool                      `json:"dft_selected"`
	Drained        bool                      `json:"drained"`
}

// Status reports run-level progress counters.
func (s *Server) Status(c echo.Context) error {
	run := s.state.Run()

	return c.JSON(http.StatusOK, StatusResponse{
		RunID:          run.ID.String(),
		StartedAt:      run.StartedAt,
		Iteration:      run.Iteration,
		Elapsed:        time.Since(run.StartedAt).Round(time.Second).String(),
		Counts:         s.state.Counts(),
		ActiveSubjects: s.state.ActiveSubjects(),
		DFTSelected:    run.DFTSelected,
		Drained:        s.state.Drained(),
	})
}

// Tasks lists every task in creation order.
func (s *Server) Tasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.Tasks())
}
