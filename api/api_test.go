package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
)

// The prometheus middleware registers collectors in the process-wide
// default registry, so one server instance is shared by every test.
type APISuite struct {
	suite.Suite
	server *Server
	state  *state.State
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupSuite() {
	s.state = state.New(models.WorkflowRun{ID: uuid.New(), StartedAt: time.Now().UTC()})
	s.Require().NoError(s.state.Add(
		&models.Task{ID: "ml_MoS2_Li_000", Kind: models.TaskKindML, Material: "MoS2", Adsorbant: "Li", Status: models.TaskStatusPending},
		&models.Task{ID: "ml_MoS2_Na_001", Kind: models.TaskKindML, Material: "MoS2", Adsorbant: "Na", Status: models.TaskStatusPending},
		&models.Task{ID: "ml_WS2_Li_002", Kind: models.TaskKindML, Material: "WS2", Adsorbant: "Li", Status: models.TaskStatusPending},
	))
	s.Require().NoError(s.state.MarkQueued("ml_MoS2_Li_000", "gpu", "101"))
	s.Require().NoError(s.state.MarkQueued("ml_WS2_Li_002", "gpu", "102"))
	s.Require().NoError(s.state.MarkRunning("ml_WS2_Li_002"))
	s.server = New(s.state)
}

func (s *APISuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.server.echo.ServeHTTP(rec, req)
	return rec
}

func (s *APISuite) TestHealth() {
	rec := s.get("/health")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp HealthResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(Healthy, resp.Status)
}

func (s *APISuite) TestStatus() {
	rec := s.get("/status")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(s.state.Run().ID.String(), resp.RunID)
	s.Equal(1, resp.Counts[models.TaskStatusPending])
	s.Equal(1, resp.Counts[models.TaskStatusQueued])
	s.Equal(1, resp.Counts[models.TaskStatusRunning])
	s.Equal([]string{"WS2/Li"}, resp.ActiveSubjects)
	s.False(resp.Drained)
}

func (s *APISuite) TestTasks() {
	rec := s.get("/tasks")
	s.Require().Equal(http.StatusOK, rec.Code)

	var tasks []*models.Task
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &tasks))
	s.Require().Len(tasks, 3)
	s.Equal("ml_MoS2_Li_000", tasks[0].ID)
	s.Equal(models.TaskStatusQueued, tasks[0].Status)
}

func (s *APISuite) TestMetricsEndpoint() {
	rec := s.get("/metrics")
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Body.String())
}
