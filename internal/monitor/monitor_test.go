package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
)

type stubCluster struct {
	statuses map[string]cluster.Status
}

func (f *stubCluster) Submit(context.Context, *cluster.SubmitRequest) (string, error) {
	return "", nil
}

func (f *stubCluster) Status(_ context.Context, handle string) (cluster.Status, error) {
	if s, ok := f.statuses[handle]; ok {
		return s, nil
	}
	return cluster.StatusUnknown, nil
}

func (f *stubCluster) Live(context.Context) (map[string]cluster.Status, error) {
	return f.statuses, nil
}

type MonitorSuite struct {
	suite.Suite
	state      *state.State
	backend    *stubCluster
	monitor    *Monitor
	resultsDir string
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) SetupTest() {
	s.state = state.New(models.WorkflowRun{ID: uuid.New(), StartedAt: time.Now().UTC()})
	s.backend = &stubCluster{statuses: map[string]cluster.Status{}}
	s.resultsDir = s.T().TempDir()

	partitions := models.Partitions{
		{Name: "gpu", MaxJobs: 2, CoresPerNode: 32, GPU: true, TimeLimit: time.Hour},
	}
	s.monitor = New(s.state, s.backend, partitions, 30*time.Minute)
}

// queued adds a task already dispatched to the cluster.
func (s *MonitorSuite) queued(id, handle string) *models.Task {
	task := &models.Task{
		ID:         id,
		Kind:       models.TaskKindML,
		Status:     models.TaskStatusPending,
		ResultPath: filepath.Join(s.resultsDir, id, "results.json"),
	}
	s.Require().NoError(s.state.Add(task))
	s.Require().NoError(s.state.MarkQueued(id, "gpu", handle))
	return task
}

func (s *MonitorSuite) running(id, handle string) *models.Task {
	task := s.queued(id, handle)
	s.Require().NoError(s.state.MarkRunning(id))
	return task
}

func (s *MonitorSuite) writeArtifact(task *models.Task) {
	s.Require().NoError(os.MkdirAll(filepath.Dir(task.ResultPath), 0o755))
	s.Require().NoError(os.WriteFile(task.ResultPath, []byte(`{"heights": [2.0]}`), 0o644))
}

func (s *MonitorSuite) statusOf(id string) models.TaskStatus {
	task, ok := s.state.Get(id)
	s.Require().True(ok)
	return task.Status
}

func (s *MonitorSuite) TestQueuedToRunning() {
	s.queued("ml_a_X_000", "101")
	s.backend.statuses["101"] = cluster.StatusRunning

	snap, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	s.Equal(models.TaskStatusRunning, s.statusOf("ml_a_X_000"))
	s.False(snap.Done())
}

func (s *MonitorSuite) TestCompletedWithArtifact() {
	task := s.running("ml_a_X_000", "101")
	s.writeArtifact(task)
	s.backend.statuses["101"] = cluster.StatusCompleted

	snap, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	s.Equal(models.TaskStatusSucceeded, s.statusOf("ml_a_X_000"))
	s.True(snap.Done())
}

func (s *MonitorSuite) TestCompletedWithoutArtifactFails() {
	s.running("ml_a_X_000", "101")
	s.backend.statuses["101"] = cluster.StatusCompleted

	_, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	task, _ := s.state.Get("ml_a_X_000")
	s.Equal(models.TaskStatusFailed, task.Status)
	s.Equal(ReasonMissingArtifact, task.Reason)
}

func (s *MonitorSuite) TestExecutionFailureStates() {
	for handle, status := range map[string]cluster.Status{
		"101": cluster.StatusFailed,
		"102": cluster.StatusTimeout,
		"103": cluster.StatusNodeFail,
	} {
		s.backend.statuses[handle] = status
	}
	s.running("ml_a_X_000", "101")
	s.running("ml_a_Y_001", "102")
	s.running("ml_b_X_002", "103")

	_, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	s.Equal(models.TaskStatusFailed, s.statusOf("ml_a_X_000"))
	s.Equal(models.TaskStatusFailed, s.statusOf("ml_a_Y_001"))
	s.Equal(models.TaskStatusFailed, s.statusOf("ml_b_X_002"))
}

func (s *MonitorSuite) TestExternalCancellation() {
	s.running("ml_a_X_000", "101")
	s.backend.statuses["101"] = cluster.StatusCancelled

	_, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	task, _ := s.state.Get("ml_a_X_000")
	s.Equal(models.TaskStatusCancelled, task.Status)
	s.Equal(ReasonCancelledExternal, task.Reason)
}

func (s *MonitorSuite) TestVanishedAfterRunningWithArtifactSucceeds() {
	task := s.running("ml_a_X_000", "101")
	s.writeArtifact(task)
	// No squeue record at all: the job left the queue between polls.

	_, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	s.Equal(models.TaskStatusSucceeded, s.statusOf("ml_a_X_000"))
}

func (s *MonitorSuite) TestVanishedWithoutArtifactIsRetained() {
	s.running("ml_a_X_000", "101")

	_, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	// Within the deadline the task keeps its status.
	s.Equal(models.TaskStatusRunning, s.statusOf("ml_a_X_000"))
}

func (s *MonitorSuite) TestWalltimeExceededFails() {
	s.running("ml_a_X_000", "101")
	s.backend.statuses["101"] = cluster.StatusRunning

	// Pretend the poll happens two hours from now, past the one hour
	// limit plus thirty minutes of grace.
	s.monitor.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	task, _ := s.state.Get("ml_a_X_000")
	s.Equal(models.TaskStatusFailed, task.Status)
	s.Equal(ReasonWalltimeExceeded, task.Reason)
}

func (s *MonitorSuite) TestQueuedWithinDeadlineIsRetained() {
	s.queued("ml_a_X_000", "101")
	s.backend.statuses["101"] = cluster.StatusPending

	_, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	s.Equal(models.TaskStatusQueued, s.statusOf("ml_a_X_000"))
}

func (s *MonitorSuite) TestSnapshotActiveSubjects() {
	task := &models.Task{
		ID:         "ml_MoS2_Li_000",
		Kind:       models.TaskKindML,
		Material:   "MoS2",
		Adsorbant:  "Li",
		Status:     models.TaskStatusPending,
		ResultPath: filepath.Join(s.resultsDir, "ml_MoS2_Li_000", "results.json"),
	}
	s.Require().NoError(s.state.Add(task))
	s.Require().NoError(s.state.MarkQueued(task.ID, "gpu", "101"))
	s.Require().NoError(s.state.MarkRunning(task.ID))
	s.backend.statuses["101"] = cluster.StatusRunning

	s.queued("ml_WS2_Na_001", "102")
	s.backend.statuses["102"] = cluster.StatusPending

	snap, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	// Queued tasks are not running yet, only MoS2/Li is active.
	s.Equal([]string{"MoS2/Li"}, snap.ActiveSubjects)
}

func (s *MonitorSuite) TestSnapshotCounts() {
	task := s.running("ml_a_X_000", "101")
	s.writeArtifact(task)
	s.backend.statuses["101"] = cluster.StatusCompleted
	s.queued("ml_a_Y_001", "102")
	s.backend.statuses["102"] = cluster.StatusPending

	snap, err := s.monitor.Poll(context.Background())
	s.Require().NoError(err)

	s.Equal(2, snap.Total)
	s.Equal(1, snap.Counts[models.TaskStatusSucceeded])
	s.Equal(1, snap.Counts[models.TaskStatusQueued])
	s.False(snap.Done())
}
