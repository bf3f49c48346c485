package env

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type EnvTestSuite struct {
	suite.Suite
}

func (s *EnvTestSuite) SetupTest() {
	os.Unsetenv("EPC_PORT")
	os.Unsetenv("EPC_LOG_LEVEL")
	os.Unsetenv("EPC_POLL_INTERVAL")
}

func (s *EnvTestSuite) TestProcess() {
	assert.Nil(s.T(), Process())
	assert.NotNil(s.T(), Variables())
	assert.Equal(s.T(), "info", Variables().LogLevel)
	assert.Equal(s.T(), 2*time.Minute, Variables().PollInterval)
	assert.Equal(s.T(), 48*time.Hour, Variables().MaxMonitorDuration)
	assert.Equal(s.T(), "slurm", Variables().ClusterBackend)
}

func (s *EnvTestSuite) TestProcessOverride() {
	os.Setenv("EPC_POLL_INTERVAL", "30s")
	assert.Nil(s.T(), Process())
	assert.Equal(s.T(), 30*time.Second, Variables().PollInterval)
}

func (s *EnvTestSuite) TestProcessInvalidTypeFailure() {
	os.Setenv("EPC_PORT", "not_a_port")
	assert.NotNil(s.T(), Process())
}

func (s *EnvTestSuite) TestProcessInvalidLogLevelFailure() {
	os.Setenv("EPC_LOG_LEVEL", "bogus")
	assert.NotNil(s.T(), Process())
}

func TestEnvTestSuite(t *testing.T) {
	suite.Run(t, new(EnvTestSuite))
}
