package env

import (
	"time"

	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

var variables = new(Environment)

// Process the environment variables set for epc.
func Process() error {
	if err := envconfig.Process("epc", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevel(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used by epc.
type Environment struct {
	LogLevel           string        `default:"info"`
	Port               int           `default:"8080"`
	ConfigPath         string        `default:"workflow.yaml"`
	StateDir           string        `default:"state"`
	ResultsDir         string        `default:"results"`
	ScriptsDir         string        `default:"job_scripts"`
	LogsDir            string        `default:"logs"`
	ReportsDir         string        `default:"reports"`
	ClusterBackend     string        `default:"slurm"`
	PollInterval       time.Duration `default:"2m"`
	MaxMonitorDuration time.Duration `default:"48h"`
	TimeoutGrace       time.Duration `default:"30m"`
	SubmitRetryLimit   int           `default:"3"`
	ReportSchedule     string        `default:"0 * * * *"`
}
