package bserve

import (
	"github.com/advdv/bcycle"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	port() int
	serviceName() string
	healthPath() string
	metricsPath() string
	logLevel() zapcore.Level
	otelExporter() string
	engineConfig() bcycle.Config
}

// BaseEnvironment contains the environment variables every bserve app reads.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	Port         int           `env:"BC_PORT" envDefault:"8080"`
	ServiceName  string        `env:"BC_SERVICE_NAME,required"`
	HealthPath   string        `env:"BC_HEALTH_PATH" envDefault:"/health"`
	MetricsPath  string        `env:"BC_METRICS_PATH" envDefault:"/metrics"`
	LogLevel     zapcore.Level `env:"BC_LOG_LEVEL" envDefault:"info"`
	OtelExporter string        `env:"BC_OTEL_EXPORTER" envDefault:"stdout"`
	// Engine holds the lifecycle engine settings, e.g. BC_ASYNC_TIMEOUT.
	Engine bcycle.Config `envPrefix:"BC_"`
}

func (e BaseEnvironment) port() int {
	return e.Port
}

func (e BaseEnvironment) serviceName() string {
	return e.ServiceName
}

func (e BaseEnvironment) healthPath() string {
	return e.HealthPath
}

func (e BaseEnvironment) metricsPath() string {
	return e.MetricsPath
}

func (e BaseEnvironment) logLevel() zapcore.Level {
	return e.LogLevel
}

func (e BaseEnvironment) otelExporter() string {
	return e.OtelExporter
}

func (e BaseEnvironment) engineConfig() bcycle.Config {
	return e.Engine
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}
		if err := e.engineConfig().Validate(); err != nil {
			return e, errors.Wrap(err, "invalid engine config")
		}
		return e, nil
	}
}
