package factory

import (
	agentFactory "github.com/iulianpascalau/telemetry-monitoring/services/agent/factory"
	"github.com/prometheus/client_golang/prometheus"
)

// Server defines the operation of an entity able to serve requests
type Server interface {
	Start()
	Address() string
	Close() error
}

// MonitoringAgent is the embedded agent watching the aggregation service itself
type MonitoringAgent interface {
	GetEngine() agentFactory.Engine
	GetRegistry() *prometheus.Registry
	Start()
	IsRunning() bool
	Close()
}
