package factory

import (
	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/api"
	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/config"
	"github.com/iulianpascalau/telemetry-monitoring/services/aggregation/storage"
	agentFactory "github.com/iulianpascalau/telemetry-monitoring/services/agent/factory"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/prometheus/client_golang/prometheus"
)

var log = logger.GetOrCreate("aggregation/factory")

// ArgsComponentsHandler defines the components handler arguments
type ArgsComponentsHandler struct {
	SQLitePath    string
	ServiceKeyApi string
	AuthUsername  string
	AuthPassword  string
	Config        config.Config
}

type componentsHandler struct {
	store  api.Storage
	agent  MonitoringAgent
	server Server
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(args ArgsComponentsHandler) (*componentsHandler, error) {
	store, err := storage.NewSQLiteStorage(storage.ArgsSQLiteStorage{
		DBPath:         args.SQLitePath,
		NumAggregation: args.Config.NumAggregation,
		Retention:      args.Config.Retention,
	})
	if err != nil {
		return nil, err
	}

	// the service monitors itself without reporting, so it needs no secrets
	agent, err := agentFactory.NewComponentsHandler(agentFactory.Secrets{}, args.Config.Monitoring)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	serviceRegistry := prometheus.NewRegistry()
	serverArgs := api.ArgsWebServer{
		ServiceKeyApi:  args.ServiceKeyApi,
		AuthUsername:   args.AuthUsername,
		AuthPassword:   args.AuthPassword,
		ListenAddress:  args.Config.ListenAddress,
		StaticDir:      args.Config.StaticDir,
		Storage:        store,
		Monitor:        agent.GetEngine(),
		Registerer:     serviceRegistry,
		Gatherer:       prometheus.Gatherers{serviceRegistry, agent.GetRegistry()},
		GeneralHandler: api.LimitBodySize,
	}

	server, err := api.NewServer(serverArgs)
	if err != nil {
		agent.Close()
		_ = store.Close()
		return nil, err
	}

	return &componentsHandler{
		store:  store,
		agent:  agent,
		server: server,
	}, nil
}

// GetStore returns the storage component
func (ch *componentsHandler) GetStore() api.Storage {
	return ch.store
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// GetAgent returns the embedded monitoring agent
func (ch *componentsHandler) GetAgent() MonitoringAgent {
	return ch.agent
}

// Start starts the inner components
func (ch *componentsHandler) Start() {
	ch.agent.Start()
	ch.server.Start()

	log.Info("aggregation components started", "address", ch.server.Address())
}

// Close closes the inner components. The server closes the storage.
func (ch *componentsHandler) Close() {
	err := ch.server.Close()
	if err != nil {
		log.Warn("failed to close the server", "error", err)
	}
	ch.agent.Close()
}
