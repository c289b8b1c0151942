package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/iulianpascalau/telemetry-monitoring/commonGo"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/config"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/dispatch"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/engine"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/notifier"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/reporter"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/rules"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/prometheus/client_golang/prometheus"
)

var log = logger.GetOrCreate("agent/factory")

// Secrets holds the credentials read from the environment
type Secrets struct {
	ServiceKey   string
	SMTPPassword string
}

type componentsHandler struct {
	engine   Engine
	registry *prometheus.Registry
	tasks    []*commonGo.PeriodicTask

	mutCancel sync.Mutex
	cancel    func()
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(secrets Secrets, cfg config.Config) (*componentsHandler, error) {
	channels, err := createChannels(cfg, secrets.SMTPPassword)
	if err != nil {
		return nil, err
	}

	alertRules, err := createRules(cfg)
	if err != nil {
		return nil, err
	}

	var rep engine.Reporter
	if len(cfg.ReportEndpoint) > 0 {
		rep = reporter.NewHTTPReporter(cfg.ReportEndpoint, secrets.ServiceKey, cfg.Name, time.Duration(cfg.ReportTimeoutInSeconds)*time.Second)
	}

	registry := prometheus.NewRegistry()
	eng, err := engine.NewAgentEngine(engine.ArgsAgentEngine{
		Config:     cfg,
		Clock:      clock.NewClock(),
		Rules:      alertRules,
		Channels:   channels,
		Registerer: registry,
		Reporter:   rep,
	})
	if err != nil {
		return nil, err
	}

	ch := &componentsHandler{
		engine:   eng,
		registry: registry,
	}

	err = ch.createTasks(cfg.Intervals)
	if err != nil {
		return nil, err
	}

	log.Info("monitoring agent components created", "name", cfg.Name, "channels", len(channels),
		"rules", len(alertRules), "reporting", eng.IsReporting())

	return ch, nil
}

func createChannels(cfg config.Config, smtpPassword string) ([]dispatch.Channel, error) {
	timeout := time.Duration(cfg.Dispatch.SendTimeoutInSeconds) * time.Second
	channels := make([]dispatch.Channel, 0)

	if cfg.Channels.Log {
		channels = append(channels, notifier.NewLogChannel())
	}
	if cfg.Channels.Slack.Enabled {
		slack, err := notifier.NewSlackChannel(cfg.Channels.Slack.WebhookURL, cfg.Channels.Slack.Channel, cfg.Channels.Slack.Username, timeout)
		if err != nil {
			return nil, err
		}
		channels = append(channels, slack)
	}
	if cfg.Channels.Webhook.Enabled {
		webhook, err := notifier.NewWebhookChannel(cfg.Channels.Webhook.URL, cfg.Channels.Webhook.Headers, timeout)
		if err != nil {
			return nil, err
		}
		channels = append(channels, webhook)
	}
	if cfg.Channels.Email.Enabled {
		email, err := notifier.NewEmailChannel(cfg.Channels.Email, smtpPassword)
		if err != nil {
			return nil, err
		}
		channels = append(channels, email)
	}

	return channels, nil
}

func createRules(cfg config.Config) ([]common.ErrorRule, error) {
	result := make([]common.ErrorRule, 0)
	if !cfg.DisableDefaultRules {
		result = append(result, rules.DefaultRules()...)
	}

	configured, err := rules.FromConfig(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("%w in the config file", err)
	}
	result = append(result, configured...)

	if len(cfg.RulesFile) == 0 {
		return result, nil
	}

	fromFile, err := rules.LoadRulesFile(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	return append(result, fromFile...), nil
}

type taskDefinition struct {
	name     string
	interval uint32
	handler  func(ctx context.Context)
}

func (ch *componentsHandler) createTasks(intervals config.IntervalsConfig) error {
	definitions := []taskDefinition{
		{name: "collection", interval: intervals.CollectionInSeconds, handler: ch.engine.CollectMetrics},
		{name: "health", interval: intervals.HealthInSeconds, handler: ch.engine.EvaluateHealth},
		{name: "cleanup", interval: intervals.CleanupInSeconds, handler: ch.engine.Cleanup},
		{name: "dispatch", interval: intervals.DispatchInSeconds, handler: ch.engine.DispatchAlerts},
	}
	if ch.engine.IsReporting() {
		definitions = append(definitions, taskDefinition{name: "report", interval: intervals.ReportInSeconds, handler: ch.engine.Report})
	}

	for _, def := range definitions {
		task, err := commonGo.NewPeriodicTask(def.name, time.Duration(def.interval)*time.Second, def.handler)
		if err != nil {
			return fmt.Errorf("%w for the %s task", err, def.name)
		}

		ch.tasks = append(ch.tasks, task)
	}

	return nil
}

// GetEngine returns the engine component
func (ch *componentsHandler) GetEngine() Engine {
	return ch.engine
}

// GetRegistry returns the prometheus registry holding the agent counters
func (ch *componentsHandler) GetRegistry() *prometheus.Registry {
	return ch.registry
}

// Start launches the periodic tasks. Calling Start twice does nothing.
func (ch *componentsHandler) Start() {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.cancel != nil {
		return
	}

	var ctx context.Context
	ctx, ch.cancel = context.WithCancel(context.Background())

	for _, task := range ch.tasks {
		task.Start(ctx)
	}
}

// IsRunning returns true if the periodic tasks were started and not yet stopped
func (ch *componentsHandler) IsRunning() bool {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	return ch.cancel != nil
}

// Close stops all the periodic tasks and waits for the in-flight calls to return
func (ch *componentsHandler) Close() {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.cancel == nil {
		return
	}

	ch.cancel()
	ch.cancel = nil

	for _, task := range ch.tasks {
		task.Stop()
	}
}
