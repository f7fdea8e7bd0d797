package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Config holds Temporal connection settings.
type Config struct {
	HostPort  string
	Namespace string
	TaskQueue string
}

// Manager owns the Temporal client and worker lifecycle, grounded on
// internal/temporal/manager.go unchanged in shape.
type Manager struct {
	client client.Client
	worker worker.Worker
	cfg    Config
}

// New creates a Temporal client and worker, registering TranslateWorkflow
// and its backing activity.
func New(cfg Config, acts *Activities) (*Manager, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client dial: %w", err)
	}

	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(TranslateWorkflow)
	w.RegisterActivity(acts.Translate)

	return &Manager{client: c, worker: w, cfg: cfg}, nil
}

func (m *Manager) Start() error { return m.worker.Start() }

func (m *Manager) Client() client.Client { return m.client }

func (m *Manager) TaskQueue() string { return m.cfg.TaskQueue }

func (m *Manager) Stop() {
	if m.worker != nil {
		m.worker.Stop()
	}
	if m.client != nil {
		m.client.Close()
	}
}
