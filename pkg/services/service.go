package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type (
	// Service is a long-running component with a three-phase lifecycle.
	Service interface {
		Init() error
		Run(ctx context.Context)
		Stop()
	}
	Manager struct {
		log      Logger
		services []Service
	}
)

func NewManager(log Logger) *Manager {
	return &Manager{log: log}
}

func (m *Manager) Add(services ...Service) {
	m.services = append(m.services, services...)
}

// Run initializes every service, runs them until a signal or context
// cancellation, then stops them in reverse order. A failed Init stops the
// services that already started.
func (m *Manager) Run(ctx context.Context) error {
	started := 0
	for _, svc := range m.services {
		if err := svc.Init(); err != nil {
			m.stopFirst(started)
			return err
		}
		go svc.Run(ctx)
		started++
	}
	m.log.Info("%d service(s) running", started)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	m.stopFirst(started)
	return nil
}

func (m *Manager) stopFirst(n int) {
	m.log.Info("stopping services")
	for i := n - 1; i >= 0; i-- {
		m.services[i].Stop()
	}
}
