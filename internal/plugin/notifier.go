package plugin

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcoach/internal/session"
)

// Notifier delivers session events to subscribed plugins in the background.
type Notifier struct {
	manager  *Manager
	executor *Executor
	wg       sync.WaitGroup
}

// NewNotifier creates a Notifier for the plugins known to manager.
func NewNotifier(manager *Manager, executor *Executor) *Notifier {
	return &Notifier{manager: manager, executor: executor}
}

// SessionCompleted runs every plugin subscribed to EventSessionCompleted.
// It returns immediately; use Wait to block until the runs have finished.
// Its signature matches session.Config.OnComplete.
func (n *Notifier) SessionCompleted(summary session.Summary) {
	for _, p := range n.manager.Subscribers(EventSessionCompleted) {
		req := &Request{
			Event:    EventSessionCompleted,
			Session:  summary.ID,
			Exercise: string(summary.Exercise),
			Reps:     summary.Reps,
			Report:   summary.Report,
			Config:   p.Manifest.Config,
		}

		n.wg.Add(1)
		go func(p *Plugin) {
			defer n.wg.Done()
			n.run(p, req)
		}(p)
	}
}

func (n *Notifier) run(p *Plugin, req *Request) {
	logger := log.WithFields(log.Fields{
		"plugin":  p.Manifest.Name,
		"event":   req.Event,
		"session": req.Session,
	})

	resp, err := n.executor.Execute(context.Background(), p, req)
	if err != nil {
		logger.WithError(err).Warn("Plugin failed")
		return
	}
	if !resp.Success {
		logger.WithField("error", resp.Error).Warn("Plugin reported an error")
		return
	}
	logger.Debug("Plugin finished")
}

// Wait blocks until all started plugin runs have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
