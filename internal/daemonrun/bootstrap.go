package daemonrun

import (
	"log/slog"

	"settingsd/internal/clipboard"
	"settingsd/internal/config"
	"settingsd/internal/helpers"
	"settingsd/internal/subsystem"
)

// buildEntries returns the hosted subsystems in start order: the channel
// helpers followed by the fallible clipboard manager.
func buildEntries(cfg *config.Config, store helpers.Store, backend clipboard.Backend, logger *slog.Logger) []subsystem.Entry {
	specs := helpers.Catalog(cfg.Subsystems.Displays)
	entries := make([]subsystem.Entry, 0, len(specs)+1)
	for _, spec := range specs {
		entries = append(entries, subsystem.Entry{
			Subsystem: helpers.New(spec, store,
				helpers.WithLogger(logger),
				helpers.WithHotplug(cfg.Subsystems.Hotplug),
			),
		})
	}
	entries = append(entries, subsystem.Entry{
		Subsystem: clipboard.New(backend, cfg.ClipboardPollInterval(), logger),
		Fallible:  true,
	})
	return entries
}

// StartOrder lists subsystem names in the order they would start.
func StartOrder(cfg *config.Config) []Planned {
	specs := helpers.Catalog(cfg.Subsystems.Displays)
	planned := make([]Planned, 0, len(specs)+1)
	for _, spec := range specs {
		planned = append(planned, Planned{
			Name:    spec.Name,
			Channel: spec.Channel,
			Hotplug: cfg.Subsystems.Hotplug && len(spec.Hotplug) > 0,
		})
	}
	return append(planned, Planned{Name: clipboard.Name, Fallible: true})
}

// Planned describes one subsystem for display.
type Planned struct {
	Name     string
	Channel  string
	Hotplug  bool
	Fallible bool
}
