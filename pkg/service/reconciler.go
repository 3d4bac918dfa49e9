package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/bigkevmcd/host-deployer/pkg/command"
)

// Action is what was asked of the init system.
type Action string

// Reconciliation actions.
const (
	Started   Action = "start"
	Restarted Action = "restart"
)

const systemctl = "systemctl"

// Reconciler ensures that a systemd unit exists and is running the latest
// deployment.
type Reconciler struct {
	runner  command.Runner
	unitDir string
	log     logr.Logger
}

// NewReconciler creates and returns a new Reconciler that manages unit files
// in unitDir.
func NewReconciler(r command.Runner, unitDir string, l logr.Logger) *Reconciler {
	return &Reconciler{runner: r, unitDir: unitDir, log: l}
}

// Reconcile starts or restarts the unit.
//
// If the unit file does not exist, it's created with the provided lines, and
// the unit is started. An existing unit file is left untouched and the unit
// is restarted.
//
// The returned Action is what was attempted, even if the command failed.
func (r *Reconciler) Reconcile(ctx context.Context, unitFilename string, lines []string) (Action, error) {
	unitPath := filepath.Join(r.unitDir, unitFilename)
	log := r.log.WithValues("unit", unitFilename)

	action := Restarted
	_, err := os.Stat(unitPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := writeUnitFile(unitPath, lines); err != nil {
			return Started, err
		}
		log.Info("Created unit file", "path", unitPath)
		action = Started
	case err != nil:
		return action, fmt.Errorf("failed to check unit file %s: %w", unitPath, err)
	}

	if _, err := r.runner.Run(ctx, "", systemctl, string(action), unitFilename); err != nil {
		return action, err
	}
	log.Info("Service reconciled", "action", action)
	return action, nil
}

func writeUnitFile(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create unit file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	return f.Close()
}
