package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tutorchat-ai/tutorchat/internal/registry"
)

// ErrWizardAborted is returned by Input when the user cancels the wizard.
var ErrWizardAborted = errors.New("add wizard aborted")

// WizardStep identifies the question the add wizard is currently asking.
type WizardStep int

const (
	StepName WizardStep = iota
	StepTransport
	StepTarget
	StepDone
)

// AddWizard walks the user through registering a server one field at a
// time. Invalid input repeats the current step; earlier answers are kept.
type AddWizard struct {
	step      WizardStep
	exists    func(name string) bool
	name      string
	transport registry.Transport
	result    registry.ServerConfig
}

// NewAddWizard starts a wizard. exists reports whether a server name is
// already taken; nil means no duplicate check.
func NewAddWizard(exists func(name string) bool) *AddWizard {
	return &AddWizard{exists: exists}
}

// Step returns the wizard's current step.
func (w *AddWizard) Step() WizardStep { return w.step }

// Done reports whether the wizard has collected a complete config.
func (w *AddWizard) Done() bool { return w.step == StepDone }

// Result returns the collected config. Valid only once Done.
func (w *AddWizard) Result() registry.ServerConfig { return w.result }

// Prompt returns the question for the current step.
func (w *AddWizard) Prompt() string {
	switch w.step {
	case StepName:
		return "Server name (or 'cancel'):"
	case StepTransport:
		return "Transport type (stdio, sse, http):"
	case StepTarget:
		if w.transport == registry.TransportStdio {
			return "Command to run (with arguments):"
		}
		return "Server URL:"
	default:
		return ""
	}
}

// Input feeds one line to the wizard. A validation error leaves the wizard
// on the same step; ErrWizardAborted means the user cancelled.
func (w *AddWizard) Input(line string) error {
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "cancel") {
		return ErrWizardAborted
	}

	switch w.step {
	case StepName:
		if line == "" || strings.ContainsAny(line, " \t") {
			return fmt.Errorf("server name must be a single word")
		}
		if w.exists != nil && w.exists(line) {
			return fmt.Errorf("server %q already exists", line)
		}
		w.name = line
		w.step = StepTransport
	case StepTransport:
		transport, err := registry.ParseTransport(line)
		if err != nil {
			return err
		}
		w.transport = transport
		w.step = StepTarget
	case StepTarget:
		cfg := registry.ServerConfig{
			Name:      w.name,
			Transport: w.transport,
			Enabled:   true,
		}
		if w.transport == registry.TransportStdio {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				return fmt.Errorf("command must not be empty")
			}
			cfg.Command = fields[0]
			cfg.Args = fields[1:]
		} else {
			cfg.URL = line
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		w.result = cfg
		w.step = StepDone
	}
	return nil
}
