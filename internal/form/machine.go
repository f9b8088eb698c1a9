package form

import (
	"fmt"

	"github.com/ticketless/admin-console/internal/domain"
)

type State string

const (
	Closed   State = "closed"
	Creating State = "creating"
	Editing  State = "editing"
	Saving   State = "saving"
	Removing State = "removing"
)

// Machine tracks the lifecycle of one form.
//
//	Closed -> Creating -> Saving -> Closed
//	Closed -> Editing  -> Saving -> Closed
//	Editing -> Removing -> Editing (cancel) | Closed (deleted)
//
// A failed save returns to the state it started from.
type Machine struct {
	state  State
	before State
}

func (m *Machine) State() State {
	if m.state == "" {
		return Closed
	}
	return m.state
}

func (m *Machine) Open(creating bool) error {
	if m.State() != Closed {
		return invalid(m.State(), "open")
	}
	if creating {
		m.state = Creating
	} else {
		m.state = Editing
	}
	return nil
}

func (m *Machine) BeginSave() error {
	switch m.State() {
	case Creating, Editing:
		m.before = m.state
		m.state = Saving
		return nil
	}
	return invalid(m.State(), "save")
}

func (m *Machine) SaveSucceeded() error {
	if m.State() != Saving {
		return invalid(m.State(), "finish save")
	}
	m.state = Closed
	return nil
}

func (m *Machine) SaveFailed() error {
	if m.State() != Saving {
		return invalid(m.State(), "fail save")
	}
	m.state = m.before
	return nil
}

func (m *Machine) BeginRemove() error {
	if m.State() != Editing {
		return invalid(m.State(), "remove")
	}
	m.state = Removing
	return nil
}

func (m *Machine) CancelRemove() error {
	if m.State() != Removing {
		return invalid(m.State(), "cancel remove")
	}
	m.state = Editing
	return nil
}

// RemoveSucceeded closes the form after a confirmed delete. A failed delete
// leaves the machine in Removing so the user can retry or cancel.
func (m *Machine) RemoveSucceeded() error {
	if m.State() != Removing {
		return invalid(m.State(), "finish remove")
	}
	m.state = Closed
	return nil
}

// Cancel closes the form unless a save is in flight.
func (m *Machine) Cancel() error {
	if m.State() == Saving {
		return invalid(m.State(), "cancel")
	}
	m.state = Closed
	return nil
}

func invalid(s State, action string) error {
	return domain.ErrInvalidState(fmt.Sprintf("cannot %s while %s", action, s))
}
