// Package handler holds the managed fault capture points: the panic guard
// for uncaught faults and the supervised task runner. Both persist first
// and then hand the fault to whatever handler was chained before them; the
// chain step runs on every exit path.
package handler

import (
	"context"
	"fmt"

	"yacl/capture/storage"
	"yacl/common/record"

	log "github.com/sirupsen/logrus"
)

// TaskContext is the immutable fault context carried from the failure site
// to the capture point.
type TaskContext struct {
	Name      string
	Cancelled bool
}

// ContextFor snapshots a task's identity and cancellation state.
func ContextFor(name string, ctx context.Context) TaskContext {
	return TaskContext{
		Name:      name,
		Cancelled: ctx != nil && ctx.Err() != nil,
	}
}

// PrevHandler is the previously registered link in the fault chain.
type PrevHandler func(p interface{})

// FaultHandler is the capture point for uncaught faults.
type FaultHandler struct {
	storage *storage.Storage
	prev    PrevHandler
}

func NewFaultHandler(s *storage.Storage) *FaultHandler {
	return &FaultHandler{storage: s}
}

// Install arms the capture point at the end of the existing chain. prev may
// be nil; installing again replaces the reference without stacking.
func (h *FaultHandler) Install(prev PrevHandler) {
	h.prev = prev
	log.WithField("chained", prev != nil).Debug("Fault handler installed")
}

func (h *FaultHandler) Uninstall() {
	h.prev = nil
}

func (h *FaultHandler) hasPrev() bool {
	return h.prev != nil
}

// Handle persists the fault and chains to the previous handler. The chain
// step is deferred so a failure while persisting can't suppress it.
func (h *FaultHandler) Handle(threadName string, p interface{}) {
	defer func() {
		if h.prev != nil {
			h.prev(p)
		}
	}()

	h.persist(threadName, p)
}

func (h *FaultHandler) persist(threadName string, p interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Debug("Swallowed failure while persisting fault")
		}
	}()

	h.storage.WriteFault(record.NewFault(
		faultType(p),
		faultMessage(p),
		threadName,
		goroutineID(),
		stackLines(4),
	))
}

// Guard runs fn and captures any escaping panic. With no previous handler
// chained the panic is re-raised so normal crash handling still happens.
func (h *FaultHandler) Guard(name string, fn func()) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		h.Handle(name, p)
		if !h.hasPrev() {
			panic(p)
		}
	}()

	fn()
}

// TaskPrevHandler is the previous link for supervised-task failures.
type TaskPrevHandler func(tc TaskContext, p interface{})

// TaskHandler is the capture point for failures escaping supervised tasks.
type TaskHandler struct {
	storage *storage.Storage
	prev    TaskPrevHandler
}

func NewTaskHandler(s *storage.Storage) *TaskHandler {
	return &TaskHandler{storage: s}
}

func (h *TaskHandler) Install(prev TaskPrevHandler) {
	h.prev = prev
	log.WithField("chained", prev != nil).Debug("Task handler installed")
}

func (h *TaskHandler) Uninstall() {
	h.prev = nil
}

func (h *TaskHandler) hasPrev() bool {
	return h.prev != nil
}

func (h *TaskHandler) Handle(tc TaskContext, p interface{}) {
	defer func() {
		if h.prev != nil {
			h.prev(tc, p)
		}
	}()

	h.persist(tc, p)
}

func (h *TaskHandler) persist(tc TaskContext, p interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Debug("Swallowed failure while persisting task fault")
		}
	}()

	h.storage.WriteTask(record.NewTaskFault(
		faultType(p),
		faultMessage(p),
		tc.Name,
		goroutineID(),
		tc.Name,
		tc.Cancelled,
		stackLines(4),
	))
}

// Go runs fn as a supervised task. A returned error is a recoverable
// failure: it is captured and the process continues. A panic is captured
// and then re-raised unless a previous handler took it.
func (h *TaskHandler) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	go func() {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			h.Handle(ContextFor(name, ctx), p)
			if !h.hasPrev() {
				panic(p)
			}
		}()

		err := fn(ctx)
		if err != nil {
			h.Handle(ContextFor(name, ctx), err)
		}
	}()
}

func faultType(p interface{}) string {
	return fmt.Sprintf("%T", p)
}

func faultMessage(p interface{}) string {
	switch v := p.(type) {
	case error:
		return v.Error()
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", p)
	}
}
