package tool

import (
	"sync"
	"time"
)

// InvokeObservation captures one wrapped operation call.
type InvokeObservation struct {
	RequestID    string
	Tool         string
	Operation    string
	StartedAt    time.Time
	DurationMS   int64
	Success      bool
	ErrorType    string
	ErrorMessage string
}

// RetryObservation captures one retried upstream request.
type RetryObservation struct {
	Method     string
	Path       string
	Attempt    int
	StatusCode int
	ErrorType  string
}

// HealthObservation captures one upstream health probe.
type HealthObservation struct {
	Target         string
	Healthy        bool
	Status         string
	PreviousStatus string
	FailureCount   int
	DurationMS     int64
	ErrorType      string
}

// Observer receives tool-level observability events.
type Observer interface {
	ObserveInvoke(observation InvokeObservation)
	ObserveRetry(observation RetryObservation)
	ObserveHealth(observation HealthObservation)
}

type noopObserver struct{}

func (noopObserver) ObserveInvoke(InvokeObservation) {}
func (noopObserver) ObserveRetry(RetryObservation)   {}
func (noopObserver) ObserveHealth(HealthObservation) {}

// MultiObserver fans each event out to every non-nil observer in order.
func MultiObserver(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return noopObserver{}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) ObserveInvoke(o InvokeObservation) {
	for _, observer := range m {
		observer.ObserveInvoke(o)
	}
}

func (m multiObserver) ObserveRetry(o RetryObservation) {
	for _, observer := range m {
		observer.ObserveRetry(o)
	}
}

func (m multiObserver) ObserveHealth(o HealthObservation) {
	for _, observer := range m {
		observer.ObserveHealth(o)
	}
}

var (
	observerMu     sync.RWMutex
	activeObserver Observer = noopObserver{}
)

// SetObserver sets the process-wide tool observability observer.
func SetObserver(observer Observer) {
	observerMu.Lock()
	defer observerMu.Unlock()
	if observer == nil {
		activeObserver = noopObserver{}
		return
	}
	activeObserver = observer
}

func currentObserver() Observer {
	observerMu.RLock()
	defer observerMu.RUnlock()
	return activeObserver
}

func emitInvokeObservation(observation InvokeObservation) {
	currentObserver().ObserveInvoke(observation)
}

// EmitRetry forwards an upstream retry to the active observer.
func EmitRetry(observation RetryObservation) {
	currentObserver().ObserveRetry(observation)
}

// EmitHealth forwards a health probe outcome to the active observer.
func EmitHealth(observation HealthObservation) {
	currentObserver().ObserveHealth(observation)
}
