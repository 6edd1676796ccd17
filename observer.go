package statemech

import (
	"sync"
)

// TransitionNotification describes a transition that began or finished.
type TransitionNotification struct {
	// Machine owns the transitioning states.
	Machine Machine
	From    State
	To      State
	Event   *Event
	Payload any
	IsInner bool
	Mode    FireMode
	Kind    TransitionKind
}

// NotFoundNotification describes an event that found no transition or was ignored.
type NotFoundNotification struct {
	Machine Machine
	// State is the state that did not match the event.
	State   State
	Event   *Event
	Payload any
	Mode    FireMode
}

// FaultNotification describes a machine becoming faulted.
type FaultNotification struct {
	Fault *Fault
}

// Observer receives notifications from a root machine and all of its child
// machines. Observers are called synchronously from the firing call.
type Observer interface {
	TransitionBegin(n TransitionNotification)
	TransitionFinished(n TransitionNotification)
	TransitionNotFound(n NotFoundNotification)
	EventIgnored(n NotFoundNotification)
	Faulted(n FaultNotification)
}

// NoOpObserver implements Observer with empty methods; embed it to override a subset.
type NoOpObserver struct{}

func (NoOpObserver) TransitionBegin(TransitionNotification)    {}
func (NoOpObserver) TransitionFinished(TransitionNotification) {}
func (NoOpObserver) TransitionNotFound(NotFoundNotification)   {}
func (NoOpObserver) EventIgnored(NotFoundNotification)         {}
func (NoOpObserver) Faulted(FaultNotification)                 {}

// ObserverFuncs is an Observer built from optional callbacks.
type ObserverFuncs struct {
	OnTransitionBegin    func(TransitionNotification)
	OnTransitionFinished func(TransitionNotification)
	OnTransitionNotFound func(NotFoundNotification)
	OnEventIgnored       func(NotFoundNotification)
	OnFaulted            func(FaultNotification)
}

func (o ObserverFuncs) TransitionBegin(n TransitionNotification) {
	if o.OnTransitionBegin != nil {
		o.OnTransitionBegin(n)
	}
}

func (o ObserverFuncs) TransitionFinished(n TransitionNotification) {
	if o.OnTransitionFinished != nil {
		o.OnTransitionFinished(n)
	}
}

func (o ObserverFuncs) TransitionNotFound(n NotFoundNotification) {
	if o.OnTransitionNotFound != nil {
		o.OnTransitionNotFound(n)
	}
}

func (o ObserverFuncs) EventIgnored(n NotFoundNotification) {
	if o.OnEventIgnored != nil {
		o.OnEventIgnored(n)
	}
}

func (o ObserverFuncs) Faulted(n FaultNotification) {
	if o.OnFaulted != nil {
		o.OnFaulted(n)
	}
}

// observers handles notification callbacks.
type observers struct {
	list  []Observer
	mutex sync.RWMutex
}

// Register adds an observer.
func (o *observers) Register(obs Observer) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.list = append(o.list, obs)
}

// UnregisterAll removes all observers.
func (o *observers) UnregisterAll() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.list = nil
}

// Invoke calls fn for every registered observer. The list is copied so an
// observer may register another one.
func (o *observers) Invoke(fn func(Observer)) {
	o.mutex.RLock()
	list := append([]Observer(nil), o.list...)
	o.mutex.RUnlock()
	for _, obs := range list {
		fn(obs)
	}
}
