package statemech

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// errReset stops a protocol run after a handler reset the machine.
var errReset = errors.New("state machine reset during transition")

// candidate is the outcome of resolving an event.
type candidate struct {
	transition *Transition

	// from is the state whose transition or hook matched.
	from State
	to   State
	kind TransitionKind
}

// fireNow resolves e starting at the machine it is bound to and runs the
// matching transition.
func (sm *StateMachine) fireNow(e *Event, payload any, mode FireMode) (bool, error) {
	if f := sm.Fault(); f != nil {
		return false, &MachineFaultedError{Fault: f}
	}
	resets := sm.resetCount()

	c, err := sm.resolve(e.machine, e, payload, mode)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, sm.notFound(e, payload, mode)
	}

	if c.kind == KindIgnored {
		sm.logger.Debug("event ignored",
			zap.String("machine", c.from.Machine().Name()),
			zap.Stringer("state", c.from),
			zap.Stringer("event", e))
		n := NotFoundNotification{
			Machine: c.from.Machine(),
			State:   c.from,
			Event:   e,
			Payload: payload,
			Mode:    mode,
		}
		sm.observers.Invoke(func(o Observer) { o.EventIgnored(n) })
		return true, nil
	}

	run := transitionRun{
		from:    c.from,
		to:      c.to,
		event:   e,
		payload: payload,
		mode:    mode,
		kind:    c.kind,
		inner:   c.kind == KindInner,
	}
	if c.transition != nil {
		run.handler = c.transition.handler
	}
	if _, err := sm.coordinate(run, resets); err != nil {
		return false, err
	}
	return true, nil
}

// notFound reports an event no transition accepted.
func (sm *StateMachine) notFound(e *Event, payload any, mode FireMode) error {
	m := sm.machine(e.machine)
	var from State
	if cur := m.rec().current; cur != noState {
		from = sm.state(cur)
	}

	n := NotFoundNotification{
		Machine: m,
		State:   from,
		Event:   e,
		Payload: payload,
		Mode:    mode,
	}
	sm.observers.Invoke(func(o Observer) { o.TransitionNotFound(n) })

	if mode == FireModeTry {
		sm.logger.Debug("no transition found",
			zap.String("machine", m.Name()),
			zap.Stringer("state", from),
			zap.Stringer("event", e))
		return nil
	}
	sm.logger.Warn("no transition found",
		zap.String("machine", m.Name()),
		zap.Stringer("state", from),
		zap.Stringer("event", e))
	return &TransitionNotFoundError{From: from, Event: e, Machine: m}
}

// resolve searches the active chain below machine id, innermost first.
func (sm *StateMachine) resolve(id machineID, e *Event, payload any, mode FireMode) (*candidate, error) {
	cur := sm.machines[id].current
	if cur == noState {
		return nil, nil
	}
	if child := sm.states[cur].child; child != noMachine && sm.machines[child].current != noState {
		c, err := sm.resolve(child, e, payload, mode)
		if c != nil || err != nil {
			return c, err
		}
	}
	return sm.resolveOnState(sm.state(cur), e, payload, mode)
}

func (sm *StateMachine) resolveOnState(from State, e *Event, payload any, mode FireMode) (*candidate, error) {
	rec := from.rec()
	selectorInfo := DynamicSelectorInfo{From: from, Event: e, Payload: payload, Mode: mode}

	if rec.handleEvent != nil {
		if to, ok := rec.handleEvent(selectorInfo); ok {
			if err := sm.checkTarget(from, to); err != nil {
				return nil, err
			}
			return &candidate{from: from, to: to, kind: KindNormal}, nil
		}
	}

	for _, t := range rec.transitions {
		if t.event != e {
			continue
		}
		if t.kind == KindIgnored {
			return &candidate{transition: t, from: from, kind: KindIgnored}, nil
		}

		to := t.to
		if t.kind == KindDynamic {
			var ok bool
			if to, ok = t.selector(selectorInfo); !ok {
				continue
			}
			if err := sm.checkTarget(from, to); err != nil {
				return nil, err
			}
		}

		info := TransitionInfo{
			From:    from,
			To:      to,
			Event:   e,
			Payload: payload,
			IsInner: t.kind == KindInner,
			Mode:    mode,
		}
		if rec.canTransition != nil {
			ok, err := rec.canTransition(info)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		if t.guard != nil {
			ok, err := t.guard(info)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		return &candidate{transition: t, from: from, to: to, kind: t.kind}, nil
	}
	return nil, nil
}

// checkTarget validates a destination chosen at fire time.
func (sm *StateMachine) checkTarget(from, to State) error {
	if !to.IsValid() || to.sm != sm {
		return &InvalidStateError{State: to, Machine: from.Machine(),
			Message: "destination does not belong to this state machine"}
	}
	if to.rec().machine != from.rec().machine {
		return &InvalidStateError{State: to, Machine: from.Machine(),
			Message: fmt.Sprintf("destination is owned by machine '%s'", to.Machine())}
	}
	return nil
}

// forceNow runs the protocol once per nesting level whose current state differs
// from the path to the target, from the top mismatch downward.
func (sm *StateMachine) forceNow(to State, e *Event, payload any) error {
	if f := sm.Fault(); f != nil {
		return &MachineFaultedError{Fault: f}
	}
	resets := sm.resetCount()

	path := sm.pathTo(to)
	for first := true; ; first = false {
		level := -1
		for i, s := range path {
			if !s.IsCurrent() {
				level = i
				break
			}
		}
		if level < 0 {
			if !first {
				return nil
			}
			level = len(path) - 1
		}

		target := path[level]
		var from State
		if cur := sm.machines[target.rec().machine].current; cur != noState {
			from = sm.state(cur)
		}
		run := transitionRun{
			from:    from,
			to:      target,
			event:   e,
			payload: payload,
			mode:    FireModeStrict,
			kind:    KindForced,
		}
		if finished, err := sm.coordinate(run, resets); err != nil || !finished {
			return err
		}
	}
}

// pathTo returns the chain of states from the root machine down to s.
func (sm *StateMachine) pathTo(s State) []State {
	var path []State
	for cur := s.id; cur != noState; {
		path = append(path, sm.state(cur))
		cur = sm.machines[sm.states[cur].machine].parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// protocol is one run of the coordination protocol.
type protocol struct {
	sm   *StateMachine
	run  transitionRun
	info TransitionInfo

	// exited and entered hold the groups whose handlers already ran.
	exited  map[*Group]bool
	entered map[*Group]bool

	// resets is the machine's reset count when the run started.
	resets uint64
}

// coordinate runs the coordination protocol for a resolved transition. It
// reports false when the machine was reset after resets was read, which
// abandons the run.
func (sm *StateMachine) coordinate(run transitionRun, resets uint64) (bool, error) {
	p := &protocol{
		sm:      sm,
		run:     run,
		info:    run.info(),
		exited:  map[*Group]bool{},
		entered: map[*Group]bool{},
		resets:  resets,
	}
	if err := p.perform(); err != nil {
		if errors.Is(err, errReset) {
			sm.logger.Debug("transition abandoned after reset",
				zap.String("machine", sm.Name()),
				zap.Stringer("from", run.from),
				zap.Stringer("to", run.to),
				zap.Stringer("event", run.event))
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *protocol) perform() error {
	sm, run := p.sm, p.run
	if sm.resetCount() != p.resets {
		return errReset
	}
	n := run.notification()
	start := time.Now()

	sm.logger.Debug("transition begin",
		zap.String("machine", n.Machine.Name()),
		zap.Stringer("from", run.from),
		zap.Stringer("to", run.to),
		zap.Stringer("event", run.event),
		zap.Stringer("kind", run.kind))
	sm.observers.Invoke(func(o Observer) { o.TransitionBegin(n) })
	if sm.resetCount() != p.resets {
		return errReset
	}

	if !run.inner && run.from.IsValid() {
		if err := p.exit(run.from); err != nil {
			return err
		}
	}

	if run.handler != nil {
		if err := p.call(ComponentTransitionHandler, nil, func() error { return run.handler(p.info) }); err != nil {
			return err
		}
	}

	sm.machines[run.to.rec().machine].current = run.to.id

	if !run.inner {
		if err := p.enter(run.to); err != nil {
			return err
		}
	}

	sm.logger.Debug("transition finished",
		zap.String("machine", n.Machine.Name()),
		zap.Stringer("from", run.from),
		zap.Stringer("to", run.to),
		zap.Duration("elapsed", time.Since(start)))
	sm.observers.Invoke(func(o Observer) { o.TransitionFinished(n) })
	return nil
}

// exit leaves s after leaving its active child machines, deepest first.
func (p *protocol) exit(s State) error {
	rec := s.rec()
	if rec.child != noMachine {
		child := p.sm.machines[rec.child]
		if child.current != noState {
			if err := p.exit(p.sm.state(child.current)); err != nil {
				return err
			}
			child.current = noState
		}
	}

	if rec.exit != nil {
		if err := p.call(ComponentExitHandler, nil, func() error { return rec.exit(p.info) }); err != nil {
			return err
		}
	}

	for i := len(rec.groups) - 1; i >= 0; i-- {
		g := rec.groups[i]
		if p.exited[g] || g.Contains(p.run.to) {
			continue
		}
		p.exited[g] = true
		if g.exit == nil {
			continue
		}
		if err := p.call(ComponentGroupExitHandler, g, func() error {
			return g.exit(GroupHandlerInfo{TransitionInfo: p.info, Group: g})
		}); err != nil {
			return err
		}
	}
	return nil
}

// enter enters s and activates its child machine at its initial state,
// repeating downward.
func (p *protocol) enter(s State) error {
	rec := s.rec()
	for _, g := range rec.groups {
		if p.entered[g] || (p.run.from.IsValid() && g.Contains(p.run.from)) {
			continue
		}
		p.entered[g] = true
		if g.entry == nil {
			continue
		}
		if err := p.call(ComponentGroupEntryHandler, g, func() error {
			return g.entry(GroupHandlerInfo{TransitionInfo: p.info, Group: g})
		}); err != nil {
			return err
		}
	}

	if rec.entry != nil {
		if err := p.call(ComponentEntryHandler, nil, func() error { return rec.entry(p.info) }); err != nil {
			return err
		}
	}

	if rec.child == noMachine {
		return nil
	}
	child := p.sm.machines[rec.child]
	if child.initial == noState {
		return nil
	}
	child.current = child.initial
	return p.enter(p.sm.state(child.initial))
}

// call runs a handler. A failure faults the machine; a reset made by the
// handler yields errReset.
func (p *protocol) call(component FaultedComponent, g *Group, fn func() error) error {
	if err := invoke(fn); err != nil {
		return p.fail(component, err, g)
	}
	if p.sm.resetCount() != p.resets {
		return errReset
	}
	return nil
}

// fail latches a fault on the root and reports it.
func (p *protocol) fail(component FaultedComponent, err error, g *Group) error {
	f := &Fault{
		Component: component,
		Err:       err,
		From:      p.run.from,
		To:        p.run.to,
		Event:     p.run.event,
		Group:     g,
	}

	sm := p.sm
	sm.mutex.Lock()
	sm.fault = f
	sm.queue = nil
	sm.mutex.Unlock()

	sm.logger.Error("transition failed, state machine faulted",
		zap.String("machine", sm.Name()),
		zap.Stringer("component", component),
		zap.Stringer("from", p.run.from),
		zap.Stringer("to", p.run.to),
		zap.Stringer("event", p.run.event),
		zap.Error(err))
	sm.observers.Invoke(func(o Observer) { o.Faulted(FaultNotification{Fault: f}) })
	return &TransitionFailedError{Fault: f}
}
