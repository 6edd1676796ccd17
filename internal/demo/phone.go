// Package demo builds the phone call machine used by the statemech command.
package demo

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atlekbai/statemech"
)

// MaxVolume is the highest volume SetVolume accepts.
const MaxVolume = 10

// Phone is a phone call machine. Connected owns a child machine, "call",
// holding Talking and OnHold.
type Phone struct {
	*statemech.StateMachine

	OffHook   statemech.State
	Ringing   statemech.State
	Connected statemech.State
	Talking   statemech.State
	OnHold    statemech.State

	// Active holds Ringing and Connected: the line is in use.
	Active *statemech.Group

	CallDialed    *statemech.Event
	CallConnected *statemech.Event
	PlacedOnHold  *statemech.Event
	TakenOffHold  *statemech.Event
	LeftMessage   *statemech.Event
	HungUp        *statemech.Event
	SetVolume     *statemech.EventOf[int]

	Volume int

	out io.Writer
}

// NewPhone builds the machine. Handlers print to out.
func NewPhone(out io.Writer, opts ...statemech.Option) *Phone {
	p := &Phone{
		StateMachine: statemech.New("phone", opts...),
		out:          out,
		Volume:       5,
	}

	p.OffHook = p.CreateInitialState("OffHook")
	p.Ringing = p.CreateState("Ringing")
	p.Connected = p.CreateState("Connected")

	call := p.Connected.CreateChildMachine("call")
	p.Talking = call.CreateInitialState("Talking")
	p.OnHold = call.CreateState("OnHold")

	p.CallDialed = statemech.NewEvent("CallDialed")
	p.CallConnected = statemech.NewEvent("CallConnected")
	p.PlacedOnHold = statemech.NewEvent("PlacedOnHold")
	p.TakenOffHold = statemech.NewEvent("TakenOffHold")
	p.LeftMessage = statemech.NewEvent("LeftMessage")
	p.HungUp = statemech.NewEvent("HungUp")
	p.SetVolume = statemech.NewEventOf[int]("SetVolume")

	p.OffHook.TransitionOn(p.CallDialed).To(p.Ringing)

	p.Ringing.TransitionOn(p.HungUp).To(p.OffHook)
	p.Ringing.TransitionOn(p.CallConnected).To(p.Connected)

	p.Connected.
		OnEntry(p.printf("call connected")).
		OnExit(p.printf("call ended"))
	p.Connected.TransitionOn(p.LeftMessage).To(p.OffHook)
	p.Connected.TransitionOn(p.HungUp).To(p.OffHook)
	p.Connected.InnerSelfTransitionOn(p.SetVolume.Event).
		WithGuard(statemech.TypedGuard(func(_ statemech.TransitionInfo, volume int) (bool, error) {
			return volume >= 0 && volume <= MaxVolume, nil
		})).
		WithHandler(statemech.TypedHandler(func(_ statemech.TransitionInfo, volume int) error {
			p.Volume = volume
			fmt.Fprintf(p.out, "  -> volume set to %d\n", volume)
			return nil
		}))

	p.Talking.TransitionOn(p.PlacedOnHold).To(p.OnHold)
	p.OnHold.TransitionOn(p.TakenOffHold).To(p.Talking)

	p.Active = statemech.NewGroup("Active").
		AddStates(p.Ringing, p.Connected).
		OnEntry(func(statemech.GroupHandlerInfo) error {
			fmt.Fprintln(p.out, "  -> line busy")
			return nil
		}).
		OnExit(func(statemech.GroupHandlerInfo) error {
			fmt.Fprintln(p.out, "  -> line free")
			return nil
		})

	p.OnTransitionFinished(func(n statemech.TransitionNotification) {
		fmt.Fprintf(p.out, "  transitioned from %s to %s via %s\n", n.From, n.To, n.Event)
	})
	return p
}

func (p *Phone) printf(msg string) statemech.StateHandler {
	return func(statemech.TransitionInfo) error {
		fmt.Fprintf(p.out, "  -> %s\n", msg)
		return nil
	}
}

// Events returns the events by name.
func (p *Phone) Events() map[string]*statemech.Event {
	return map[string]*statemech.Event{
		p.CallDialed.Name():    p.CallDialed,
		p.CallConnected.Name(): p.CallConnected,
		p.PlacedOnHold.Name():  p.PlacedOnHold,
		p.TakenOffHold.Name():  p.TakenOffHold,
		p.LeftMessage.Name():   p.LeftMessage,
		p.HungUp.Name():        p.HungUp,
		p.SetVolume.Name():     p.SetVolume.Event,
	}
}

// FireCommand fires an event given as "Name" or "Name=payload". Only
// SetVolume takes a payload, an integer.
func (p *Phone) FireCommand(cmd string) error {
	name, arg, hasArg := strings.Cut(cmd, "=")
	e, ok := p.Events()[name]
	if !ok {
		return fmt.Errorf("unknown event %q", name)
	}

	if e != p.SetVolume.Event {
		if hasArg {
			return fmt.Errorf("event %s takes no payload", name)
		}
		return e.Fire()
	}

	if !hasArg {
		return fmt.Errorf("event %s needs a volume, e.g. %s=7", name, name)
	}
	volume, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("parsing volume %q: %w", arg, err)
	}
	return p.SetVolume.Fire(volume)
}
