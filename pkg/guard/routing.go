package guard

import (
	"os"
	"os/signal"
	"sync"
)

// Signal disposition is a process-global resource, so interception goes
// through a single routing table: per signal it keeps a stack of interested
// channels and keeps only the top of each stack subscribed with the runtime.
// A nested guard therefore borrows a signal from the outer guard and hands
// it back on release, instead of both observing it at once.
type routingTable struct {
	mu     sync.Mutex
	stacks map[os.Signal][]chan os.Signal
	armed  map[chan os.Signal]map[os.Signal]struct{}
}

var routes = newRoutingTable()

func newRoutingTable() *routingTable {
	return &routingTable{
		stacks: make(map[os.Signal][]chan os.Signal),
		armed:  make(map[chan os.Signal]map[os.Signal]struct{}),
	}
}

// acquire makes ch the active interceptor for every signal in sigs,
// suspending whichever channel held each signal before.
func (t *routingTable) acquire(ch chan os.Signal, sigs []os.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, sig := range sigs {
		if top, ok := t.top(sig); ok {
			t.disarm(top, sig)
		}
		t.stacks[sig] = append(t.stacks[sig], ch)
		t.arm(ch, sig)
	}
}

// release drops ch from every stack it is on. Signals ch was actively
// intercepting fall back to the next channel on their stack, or to the
// runtime default when the stack empties. Releasing a channel that was
// never acquired is a no-op.
func (t *routingTable) release(ch chan os.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for sig, stack := range t.stacks {
		idx := -1
		for i := range stack {
			if stack[i] == ch {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}

		wasTop := idx == len(stack)-1
		t.stacks[sig] = append(stack[:idx], stack[idx+1:]...)
		if len(t.stacks[sig]) == 0 {
			delete(t.stacks, sig)
		}

		if wasTop {
			t.disarm(ch, sig)
			if top, ok := t.top(sig); ok {
				t.arm(top, sig)
			}
		}
	}
	delete(t.armed, ch)
}

func (t *routingTable) top(sig os.Signal) (chan os.Signal, bool) {
	stack := t.stacks[sig]
	if len(stack) == 0 {
		return nil, false
	}
	return stack[len(stack)-1], true
}

func (t *routingTable) arm(ch chan os.Signal, sig os.Signal) {
	set := t.armed[ch]
	if set == nil {
		set = make(map[os.Signal]struct{})
		t.armed[ch] = set
	}
	set[sig] = struct{}{}
	t.reprogram(ch)
}

func (t *routingTable) disarm(ch chan os.Signal, sig os.Signal) {
	if set := t.armed[ch]; set != nil {
		delete(set, sig)
	}
	t.reprogram(ch)
}

// reprogram syncs the runtime subscription for ch with its armed set.
// signal.Notify is additive per channel, so the subscription is rebuilt
// from scratch each time.
func (t *routingTable) reprogram(ch chan os.Signal) {
	signal.Stop(ch)

	set := t.armed[ch]
	if len(set) == 0 {
		return
	}

	sigs := make([]os.Signal, 0, len(set))
	for sig := range set {
		sigs = append(sigs, sig)
	}
	signal.Notify(ch, sigs...)
}
