package sensor

// Event is a presence transition reported by Monitor.Recheck.
type Event int

const (
	EventNone Event = iota
	EventOnline
	EventOffline
)

func (e Event) String() string {
	switch e {
	case EventOnline:
		return "online"
	case EventOffline:
		return "offline"
	}
	return "none"
}

// Monitor re-checks slots between observations so that sensors can be
// hot-plugged. A slot that comes back is re-opened with the variant it was
// last identified as; a slot never identified goes through full
// identification again.
type Monitor struct {
	id    *Identifier
	slots []*Slot
	log   Logger
}

// NewMonitor returns a monitor over slots.
func NewMonitor(id *Identifier, log Logger, slots ...*Slot) *Monitor {
	return &Monitor{id: id, slots: slots, log: log}
}

// ProbeAll runs startup identification on every slot and returns the number
// of slots present.
func (m *Monitor) ProbeAll() int {
	n := 0
	for _, s := range m.slots {
		if m.id.Probe(s) {
			n++
		}
	}
	return n
}

// Slots returns the monitored slots.
func (m *Monitor) Slots() []*Slot {
	return m.slots
}

// Recheck pings one slot and reconciles its state. It reports a transition
// only when the present flag actually changed, so calling it again with an
// unchanged bus yields EventNone.
func (m *Monitor) Recheck(slot *Slot) Event {
	acked := m.id.Ping(slot.Addr)

	switch {
	case acked && !slot.Present:
		if slot.Variant == VariantUnknown {
			m.id.Probe(slot)
		} else {
			m.id.Begin(slot, slot.Variant)
		}
		if slot.Present {
			m.log.Infof("%s connected", slot.Name)
			return EventOnline
		}
	case !acked && slot.Present:
		m.id.markAbsent(slot)
		m.log.Warnf("%s disconnected", slot.Name)
		return EventOffline
	}
	return EventNone
}

// MarkFailed takes a slot offline after a failed read and sets its fault
// bit. The variant is kept, so the next Recheck re-opens the slot as long as
// it still acknowledges.
func (m *Monitor) MarkFailed(slot *Slot) {
	if !slot.Present {
		return
	}
	m.id.markAbsent(slot)
	m.log.Warnf("%s ERR", slot.Name)
}

// RecheckAll rechecks every slot and returns the transitions by slot name.
func (m *Monitor) RecheckAll() map[string]Event {
	events := make(map[string]Event)
	for _, s := range m.slots {
		if ev := m.Recheck(s); ev != EventNone {
			events[s.Name] = ev
		}
	}
	return events
}
