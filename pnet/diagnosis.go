package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	Bounded diagnosis pool. Each subslot chains
 *		its active diagnosis items through a fixed-capacity free
 *		list, matching the scheduler's allocation discipline
 *
 *
 *---------------------------------------------------------------*/

// diagNone is the "no diagnosis item" sentinel used by Subslot.DiagHead
// and diagItem.next alike (a typed
// sentinel instead of a magic pointer value).
const diagNone int32 = -1

// DiagSeverity mirrors the PROFINET channel diagnosis severity levels.
type DiagSeverity uint8

const (
	DiagSeverityFault    DiagSeverity = iota
	DiagSeverityWarning
	DiagSeverityMaintenanceRequired
	DiagSeverityMaintenanceDemanded
)

// diagCapacity bounds total outstanding diagnosis items across the device
// (fixed pools, never unbounded allocation).
const diagCapacity = 64

type diagItem struct {
	inUse    bool
	next     int32
	API      uint32
	Slot, Subslot uint16
	ChannelNumber uint16
	Severity DiagSeverity
	ErrorType uint16
}

// DiagnosisPool is the device-wide fixed pool of outstanding diagnosis
// items, each chained off the subslot that raised it.
type DiagnosisPool struct {
	items    [diagCapacity]diagItem
	freeHead int32
}

// NewDiagnosisPool builds a pool with every entry on the free list.
func NewDiagnosisPool() *DiagnosisPool {
	var p = &DiagnosisPool{freeHead: 0}

	for i := range p.items {
		if i+1 < len(p.items) {
			p.items[i].next = int32(i + 1)
		} else {
			p.items[i].next = diagNone
		}
	}

	return p
}

// Add chains a new diagnosis item onto the subslot's list, returning
// ErrResourceExhausted if the pool is full (rejected,
// not crashed).
func (p *DiagnosisPool) Add(ss *Subslot, api uint32, slot, subslot, channel uint16, sev DiagSeverity, errType uint16) error {
	if p.freeHead == diagNone {
		return &ErrResourceExhausted{Resource: "diagnosis pool"}
	}

	var ix = p.freeHead
	p.freeHead = p.items[ix].next

	p.items[ix] = diagItem{
		inUse:         true,
		next:          ss.DiagHead,
		API:           api,
		Slot:          slot,
		Subslot:       subslot,
		ChannelNumber: channel,
		Severity:      sev,
		ErrorType:     errType,
	}

	ss.DiagHead = ix

	return nil
}

// Clear removes every diagnosis item matching channel from the subslot's
// list (clearing a non-existent diagnosis is a no-op,
// i.e. idempotent).
func (p *DiagnosisPool) Clear(ss *Subslot, channel uint16) {
	var prev int32 = diagNone
	var cur = ss.DiagHead

	for cur != diagNone {
		var next = p.items[cur].next

		if p.items[cur].ChannelNumber == channel {
			if prev == diagNone {
				ss.DiagHead = next
			} else {
				p.items[prev].next = next
			}

			p.items[cur] = diagItem{next: p.freeHead}
			p.freeHead = cur
		} else {
			prev = cur
		}

		cur = next
	}
}

// List returns every diagnosis item currently chained to ss.
func (p *DiagnosisPool) List(ss *Subslot) []diagItem {
	var out []diagItem
	for cur := ss.DiagHead; cur != diagNone; cur = p.items[cur].next {
		out = append(out, p.items[cur])
	}
	return out
}

// IsEmpty reports whether ss has no active diagnosis items (the
// station-problem summary bit rolls this up device-wide).
func (p *DiagnosisPool) IsEmpty(ss *Subslot) bool {
	return ss.DiagHead == diagNone
}
