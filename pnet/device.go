package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	Process-wide device tree: APIs, slots, and subslots.
 *
 * Description:	A Device owns a fixed-size array of APIs, each with a
 *		fixed-size array of slots (slot 0 is the DAP), each with
 *		a fixed-size array of subslots. Subslots are owned by the
 *		device tree; ARs cross-reference them by stable (api,
 *		slot, subslot) index rather than by pointer.
 *
 *---------------------------------------------------------------*/

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pnetgo/pnet/pnet/pnetlog"
)

// DataDirection is a subslot's configured I/O direction.
type DataDirection uint8

const (
	DirNoIO DataDirection = iota
	DirInput
	DirOutput
	DirInputOutput
)

const (
	// MaxAPIs, MaxSlots, MaxSubslots bound the device tree;
	// values are generous for a single-API device with a handful of
	// physical ports on the DAP plus a realistic module count.
	MaxAPIs     = 1
	MaxSlots    = 64
	MaxSubslots = 8

	// DAPSlot is the fixed slot index representing the device itself.
	DAPSlot = 0

	// MaxAR is the fixed upper bound on concurrently live ARs (
	// invariant).
	MaxAR = 4
)

// ModuleIdent identifies a pluggable module or submodule (GSDML identities
// are external; the core only stores the numeric identity it was given).
type ModuleIdent uint32

// Subslot is one addressable unit of I/O within a slot.
type Subslot struct {
	Number   uint16
	Plugged  bool
	Ident    ModuleIdent
	Dir      DataDirection
	InputLen uint16
	OutputLen uint16

	// OwnerAR is a weak back-reference: -1 when unowned, otherwise an
	// index into Device.ars. Validated on dereference.
	OwnerAR int

	ProviderStatus uint8
	ConsumerStatus uint8

	// DiagHead is the index of the first diagnosis item chained to this
	// subslot, or diagNone.
	DiagHead int32

	IM IM
}

// Slot holds zero or one plugged module and its subslots.
type Slot struct {
	Number   uint16
	Plugged  bool
	Ident    ModuleIdent
	Subslots [MaxSubslots]Subslot
}

// API (Application Process Identifier group) holds the slot array.
type API struct {
	Number uint32
	Slots  [MaxSlots]Slot
}

// Device is the process-wide instance holding every AR, the module/
// submodule plug table, the scheduler, the FrameID dispatch table, and the
// diagnosis pool.
type Device struct {
	mu sync.Mutex

	Config    *DeviceConfig
	Callbacks DeviceCallbacks
	Log       *pnetlog.Logger

	APIs [MaxAPIs]API

	Scheduler *Scheduler
	FrameIDs  *FrameIDTable
	Diag      *DiagnosisPool
	Logbook   *Logbook
	CMRDR     *CMRDR
	CMWRR     *CMWRR
	CMRPC     *CMRPC
	PDPorts   *PDPortTable

	ars      [MaxAR]*AR
	cmina    *CMINA
}

// imFor returns the I&M record set belonging to ss.
func (d *Device) imFor(ss *Subslot) *IM {
	return &ss.IM
}

// findARBySession returns the live AR for the given RPC session key, or
// nil if none is bound to that session.
func (d *Device) findARBySession(key uuid.UUID) *AR {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ar := range d.ars {
		if ar != nil && ar.SessionKey == key {
			return ar
		}
	}

	return nil
}

// NewDevice constructs a device tree with an empty AR table and the DAP
// pre-plugged, or returns an error if the supplied configuration is
// invalid. It never panics.
func NewDevice(cfg *DeviceConfig, cb DeviceCallbacks) (*Device, error) {
	if cfg == nil {
		return nil, &ErrResourceExhausted{Resource: "config"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var d = &Device{
		Config:    cfg,
		Callbacks: cb,
		Log:       pnetlog.New(cfg.LogLevel),
		Scheduler: NewScheduler(cfg.CycleTime, true),
		FrameIDs:  NewFrameIDTable(MaxAR * 4),
		Diag:      NewDiagnosisPool(),
		Logbook:   NewLogbook(32),
	}

	d.APIs[0].Slots[DAPSlot].Plugged = true
	d.APIs[0].Slots[DAPSlot].Number = DAPSlot

	d.cmina = NewCMINA(d)
	d.CMRDR = NewCMRDR(d)
	d.CMWRR = NewCMWRR(d)
	d.CMRPC = NewCMRPC(d, nil)

	return d, nil
}

// SetRPCSender attaches the live UDP transport's response sender, normally
// bound once the network interface is open (the device and its RPC
// reassembly state are constructed before any socket exists).
func (d *Device) SetRPCSender(sender RPCSender) {
	d.CMRPC.sender = sender
}

// Slot looks up a slot by its index. ok is false if the index is out of
// range or the slot is unplugged.
func (d *Device) Slot(api uint32, slot uint16) (*Slot, bool) {
	if api >= MaxAPIs || int(slot) >= MaxSlots {
		return nil, false
	}

	var s = &d.APIs[api].Slots[slot]
	if !s.Plugged {
		return nil, false
	}

	return s, true
}

// Subslot looks up a subslot by its (slot, subslot) index. ok is false if
// either index is out of range or the subslot is unplugged.
func (d *Device) Subslot(api uint32, slot, subslot uint16) (*Subslot, bool) {
	if api >= MaxAPIs || int(slot) >= MaxSlots || int(subslot) >= MaxSubslots {
		return nil, false
	}

	var s = &d.APIs[api].Slots[slot].Subslots[subslot]
	if !s.Plugged {
		return nil, false
	}

	return s, true
}

// PlugModule plugs a module identity into a slot (pnet_plug_module).
func (d *Device) PlugModule(api uint32, slot uint16, ident ModuleIdent) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if api >= MaxAPIs || int(slot) >= MaxSlots {
		return &ErrResourceExhausted{Resource: "slot index"}
	}

	d.APIs[api].Slots[slot].Plugged = true
	d.APIs[api].Slots[slot].Number = slot
	d.APIs[api].Slots[slot].Ident = ident

	return nil
}

// PlugSubmodule plugs a submodule into an already-plugged slot
// (pnet_plug_submodule).
func (d *Device) PlugSubmodule(api uint32, slot, subslot uint16, ident ModuleIdent, dir DataDirection, inLen, outLen uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if api >= MaxAPIs || int(slot) >= MaxSlots || int(subslot) >= MaxSubslots {
		return &ErrResourceExhausted{Resource: "subslot index"}
	}

	if !d.APIs[api].Slots[slot].Plugged {
		return &ARError{Class: ErrClassCMDEV, Code: ErrCodeInvalidIndexState, Msg: "plug submodule into unplugged slot"}
	}

	var ss = &d.APIs[api].Slots[slot].Subslots[subslot]
	*ss = Subslot{
		Number:    subslot,
		Plugged:   true,
		Ident:     ident,
		Dir:       dir,
		InputLen:  inLen,
		OutputLen: outLen,
		OwnerAR:   -1,
		DiagHead:  diagNone,
	}

	return nil
}

// PullSubmodule spontaneously removes a submodule (pnet_pull_submodule).
// If it is currently owned by an AR, the removal is posted as a "released
// alarm" by the plug state machine rather than silently
// dropping ownership.
func (d *Device) PullSubmodule(api uint32, slot, subslot uint16) error {
	d.mu.Lock()
	var ss, ok = d.subslotLocked(api, slot, subslot)
	if !ok {
		d.mu.Unlock()
		return &ARError{Class: ErrClassCMDEV, Code: ErrCodeInvalidIndexState, Msg: "pull unplugged subslot"}
	}

	var ownerIdx = ss.OwnerAR
	*ss = Subslot{OwnerAR: -1, DiagHead: diagNone}
	var owner *AR
	if ownerIdx >= 0 && ownerIdx < len(d.ars) {
		owner = d.ars[ownerIdx]
	}
	d.mu.Unlock()

	if owner != nil {
		owner.postReleasedAlarm(api, slot, subslot)
	}

	return nil
}

func (d *Device) subslotLocked(api uint32, slot, subslot uint16) (*Subslot, bool) {
	if api >= MaxAPIs || int(slot) >= MaxSlots || int(subslot) >= MaxSubslots {
		return nil, false
	}

	var s = &d.APIs[api].Slots[slot].Subslots[subslot]
	if !s.Plugged {
		return nil, false
	}

	return s, true
}

// allocAR finds a free AR table slot (at most MaxAR ARs), returning
// ErrResourceExhausted when the table is full. Subslot ownership
// conflicts are resolved later, by claimSubslot.
func (d *Device) allocAR() (*AR, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < MaxAR; i++ {
		if d.ars[i] == nil {
			return nil, i, nil
		}
	}

	return nil, -1, &ErrResourceExhausted{Resource: "AR table"}
}

func (d *Device) setAR(idx int, ar *AR) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ars[idx] = ar
}

func (d *Device) clearAR(idx int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ars[idx] = nil
}

// claimSubslot assigns ownership of a subslot to an AR, aborting whatever
// AR previously owned it ("A subslot may be owned by at most one
// AR at a time").
func (d *Device) claimSubslot(api uint32, slot, subslot uint16, arIndex int) error {
	d.mu.Lock()
	var ss, ok = d.subslotLocked(api, slot, subslot)
	if !ok {
		d.mu.Unlock()
		return &ARError{Class: ErrClassCMSU, Code: ErrCodeCMSUConsumerFailed, Msg: "subslot not plugged"}
	}

	var previousOwner *AR
	if ss.OwnerAR >= 0 && ss.OwnerAR != arIndex && ss.OwnerAR < len(d.ars) {
		previousOwner = d.ars[ss.OwnerAR]
	}
	ss.OwnerAR = arIndex
	d.mu.Unlock()

	if previousOwner != nil {
		previousOwner.Abort(newARError(ErrClassCMDEV, ErrCodeStateConflict, "subslot reclaimed by new AR"))
	}

	return nil
}

// abortAllARs raises err on every currently live AR ("A DCP Set
// that changes IP while any AR exists causes those ARs to abort").
func (d *Device) abortAllARs(err *ARError) {
	d.mu.Lock()
	var live []*AR
	for _, ar := range d.ars {
		if ar != nil {
			live = append(live, ar)
		}
	}
	d.mu.Unlock()

	for _, ar := range live {
		ar.Abort(&ARError{Class: err.Class, Code: err.Code, Code2: err.Code2, Msg: err.Msg})
	}
}

// resetToFactory tears down all ARs and invokes the application's reset
// callback with the requested scope ("A reset-to-factory Set
// tears down all ARs and invokes the application reset callback with a
// reset mode indicating scope").
func (d *Device) resetToFactory(mode ResetMode) {
	d.abortAllARs(newARError(ErrClassRTA, ErrCodeResetToFactory, "DCP reset to factory"))

	if mode == ResetModeAll || mode == ResetModeApplication {
		d.Config.StationName = ""
		d.cmina.state = cminaStateSetName
	}

	if d.Callbacks != nil {
		d.Callbacks.ResetInd(mode)
	}
}

// releaseSubslotsOwnedBy clears OwnerAR for every subslot owned by arIndex
// ("subslot ownership cleared").
func (d *Device) releaseSubslotsOwnedBy(arIndex int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for a := range d.APIs {
		for s := range d.APIs[a].Slots {
			for sub := range d.APIs[a].Slots[s].Subslots {
				var ss = &d.APIs[a].Slots[s].Subslots[sub]
				if ss.Plugged && ss.OwnerAR == arIndex {
					ss.OwnerAR = -1
				}
			}
		}
	}
}
