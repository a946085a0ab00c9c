package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	PPM - Provider Protocol Machine.
 *
 * Description:	Per input IOCR. Owns one pre-formatted Ethernet
 *		frame whose header is written once at create; only the
 *		payload, cycle-counter, data-status, and transfer-status
 *		are updated each tick. Emission is deadline-monotonic so
 *		drift does not accumulate.
 *
 *---------------------------------------------------------------*/

import (
	"sync"
	"time"
)

// PPMState enumerates the provider protocol machine's states.
type PPMState uint8

const (
	PPMStateWStart PPMState = iota
	PPMStateRun
	PPMStateClosed
)

// FrameSender is the L2 send primitive the PPM hands completed frames to
// (raw-Ethernet send is an external collaborator).
type FrameSender interface {
	SendFrame(frame []byte) error
}

// PPM is the per-(input-IOCR) provider protocol machine.
type PPM struct {
	ar     *AR
	iocr   *IOCR
	sender FrameSender

	mu    sync.Mutex
	state PPMState

	frame      []byte // pre-formatted: header + payload + trailer, reused every tick
	headerLen  int
	payloadLen int

	cycleCounter uint16
	interval     uint32 // send_clock_factor * reduction_ratio, counter units

	providerRun    bool
	stationProblem bool

	nextExec time.Time
	controlInterval time.Duration
	handle          Handle

	userData []byte
	userIOPS byte
}

// NewPPM activates a provider protocol machine: builds the fixed header
// once and schedules the first deadline-monotonic tick.
func NewPPM(ar *AR, iocr *IOCR, opts ...func(*PPM)) (*PPM, error) {
	var headerLen = 14 // dest(6) + src(6) + ethertype/frameid(2), VLAN tag appended separately if present
	if iocr.VLANTag != 0 {
		headerLen += 4
	}

	var p = &PPM{
		ar:              ar,
		iocr:            iocr,
		payloadLen:      iocr.FrameLength,
		headerLen:       headerLen,
		interval:        uint32(iocr.SendClockFactor) * uint32(iocr.ReductionRatio),
		controlInterval: time.Duration(iocr.ControlInterval()) * time.Microsecond,
		userData:        make([]byte, iocr.FrameLength),
	}

	p.frame = make([]byte, headerLen+iocr.FrameLength+4)

	for _, opt := range opts {
		opt(p)
	}

	p.nextExec = time.Now()

	var h, err = ar.device.Scheduler.Add(time.Now(), p.controlInterval, "ppm", func(time.Time, any) {
		p.tick()
	}, nil)
	if err != nil {
		return nil, err
	}
	p.handle = h
	p.state = PPMStateRun

	return p, nil
}

// WithSender injects the FrameSender (tests may omit it and observe frame
// contents via LastFrame instead).
func WithSender(s FrameSender) func(*PPM) {
	return func(p *PPM) { p.sender = s }
}

// SetProviderState implements pnet_set_provider_state.
func (p *PPM) SetProviderState(running bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.providerRun = running
}

// SetStationProblem updates the STATION_PROBLEM data-status bit, tracking
// the diagnosis summary.
func (p *PPM) SetStationProblem(problem bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stationProblem = problem
}

// SetDataAndIOPS copies user data and IOPS into the pending payload under
// the PPM mutex; tick() picks them up on its next firing.
func (p *PPM) SetDataAndIOPS(data []byte, iops byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copy(p.userData, data)
	p.userIOPS = iops
}

// nextCycleCounter truncates the previous value to a multiple of the
// transmission interval and adds one interval. Wrap is
// natural 16-bit.
func nextCycleCounter(prev uint16, interval uint32) uint16 {
	if interval == 0 {
		return prev
	}

	var truncated = uint32(prev) / interval * interval
	return uint16(truncated + interval)
}

func (p *PPM) dataStatus() byte {
	var s byte
	if p.providerRun {
		s |= DataStatusProviderRun
	}
	s |= DataStatusDataValid
	s |= DataStatusPrimaryOrBackup // device is always primary provider
	if p.stationProblem {
		s |= DataStatusStationProblem
	}
	return s
}

// tick copies user data into the frame, advances the cycle counter, and
// hands the frame to L2 send. The next tick is scheduled at
// next_exec += control_interval (deadline-monotonic scheduling, so jitter
// in one tick never accumulates into later ticks).
func (p *PPM) tick() {
	p.mu.Lock()
	if p.state == PPMStateClosed {
		p.mu.Unlock()
		return
	}

	copy(p.frame[p.headerLen:], p.userData)
	p.cycleCounter = nextCycleCounter(p.cycleCounter, p.interval)

	var n = len(p.frame)
	p.frame[n-4] = byte(p.cycleCounter >> 8)
	p.frame[n-3] = byte(p.cycleCounter)
	p.frame[n-2] = p.dataStatus()
	p.frame[n-1] = 0 // transfer-status: always zero on send

	var frameCopy = append([]byte(nil), p.frame...)
	var sender = p.sender
	var ar = p.ar

	p.nextExec = p.nextExec.Add(p.controlInterval)
	var deadline = p.nextExec
	var h = p.handle
	p.mu.Unlock()

	if sender != nil {
		if err := sender.SendFrame(frameCopy); err != nil {
			ar.Abort(newARError(ErrClassPPM, ErrCodePPMInvalid, "L2 send failed"))
			return
		}
	}

	var delay = time.Until(deadline)
	var newH, err = ar.device.Scheduler.Restart(time.Now(), delay, "ppm", func(time.Time, any) { p.tick() }, nil, h)
	if err != nil {
		ar.Abort(newARError(ErrClassPPM, ErrCodePPMInvalidState, "scheduler exhausted restarting PPM"))
		return
	}

	p.mu.Lock()
	p.handle = newH
	p.mu.Unlock()
}

// LastFrame returns a copy of the most recently transmitted frame, for
// tests that do not wire a FrameSender.
func (p *PPM) LastFrame() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]byte(nil), p.frame...)
}

// CycleCounter returns the most recently transmitted cycle-counter value.
func (p *PPM) CycleCounter() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cycleCounter
}

// Close tears down the provider protocol machine; called when the owning
// IOCR is destroyed.
func (p *PPM) Close() {
	p.mu.Lock()
	p.state = PPMStateClosed
	var h = p.handle
	p.mu.Unlock()

	p.ar.device.Scheduler.Remove(h)
}
