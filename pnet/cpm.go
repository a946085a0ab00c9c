package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CPM - Consumer Protocol Machine.
 *
 * Description:	Per output IOCR. W_START -> FRUN -> RUN. Validates
 *		each received cyclic frame (length, source MAC,
 *		transfer-status, cycle-counter monotonicity with
 *		rollover), publishes valid data to a double-buffer, and
 *		runs a Data Hold Timer that aborts the AR on expiry.
 *
 *---------------------------------------------------------------*/

import (
	"sync"
	"time"
)

// CPMState enumerates CPM's states.
type CPMState uint8

const (
	CPMStateWStart CPMState = iota
	CPMStateFRun
	CPMStateRun
	CPMStateClosed
)

// DataStatus bits, set on each provided frame and checked by the consumer.
const (
	DataStatusProviderRun     uint8 = 1 << 0
	DataStatusDataValid       uint8 = 1 << 2
	DataStatusPrimaryOrBackup uint8 = 1 << 3 // 1=primary, 0=backup
	DataStatusStationProblem  uint8 = 1 << 4
	DataStatusIgnore          uint8 = 1 << 5
)

// cpmBuffer is one side of the consumer double-buffer.
type cpmBuffer struct {
	data  []byte
	iops  byte
	iocs  byte
	fresh bool
}

// CPM is the per-(output-IOCR) consumer protocol machine.
type CPM struct {
	ar   *AR
	iocr *IOCR

	mu    sync.Mutex
	state CPMState

	peerMAC        [6]byte
	bufLen         int
	controlInterval time.Duration

	prevCycleCounter uint16
	haveCounter      bool

	lastStatus byte
	haveStatus bool

	dhtHandle    Handle
	dhtCount     uint16
	dataHoldFactor uint16

	front, back cpmBuffer
	newFrontReady bool

	onFirstValidFrame func()
}

// NewCPM activates a consumer protocol machine: registers its FrameID,
// computes the control interval, and starts the periodic DHT tick.
// Activation moves the machine from W_START to FRUN, so the first valid
// frame it accepts takes it to RUN.
func NewCPM(ar *AR, iocr *IOCR) (*CPM, error) {
	var c = &CPM{
		ar:             ar,
		iocr:           iocr,
		state:          CPMStateFRun,
		bufLen:         iocr.FrameLength,
		controlInterval: time.Duration(iocr.ControlInterval()) * time.Microsecond,
		dataHoldFactor: iocr.DataHoldFactor,
	}

	ar.device.FrameIDs.Register(iocr.FrameID, c.handleFrame)

	var h, err = ar.device.Scheduler.Add(time.Now(), c.controlInterval, "cpm-dht", func(time.Time, any) {
		c.tick()
	}, nil)
	if err != nil {
		ar.device.FrameIDs.Unregister(iocr.FrameID)
		return nil, err
	}
	c.dhtHandle = h

	return c, nil
}

// handleFrame is the FrameHandler registered with the device's FrameID
// dispatch table.
func (c *CPM) handleFrame(frameID uint16, payload []byte, srcMAC [6]byte) bool {
	var becameRun bool
	var notify func()
	var statusChanged bool
	var reportedStatus byte

	c.mu.Lock()
	switch {
	case c.state == CPMStateClosed:
	case len(payload) != c.bufLen:
		// malformed: dropped silently (the frame still counts as consumed)
	case srcMAC != c.peerMAC:
	default:
		// Trailing 4-byte APDU status: cycle-counter(2, BE),
		// data-status(1), transfer-status(1).
		var n = len(payload)
		var cycleCounter = uint16(payload[n-4])<<8 | uint16(payload[n-3])
		var dataStatus = payload[n-2]
		var transferStatus = payload[n-1]

		if transferStatus == 0 && c.acceptCycleCounter(cycleCounter) {
			c.prevCycleCounter = cycleCounter
			c.haveCounter = true

			var dataValid = dataStatus&DataStatusDataValid != 0

			if dataValid {
				// Published regardless of PRIMARY/BACKUP - both carry
				// valid data for a redundant provider; the bit only
				// distinguishes which of the pair sent it.
				c.publish(payload[:n-4], dataStatus)
				c.resetDHTLocked()

				if !c.haveStatus || dataStatus != c.lastStatus {
					c.haveStatus = true
					c.lastStatus = dataStatus
					statusChanged = true
					reportedStatus = dataStatus
				}

				switch c.state {
				case CPMStateFRun:
					c.state = CPMStateRun
					becameRun = true
					notify = c.onFirstValidFrame
				case CPMStateWStart:
					c.state = CPMStateFRun
				}
			}
		}
	}
	c.mu.Unlock()

	if statusChanged && c.ar.device.Callbacks != nil {
		c.ar.device.Callbacks.NewDataStatusInd(c.ar.AREP, c.iocr.FrameID, reportedStatus)
	}

	if becameRun && notify != nil {
		notify()
	}

	return true
}

// acceptCycleCounter implements  property 3: accept iff
// delta = (now - prev) mod 2^16 is in [1, 61440], natural rollover
// included. The very first frame received has no previous value and is
// always accepted.
func (c *CPM) acceptCycleCounter(now uint16) bool {
	if !c.haveCounter {
		return true
	}

	return CPMCycleCounterAccepted(c.prevCycleCounter, now)
}

// CPMCycleCounterAccepted is the pure decision function, exported for the
// property test covering  property 3 / scenario S2.
func CPMCycleCounterAccepted(prev, now uint16) bool {
	var delta = uint16(now - prev) // wraps naturally, matching mod 2^16
	return delta >= 1 && delta <= 61440
}

func (c *CPM) publish(data []byte, dataStatus byte) {
	c.back.data = append(c.back.data[:0], data...)
	c.back.iops = dataStatus
	c.back.fresh = true
	c.front, c.back = c.back, c.front
	c.newFrontReady = true
}

func (c *CPM) resetDHTLocked() {
	c.dhtCount = 0
}

// tick is the periodic control-interval callback driving the Data Hold
// Timer.
func (c *CPM) tick() {
	c.mu.Lock()
	if c.state == CPMStateClosed {
		c.mu.Unlock()
		return
	}

	c.dhtCount++
	var expired = c.state == CPMStateRun && c.dhtCount >= c.dataHoldFactor
	var ar = c.ar
	c.mu.Unlock()

	if expired {
		ar.Abort(newARError(ErrClassRTA, ErrCodeConsumerDHTExpired, "CPM data hold timer expired"))
		return
	}

	var h, err = ar.device.Scheduler.Restart(time.Now(), c.controlInterval, "cpm-dht", func(time.Time, any) { c.tick() }, nil, c.dhtHandle)
	if err != nil {
		ar.Abort(newARError(ErrClassCPM, ErrCodeCPMInvalidState, "scheduler exhausted restarting CPM DHT"))
		return
	}

	c.mu.Lock()
	c.dhtHandle = h
	c.mu.Unlock()
}

// GetDataAndIOPS returns the front buffer under the CPM mutex. The getter
// does not swap the double-buffer itself: publish swaps it on every valid
// frame. isNew reports whether a frame was published since the last call.
func (c *CPM) GetDataAndIOPS() (data []byte, iops byte, isNew bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	isNew = c.newFrontReady
	c.newFrontReady = false

	return c.front.data, c.front.iops, isNew
}

// GetIOCS returns the last consumer-status byte associated with the
// current front buffer.
func (c *CPM) GetIOCS() byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.front.iocs
}

// Close tears down the consumer protocol machine: unregisters its FrameID
// and stops the DHT timer ("closing the IOCR destroys
// the PM").
func (c *CPM) Close() {
	c.mu.Lock()
	c.state = CPMStateClosed
	var h = c.dhtHandle
	c.mu.Unlock()

	c.ar.device.Scheduler.Remove(h)
	c.ar.device.FrameIDs.Unregister(c.iocr.FrameID)
}
