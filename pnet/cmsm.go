package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMSM - per-AR connection startup / liveness monitor.
 *
 * Description:	A single-shot timer of length
 *		cm_initiator_activity_timeout_factor x 100ms. Armed on
 *		CMDEV entering W_CIND, restarted on every RPC read,
 *		write, or DControl, disarmed on CMDEV reaching DATA or
 *		ABORT.
 *
 *---------------------------------------------------------------*/

import "time"

// CMSM is the per-AR activity watchdog.
type CMSM struct {
	ar     *AR
	handle Handle
	armed  bool
}

func newCMSM(ar *AR) *CMSM {
	return &CMSM{ar: ar}
}

func (w *CMSM) timeout() time.Duration {
	return time.Duration(w.ar.CMIActivityTimeoutFactor) * 100 * time.Millisecond
}

// Arm starts the watchdog, called when CMDEV enters W_CIND.
func (w *CMSM) Arm() {
	var ar = w.ar
	var h, err = ar.device.Scheduler.Add(time.Now(), w.timeout(), "cmsm", func(time.Time, any) {
		w.fire()
	}, nil)
	if err != nil {
		ar.Abort(newARError(ErrClassCMSM, ErrCodeCMSMSchedulerExhausted, "scheduler exhausted arming CMSM"))
		return
	}

	w.handle = h
	w.armed = true
}

// Restart is called on every RPC read, write, or DControl to push the
// watchdog's deadline back out.
func (w *CMSM) Restart() {
	if !w.armed {
		return
	}

	var ar = w.ar
	var h, err = ar.device.Scheduler.Restart(time.Now(), w.timeout(), "cmsm", func(time.Time, any) {
		w.fire()
	}, nil, w.handle)
	if err != nil {
		ar.Abort(newARError(ErrClassCMSM, ErrCodeCMSMSchedulerExhausted, "scheduler exhausted restarting CMSM"))
		return
	}

	w.handle = h
}

// Disarm stops the watchdog, called when CMDEV reaches DATA or ABORT.
func (w *CMSM) Disarm() {
	if !w.armed {
		return
	}

	w.ar.device.Scheduler.Remove(w.handle)
	w.armed = false
}

func (w *CMSM) fire() {
	w.armed = false
	w.ar.Abort(newARError(ErrClassRTA, ErrCodeCMITimeout, "CMI activity timeout expired"))
}
