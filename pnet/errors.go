package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	The two-byte err_cls/err_code identifier that
 *		travels in RPC responses, alarm frames, and state_ind.
 *
 *---------------------------------------------------------------*/

import "fmt"

// ErrClass is the high byte of a PROFINET error identifier.
type ErrClass uint8

const (
	ErrClassRTA    ErrClass = 0x01 // RTA protocol: DHT/CMI timeout, release indication, DCP events.
	ErrClassCTLDINA ErrClass = 0x03 // Multiple users of same IP.
	ErrClassCMDEV  ErrClass = 0x04
	ErrClassCMRPC  ErrClass = 0x05
	ErrClassCPM    ErrClass = 0x06
	ErrClassPPM    ErrClass = 0x07
	ErrClassALPM   ErrClass = 0x08
	ErrClassCMSU   ErrClass = 0x09
	ErrClassAPP    ErrClass = 0x0a
	ErrClassCMSM   ErrClass = 0x0b
)

// ErrCode is the low byte, meaning depends on ErrClass.
type ErrCode uint8

const (
	ErrCodeConsumerDHTExpired ErrCode = 0x01 // class RTA
	ErrCodeCMITimeout         ErrCode = 0x02 // class RTA
	ErrCodeReleaseInd         ErrCode = 0x03 // class RTA, peer sent Release
	ErrCodeStationNameChanged ErrCode = 0x04 // class RTA, DCP set station name
	ErrCodeResetToFactory     ErrCode = 0x05 // class RTA

	ErrCodeMultipleIPUsers ErrCode = 0x01 // class CTLDINA

	ErrCodeStateConflict    ErrCode = 0x01 // class CMDEV
	ErrCodeInvalidIndexState ErrCode = 0x02 // class CMDEV

	ErrCodeDecodeError  ErrCode = 0x01 // class CMRPC
	ErrCodeUnknownOpnum ErrCode = 0x02 // class CMRPC
	ErrCodeFragment     ErrCode = 0x03 // class CMRPC

	ErrCodeCPMInvalid      ErrCode = 0x01
	ErrCodeCPMInvalidState ErrCode = 0x02

	ErrCodePPMInvalid      ErrCode = 0x01
	ErrCodePPMInvalidState ErrCode = 0x02

	ErrCodeALPMInvalid       ErrCode = 0x01
	ErrCodeALPMQueueOverflow ErrCode = 0x02
	ErrCodeALPMRetryExceeded ErrCode = 0x03

	ErrCodeCMSUProviderFailed ErrCode = 0x01
	ErrCodeCMSUConsumerFailed ErrCode = 0x02
	ErrCodeCMSUAlarmOpenFailed ErrCode = 0x03

	ErrCodeCMSMSchedulerExhausted ErrCode = 0x01 // class CMSM

	ErrCodeAppReadError  ErrCode = 0x01
	ErrCodeAppWriteError ErrCode = 0x02
	ErrCodeAppSpecific   ErrCode = 0xff
)

// ARError is the AR-scoped error raised by any state machine to drive
// CMDEV into its abort cascade. It satisfies the error interface so it can
// be returned and logged the ordinary Go way before being handed to Abort.
type ARError struct {
	Class ErrClass
	Code  ErrCode
	// Code2 further qualifies the failure for diagnostic purposes; zero
	// when not applicable.
	Code2 uint8
	Msg   string
}

func (e *ARError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("pnet: err_cls=0x%02x err_code=0x%02x: %s", e.Class, e.Code, e.Msg)
	}
	return fmt.Sprintf("pnet: err_cls=0x%02x err_code=0x%02x", e.Class, e.Code)
}

func newARError(cls ErrClass, code ErrCode, msg string) *ARError {
	return &ARError{Class: cls, Code: code, Msg: msg}
}

// ErrResourceExhausted is returned (never panics) when a fixed-size pool is
// full: scheduler free list, AR table, diagnosis pool, IOCR buffers are all
// rejected rather than allowed to grow unbounded.
type ErrResourceExhausted struct {
	Resource string
}

func (e *ErrResourceExhausted) Error() string {
	return fmt.Sprintf("pnet: resource exhausted: %s", e.Resource)
}
