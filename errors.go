package goswjdap

import (
	"fmt"
)

type DapErrorCode int

const (
	ErrorOK         DapErrorCode = 0
	ErrorWait                    = -1
	ErrorFail                    = -2
	ErrorTimeout                 = -3
	ErrorParity                  = -4
	ErrorProtocol                = -5
	ErrorModeClash               = -6
	ErrorFrame                   = -7
	ErrorBadCommand              = -8
)

type DapError struct {
	errorString  string
	DapErrorCode DapErrorCode
}

func (e *DapError) Error() string {
	return e.errorString
}

func NewDapError(msg string, code DapErrorCode) error {
	return &DapError{msg, code}
}

/**
  Converts the result of a completed command to a library error, logs
  wait/fault acknowledges as debug output so retry loops stay quiet.
*/
func (r *Result) Check() error {
	if r.Err {
		if r.Ack.ProtocolError() {
			return NewDapError(fmt.Sprintf("SWD protocol error, ack 0x%x", uint8(r.Ack)), ErrorProtocol)
		}

		return NewDapError("sticky error flag set", ErrorFail)
	}

	switch r.Ack {
	case AckNone, AckOk:
		return nil

	case AckWait:
		logger.Debug("target answered with SWD WAIT")
		return NewDapError(fmt.Sprintf("wait response (0x%x)", uint8(AckWait)), ErrorWait)

	case AckFault:
		logger.Debug("target answered with SWD FAULT")
		return NewDapError(fmt.Sprintf("fault response (0x%x)", uint8(AckFault)), ErrorFail)

	default:
		return NewDapError(fmt.Sprintf("unexpected ack code 0x%x", uint8(r.Ack)), ErrorProtocol)
	}
}
