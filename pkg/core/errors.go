package core

import (
	"errors"
	"fmt"
)

var ErrEntityNotFound = errors.New("entity not found")

var (
	ErrUnknownCallKind    = errors.New("unknown call kind")
	ErrMissingCallData    = errors.New("call data is required for the final approval")
	ErrMissingCallHash    = errors.New("neither call data nor call hash is known")
	ErrCallHashMismatch   = errors.New("call data does not match call hash")
	ErrUnauthorizedSigner = errors.New("signer is not a signatory of the multisig account")
	ErrUnauthorizedCancel = errors.New("only the depositor may cancel a multisig transaction")
	ErrStaleTimepoint     = errors.New("timepoint does not match the initiating event")
	ErrMissingTimepoint   = errors.New("timepoint is required")
	ErrInvalidThreshold   = errors.New("invalid multisig threshold")
	ErrCallTooDeep        = errors.New("call nesting is too deep")
	ErrTerminalStatus     = errors.New("multisig transaction is already finished")
)

// ChainDispatchError carries the raw error string reported by the chain for
// the wrapped call. The multisig extrinsic itself was included.
type ChainDispatchError struct {
	Message string
}

func (e *ChainDispatchError) Error() string {
	return fmt.Sprintf("chain dispatch error: %s", e.Message)
}
