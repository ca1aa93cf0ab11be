package multisig

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/arnac-io/multisig/pkg/core"
)

// Evaluation is the state machine's view of a transaction.
type Evaluation struct {
	Status    core.MultisigTxStatus
	Approvers []core.AccountID
	// Cancelled is set when the depositor's cancellation is among the events.
	Cancelled bool
	// FinalApprovalNext reports that the next approval executes the call.
	FinalApprovalNext bool
}

func (e Evaluation) Approved() int {
	return len(e.Approvers)
}

// Evaluate derives the status of tx from its reconciled events. A terminal
// status is returned unchanged. ESTABLISHED behaves like SIGNING and is kept
// as a label until the transaction finishes.
func Evaluate(tx core.MultisigTransaction, state ReconciledState) Evaluation {
	approvers := distinctApprovers(tx, state)
	eval := Evaluation{
		Status:    tx.Status,
		Approvers: approvers,
		Cancelled: cancelledByDepositor(tx, state),
	}
	if eval.Status == "" {
		eval.Status = core.StatusSigning
	}
	if eval.Status.IsTerminal() {
		return eval
	}
	switch {
	case eval.Cancelled:
		eval.Status = core.StatusCancelled
	case tx.Threshold > 0 && len(approvers) >= int(tx.Threshold):
		eval.Status = core.StatusExecuted
	default:
		eval.FinalApprovalNext = finalApproval(tx, len(approvers))
	}
	return eval
}

// IsFinalApproval reports whether the next approval of tx executes the call:
// exactly threshold-1 signatories have approved and the call data is known.
func IsFinalApproval(tx core.MultisigTransaction, state ReconciledState) bool {
	if tx.Status.IsTerminal() {
		return false
	}
	return finalApproval(tx, len(distinctApprovers(tx, state)))
}

func finalApproval(tx core.MultisigTransaction, approved int) bool {
	return tx.Threshold > 0 && approved == int(tx.Threshold)-1 && tx.HasCallData()
}

// CanReject reports whether actor may cancel tx.
func CanReject(tx core.MultisigTransaction, actor core.AccountID) bool {
	return tx.Status == core.StatusSigning && actor == tx.Depositor
}

// distinctApprovers returns the signatories with a SIGNED event, ordered as
// their approvals. Approvals from accounts outside the configured set are
// ignored when the set is known. The depositor of an ESTABLISHED round
// approved on chain when initiating it and comes first even without a local
// event.
func distinctApprovers(tx core.MultisigTransaction, state ReconciledState) []core.AccountID {
	members := mapset.NewThreadUnsafeSet[core.AccountID](tx.SignatoryIDs()...)
	approvers := mapset.NewThreadUnsafeSet[core.AccountID]()
	result := make([]core.AccountID, 0, len(state.Approvals)+1)
	if implicitDepositorApproval(tx, state) && (members.Cardinality() == 0 || members.Contains(tx.Depositor)) {
		approvers.Add(tx.Depositor)
		result = append(result, tx.Depositor)
	}
	for _, e := range state.Approvals {
		if members.Cardinality() > 0 && !members.Contains(e.AccountID) {
			continue
		}
		if approvers.Add(e.AccountID) {
			result = append(result, e.AccountID)
		}
	}
	return result
}

func implicitDepositorApproval(tx core.MultisigTransaction, state ReconciledState) bool {
	return tx.Status == core.StatusEstablished && !tx.Depositor.IsZero() && state.InitiatingEvent == nil
}

// cancelledByDepositor accepts any cancellation when the depositor is not
// known locally; the chain only reports cancellations by the depositor.
func cancelledByDepositor(tx core.MultisigTransaction, state ReconciledState) bool {
	for _, e := range state.Cancellations {
		if tx.Depositor.IsZero() || e.AccountID == tx.Depositor {
			return true
		}
	}
	return false
}

// ApplyResult records the outcome of signer's extrinsic. It returns the
// updated transaction and the event to append. The status of a finished
// transaction never changes.
func ApplyResult(tx core.MultisigTransaction, signer core.AccountID, action Action, res core.ExtrinsicResult, at time.Time) (core.MultisigTransaction, core.MultisigEvent) {
	status := resultStatus(action, res)
	event := core.NewEvent(tx.Key(), signer, status, at)
	if !res.ExtrinsicHash.IsZero() {
		hash := res.ExtrinsicHash
		event.ExtrinsicHash = &hash
	}
	if res.Timepoint.Height > 0 {
		height, index := res.Timepoint.Height, res.Timepoint.Index
		event.EventBlock = &height
		event.EventIndex = &index
	}
	if tx.Deposit == nil && res.Deposit != nil {
		deposit := *res.Deposit
		tx.Deposit = &deposit
	}
	if tx.Status.IsTerminal() || !res.Executed {
		return tx, event
	}
	switch {
	case action == ActionReject:
		tx.Status = core.StatusCancelled
	case res.IsFinalApprove && res.MultisigError != "":
		tx.Status = core.StatusError
	case res.IsFinalApprove:
		tx.Status = core.StatusExecuted
	}
	return tx, event
}

func resultStatus(action Action, res core.ExtrinsicResult) core.SigningStatus {
	switch {
	case action == ActionReject && res.Executed:
		return core.SigningCancelled
	case action == ActionReject:
		return core.SigningErrorCancelled
	case res.Executed:
		return core.SigningSigned
	default:
		return core.SigningErrorSigned
	}
}

// DispatchError returns the chain's error for the wrapped call, if any.
func DispatchError(res core.ExtrinsicResult) error {
	if !res.Executed || !res.IsFinalApprove || res.MultisigError == "" {
		return nil
	}
	return &core.ChainDispatchError{Message: res.MultisigError}
}
