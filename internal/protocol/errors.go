package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrUnknownOp       = "E_UNKNOWN_OP"

	// Authorization and emergency stop.
	ErrUnauthorized = "E_UNAUTHORIZED"
	ErrPaused       = "E_PAUSED"
	ErrReentrant    = "E_REENTRANT"

	// Fees and fund movement.
	ErrInsufficientFee = "E_INSUFFICIENT_FEE"
	ErrTransferFailed  = "E_TRANSFER_FAILED"
	ErrVaultTransfer   = "E_VAULT_TRANSFER"

	// Lifecycle/state.
	ErrInvalidTenderID    = "E_INVALID_TENDER_ID"
	ErrTenderCompleted    = "E_TENDER_COMPLETED"
	ErrTenderNotFound     = "E_TENDER_NOT_FOUND"
	ErrTenderNotActive    = "E_TENDER_NOT_ACTIVE"
	ErrTenderNotCompleted = "E_TENDER_NOT_COMPLETED"
	ErrInvalidBidID       = "E_INVALID_BID_ID"
	ErrBidProcessed       = "E_BID_PROCESSED"
	ErrInvalidAmount      = "E_INVALID_AMOUNT"
	ErrEscrowNotFound     = "E_ESCROW_NOT_FOUND"
	ErrEscrowReleased     = "E_ESCROW_RELEASED"
	ErrInvalidRecipient   = "E_INVALID_RECIPIENT"
	ErrInvalidAddress     = "E_INVALID_ADDRESS"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:    {},
	ErrUnknownOp:          {},
	ErrUnauthorized:       {},
	ErrPaused:             {},
	ErrReentrant:          {},
	ErrInsufficientFee:    {},
	ErrTransferFailed:     {},
	ErrVaultTransfer:      {},
	ErrInvalidTenderID:    {},
	ErrTenderCompleted:    {},
	ErrTenderNotFound:     {},
	ErrTenderNotActive:    {},
	ErrTenderNotCompleted: {},
	ErrInvalidBidID:       {},
	ErrBidProcessed:       {},
	ErrInvalidAmount:      {},
	ErrEscrowNotFound:     {},
	ErrEscrowReleased:     {},
	ErrInvalidRecipient:   {},
	ErrInvalidAddress:     {},
	ErrInternal:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
