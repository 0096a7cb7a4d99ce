package ledger

import "errors"

// Authorization / pause / execution.
var (
	ErrUnauthorized  = errors.New("caller lacks required role")
	ErrLedgerPaused  = errors.New("ledger paused")
	ErrReentrantCall = errors.New("reentrant call during settlement")
)

// Fees and fund movement.
var (
	ErrInsufficientFee = errors.New("insufficient fee")
	ErrTransferFailed  = errors.New("transfer failed")
	ErrVaultTransfer   = errors.New("vault account accepts escrow deposits only")
)

// Tender lifecycle.
var (
	ErrInvalidTenderID = errors.New("invalid tender id")
	ErrTenderCompleted = errors.New("tender already completed")
	ErrTenderNotFound  = errors.New("tender not found")
	ErrTenderNotActive = errors.New("tender not active")
)

// Bid lifecycle.
var (
	ErrInvalidBidID = errors.New("invalid bid id")
	ErrBidProcessed = errors.New("bid already processed")
)

// Escrow lifecycle.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEscrowNotFound     = errors.New("escrow not found")
	ErrEscrowReleased     = errors.New("escrow already released")
	ErrTenderNotCompleted = errors.New("tender not completed")
	ErrInvalidRecipient   = errors.New("invalid recipient")
)

// Admin.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidLink    = errors.New("invalid ledger link")
)
