package protocol

// Operation names carried in OpMsg.Op.
const (
	OpCreateTender = "CREATE_TENDER"
	OpMarkComplete = "MARK_COMPLETE"
	OpGetTender    = "GET_TENDER"
	OpTenderCount  = "TENDER_COUNT"

	OpSubmitBid  = "SUBMIT_BID"
	OpAcceptBid  = "ACCEPT_BID"
	OpRejectBid  = "REJECT_BID"
	OpGetBid     = "GET_BID"
	OpTenderBids = "TENDER_BIDS"
	OpVendorBids = "VENDOR_BIDS"

	OpDepositFunds   = "DEPOSIT_FUNDS"
	OpReleaseFunds   = "RELEASE_FUNDS"
	OpRefundFunds    = "REFUND_FUNDS"
	OpEscrowBalance  = "ESCROW_BALANCE"
	OpEscrowBalances = "ESCROW_BALANCES"

	OpTransfer = "TRANSFER"
	OpBalance  = "BALANCE"

	OpSetTenderFee      = "SET_TENDER_FEE"
	OpSetBidFee         = "SET_BID_FEE"
	OpSetPlatformWallet = "SET_PLATFORM_WALLET"
	OpGrantRole         = "GRANT_ROLE"
	OpRevokeRole        = "REVOKE_ROLE"
	OpPause             = "PAUSE"
	OpUnpause           = "UNPAUSE"
	OpRecoverSurplus    = "RECOVER_SURPLUS"
)

// SupportedOps is the complete dispatch surface; anything outside it is
// rejected explicitly rather than ignored.
var SupportedOps = []string{
	OpCreateTender,
	OpMarkComplete,
	OpGetTender,
	OpTenderCount,
	OpSubmitBid,
	OpAcceptBid,
	OpRejectBid,
	OpGetBid,
	OpTenderBids,
	OpVendorBids,
	OpDepositFunds,
	OpReleaseFunds,
	OpRefundFunds,
	OpEscrowBalance,
	OpEscrowBalances,
	OpTransfer,
	OpBalance,
	OpSetTenderFee,
	OpSetBidFee,
	OpSetPlatformWallet,
	OpGrantRole,
	OpRevokeRole,
	OpPause,
	OpUnpause,
	OpRecoverSurplus,
}

type CreateTenderParams struct {
	Description        string `json:"description"`
	Budget             uint64 `json:"budget"`
	RequirementsHandle string `json:"requirements_handle,omitempty"`
	FeePaid            uint64 `json:"fee_paid"`
}

type MarkCompleteParams struct {
	TenderID uint64 `json:"tender_id"`
}

type GetTenderParams struct {
	TenderID uint64 `json:"tender_id"`
	Details  bool   `json:"details,omitempty"`
}

type SubmitBidParams struct {
	TenderID       uint64 `json:"tender_id"`
	Price          uint64 `json:"price"`
	Description    string `json:"description"`
	ProposalHandle string `json:"proposal_handle,omitempty"`
	FeePaid        uint64 `json:"fee_paid"`
}

type BidDecisionParams struct {
	TenderID uint64 `json:"tender_id"`
	BidID    uint64 `json:"bid_id"`
}

type GetBidParams struct {
	BidID uint64 `json:"bid_id"`
}

type TenderBidsParams struct {
	TenderID uint64 `json:"tender_id"`
}

type VendorBidsParams struct {
	Vendor string `json:"vendor"`
}

type DepositFundsParams struct {
	TenderID uint64 `json:"tender_id"`
	Amount   uint64 `json:"amount"`
}

type ReleaseFundsParams struct {
	TenderID  uint64 `json:"tender_id"`
	Recipient string `json:"recipient"`
}

type RefundFundsParams struct {
	TenderID uint64 `json:"tender_id"`
}

type EscrowBalancesParams struct {
	TenderIDs []uint64 `json:"tender_ids"`
}

type TransferParams struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BalanceParams struct {
	Identity string `json:"identity"`
}

type SetFeeParams struct {
	Fee uint64 `json:"fee"`
}

type SetWalletParams struct {
	Wallet string `json:"wallet"`
}

type RoleParams struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

type PauseParams struct {
	Ledger string `json:"ledger"`
}

type RecoverSurplusParams struct {
	Recipient string `json:"recipient"`
}
