package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"tendercraft.dev/internal/ledger"
	"tendercraft.dev/internal/protocol"
)

type opHandler func(s *Server, identity string, params json.RawMessage) (map[string]any, error)

var opDispatch = map[string]opHandler{
	protocol.OpCreateTender: handleCreateTender,
	protocol.OpMarkComplete: handleMarkComplete,
	protocol.OpGetTender:    handleGetTender,
	protocol.OpTenderCount:  handleTenderCount,

	protocol.OpSubmitBid:  handleSubmitBid,
	protocol.OpAcceptBid:  handleAcceptBid,
	protocol.OpRejectBid:  handleRejectBid,
	protocol.OpGetBid:     handleGetBid,
	protocol.OpTenderBids: handleTenderBids,
	protocol.OpVendorBids: handleVendorBids,

	protocol.OpDepositFunds:   handleDepositFunds,
	protocol.OpReleaseFunds:   handleReleaseFunds,
	protocol.OpRefundFunds:    handleRefundFunds,
	protocol.OpEscrowBalance:  handleEscrowBalance,
	protocol.OpEscrowBalances: handleEscrowBalances,

	protocol.OpTransfer: handleTransfer,
	protocol.OpBalance:  handleBalance,

	protocol.OpSetTenderFee:      handleSetTenderFee,
	protocol.OpSetBidFee:         handleSetBidFee,
	protocol.OpSetPlatformWallet: handleSetPlatformWallet,
	protocol.OpGrantRole:         handleGrantRole,
	protocol.OpRevokeRole:        handleRevokeRole,
	protocol.OpPause:             handlePause,
	protocol.OpUnpause:           handleUnpause,
	protocol.OpRecoverSurplus:    handleRecoverSurplus,
}

func init() {
	if err := validateDispatchMap("opDispatch", opDispatch, protocol.SupportedOps); err != nil {
		panic(err)
	}
}

func validateDispatchMap[T any](name string, handlers map[string]T, supported []string) error {
	allowed := make(map[string]struct{}, len(supported))
	for _, k := range supported {
		if k == "" {
			return fmt.Errorf("%s: empty supported key", name)
		}
		if _, ok := allowed[k]; ok {
			return fmt.Errorf("%s: duplicate supported key %q", name, k)
		}
		allowed[k] = struct{}{}
	}
	if len(handlers) != len(allowed) {
		return fmt.Errorf("%s size mismatch: got=%d want=%d", name, len(handlers), len(allowed))
	}
	for k := range handlers {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("%s has unsupported key %q", name, k)
		}
	}
	for k := range allowed {
		if _, ok := handlers[k]; !ok {
			return fmt.Errorf("%s missing key %q", name, k)
		}
	}
	return nil
}

// dispatch routes one OP to its handler. Anything outside the supported
// surface is rejected explicitly, never silently accepted.
func (s *Server) dispatch(identity string, op protocol.OpMsg) protocol.ResultMsg {
	h, ok := opDispatch[op.Op]
	if !ok {
		return resultErr(op.ReqID, protocol.ErrUnknownOp, fmt.Sprintf("unknown op %q", op.Op))
	}
	data, err := h(s, identity, op.Params)
	if err != nil {
		return resultErr(op.ReqID, codeFor(err), err.Error())
	}
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           op.ReqID,
		OK:              true,
		Data:            data,
	}
}

func resultErr(reqID, code, message string) protocol.ResultMsg {
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		OK:              false,
		Code:            code,
		Message:         message,
	}
}

var errBadParams = errors.New("bad op params")

func decode[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, errBadParams
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, errBadParams
	}
	return v, nil
}

// codeFor maps ledger sentinels to wire codes.
func codeFor(err error) string {
	switch {
	case errors.Is(err, errBadParams):
		return protocol.ErrProtoBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		return protocol.ErrUnauthorized
	case errors.Is(err, ledger.ErrLedgerPaused):
		return protocol.ErrPaused
	case errors.Is(err, ledger.ErrReentrantCall):
		return protocol.ErrReentrant
	case errors.Is(err, ledger.ErrInsufficientFee):
		return protocol.ErrInsufficientFee
	case errors.Is(err, ledger.ErrTransferFailed):
		return protocol.ErrTransferFailed
	case errors.Is(err, ledger.ErrVaultTransfer):
		return protocol.ErrVaultTransfer
	case errors.Is(err, ledger.ErrInvalidTenderID):
		return protocol.ErrInvalidTenderID
	case errors.Is(err, ledger.ErrTenderCompleted):
		return protocol.ErrTenderCompleted
	case errors.Is(err, ledger.ErrTenderNotFound):
		return protocol.ErrTenderNotFound
	case errors.Is(err, ledger.ErrTenderNotActive):
		return protocol.ErrTenderNotActive
	case errors.Is(err, ledger.ErrTenderNotCompleted):
		return protocol.ErrTenderNotCompleted
	case errors.Is(err, ledger.ErrInvalidBidID):
		return protocol.ErrInvalidBidID
	case errors.Is(err, ledger.ErrBidProcessed):
		return protocol.ErrBidProcessed
	case errors.Is(err, ledger.ErrInvalidAmount):
		return protocol.ErrInvalidAmount
	case errors.Is(err, ledger.ErrEscrowNotFound):
		return protocol.ErrEscrowNotFound
	case errors.Is(err, ledger.ErrEscrowReleased):
		return protocol.ErrEscrowReleased
	case errors.Is(err, ledger.ErrInvalidRecipient):
		return protocol.ErrInvalidRecipient
	case errors.Is(err, ledger.ErrInvalidAddress), errors.Is(err, ledger.ErrInvalidLink):
		return protocol.ErrInvalidAddress
	}
	return protocol.ErrInternal
}

func handleCreateTender(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.CreateTenderParams](params)
	if err != nil {
		return nil, err
	}
	id, err := s.eng.Tenders.CreateTender(identity, p.Description, p.Budget, p.RequirementsHandle, p.FeePaid)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tender_id": id}, nil
}

func handleMarkComplete(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.MarkCompleteParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Tenders.MarkComplete(identity, p.TenderID)
}

func handleGetTender(s *Server, _ string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.GetTenderParams](params)
	if err != nil {
		return nil, err
	}
	if p.Details {
		rec, err := s.eng.Tenders.Tender(p.TenderID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"tender_id":           rec.ID,
			"description":         rec.Description,
			"budget":              rec.Budget,
			"requirements_handle": rec.RequirementsHandle,
			"completed":           rec.Completed,
			"bid_ids":             rec.BidIDs,
			"creator":             rec.Creator,
			"created_at":          rec.CreatedAt.Unix(),
		}, nil
	}
	info, err := s.eng.Tenders.TenderInfo(p.TenderID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"tender_id":   info.ID,
		"description": info.Description,
		"budget":      info.Budget,
		"completed":   info.Completed,
		"creator":     info.Creator,
		"bid_count":   info.BidCount,
		"created_at":  info.CreatedAt.Unix(),
	}, nil
}

func handleTenderCount(s *Server, _ string, _ json.RawMessage) (map[string]any, error) {
	return map[string]any{"count": s.eng.Tenders.TenderCount()}, nil
}

func handleSubmitBid(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.SubmitBidParams](params)
	if err != nil {
		return nil, err
	}
	id, err := s.eng.Bids.SubmitBid(identity, p.TenderID, p.Price, p.Description, p.ProposalHandle, p.FeePaid)
	if err != nil {
		return nil, err
	}
	return map[string]any{"bid_id": id}, nil
}

func handleAcceptBid(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.BidDecisionParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Bids.AcceptBid(identity, p.TenderID, p.BidID)
}

func handleRejectBid(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.BidDecisionParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Bids.RejectBid(identity, p.TenderID, p.BidID)
}

func handleGetBid(s *Server, _ string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.GetBidParams](params)
	if err != nil {
		return nil, err
	}
	rec, err := s.eng.Bids.Bid(p.BidID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"bid_id":          rec.ID,
		"tender_id":       rec.TenderID,
		"vendor":          rec.Vendor,
		"price":           rec.Price,
		"description":     rec.Description,
		"proposal_handle": rec.ProposalHandle,
		"status":          string(rec.Status),
		"submitted_at":    rec.SubmittedAt.Unix(),
	}, nil
}

func handleTenderBids(s *Server, _ string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.TenderBidsParams](params)
	if err != nil {
		return nil, err
	}
	ids, err := s.eng.Bids.TenderBids(p.TenderID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"bid_ids": ids}, nil
}

func handleVendorBids(s *Server, _ string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.VendorBidsParams](params)
	if err != nil {
		return nil, err
	}
	return map[string]any{"bid_ids": s.eng.Bids.VendorBids(p.Vendor)}, nil
}

func handleDepositFunds(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.DepositFundsParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Vault.DepositFunds(identity, p.TenderID, p.Amount)
}

func handleReleaseFunds(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.ReleaseFundsParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Vault.ReleaseFunds(identity, p.TenderID, p.Recipient)
}

func handleRefundFunds(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.RefundFundsParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Vault.RefundFunds(identity, p.TenderID)
}

func handleEscrowBalance(s *Server, _ string, _ json.RawMessage) (map[string]any, error) {
	return map[string]any{"total": s.eng.Vault.TotalEscrowBalance()}, nil
}

func handleEscrowBalances(s *Server, _ string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.EscrowBalancesParams](params)
	if err != nil {
		return nil, err
	}
	return map[string]any{"balances": s.eng.Vault.EscrowBalances(p.TenderIDs)}, nil
}

func handleTransfer(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.TransferParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Transfer(identity, p.To, p.Amount)
}

func handleBalance(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	who := identity
	if len(params) > 0 {
		if p, err := decode[protocol.BalanceParams](params); err == nil && p.Identity != "" {
			who = p.Identity
		}
	}
	return map[string]any{"identity": who, "balance": s.eng.BalanceOf(who)}, nil
}

func handleSetTenderFee(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.SetFeeParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Tenders.SetServiceFee(identity, p.Fee)
}

func handleSetBidFee(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.SetFeeParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Bids.SetServiceFee(identity, p.Fee)
}

func handleSetPlatformWallet(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.SetWalletParams](params)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Tenders.SetPlatformWallet(identity, p.Wallet); err != nil {
		return nil, err
	}
	return nil, s.eng.Bids.SetPlatformWallet(identity, p.Wallet)
}

func roleByName(name string) (ledger.Role, bool) {
	switch name {
	case "GOVERNMENT":
		return ledger.RoleGovernment, true
	case "ADMIN":
		return ledger.RoleAdmin, true
	case "PAUSER":
		return ledger.RolePauser, true
	}
	return 0, false
}

func handleGrantRole(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.RoleParams](params)
	if err != nil {
		return nil, err
	}
	r, ok := roleByName(p.Role)
	if !ok {
		return nil, errBadParams
	}
	return nil, s.eng.GrantRole(identity, p.Identity, r)
}

func handleRevokeRole(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.RoleParams](params)
	if err != nil {
		return nil, err
	}
	r, ok := roleByName(p.Role)
	if !ok {
		return nil, errBadParams
	}
	return nil, s.eng.RevokeRole(identity, p.Identity, r)
}

func handlePause(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.PauseParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Pause(identity, p.Ledger)
}

func handleUnpause(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.PauseParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Unpause(identity, p.Ledger)
}

func handleRecoverSurplus(s *Server, identity string, params json.RawMessage) (map[string]any, error) {
	p, err := decode[protocol.RecoverSurplusParams](params)
	if err != nil {
		return nil, err
	}
	return nil, s.eng.Vault.RecoverSurplus(identity, p.Recipient)
}
