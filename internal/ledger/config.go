package ledger

import "time"

type EngineConfig struct {
	// Service fees collected on tender creation and bid submission.
	// Each ledger keeps its own schedule.
	TenderServiceFee uint64
	BidServiceFee    uint64

	// PlatformWallet receives collected fees. Required.
	PlatformWallet string

	// Genesis role grants. Admin must not be empty; it may later grant or
	// revoke any role, including its own.
	Admin      string
	Government []string
	Pausers    []string

	// Opening balances, applied once at construction.
	GenesisBalances map[string]uint64

	// Now is the clock used for record timestamps. Defaults to UTC wall time.
	Now func() time.Time

	// Settlement is the optional external fund-movement hook. When nil,
	// transfers settle against the in-process balance book only.
	Settlement SettlementHook

	// Registry is the optional document-handle lookup collaborator.
	Registry DocRegistry
}

func (c *EngineConfig) applyDefaults() {
	if c.TenderServiceFee == 0 {
		c.TenderServiceFee = 10
	}
	if c.BidServiceFee == 0 {
		c.BidServiceFee = 5
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
}
