package ledger

import (
	"fmt"
	"sync"
	"time"
)

// Ledger names used by the pause switches and audit trail.
const (
	LedgerTenders = "TENDERS"
	LedgerBids    = "BIDS"
	LedgerEscrow  = "ESCROW"
)

// escrowVaultAccount is the balance-book account custodying deposited budgets.
// It is not reachable through the generic transfer path.
const escrowVaultAccount = "ESCROW_VAULT"

// core is the shared consistency domain. A single mutex serializes every
// top-level operation across all three ledgers, so check-then-act sequences
// spanning ledgers (bid submission validating a tender, escrow gating on
// completion) never interleave.
type core struct {
	mu sync.Mutex

	now func() time.Time

	roles  map[string]Role
	paused map[string]bool

	accounts map[string]uint64
	hook     SettlementHook
	settling bool

	auditLog AuditLogger
	notifier Notifier
	auditSeq uint64
}

// Engine composes the three ledgers over one core. The bid ledger's linking
// capability into the tender ledger is wired here, at construction, rather
// than through any self-granted permission.
type Engine struct {
	core *core

	Tenders *TenderLedger
	Bids    *BidLedger
	Vault   *EscrowVault

	registry DocRegistry
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// Notifier receives the observable lifecycle events. Delivery is
// at-least-once from the consumer's point of view; the engine emits each
// event exactly once and sinks may replay.
type Notifier interface {
	Notify(ev Event)
}

// Event is a loosely-typed notification payload, one "type" key plus fields.
type Event map[string]any

type AuditEntry struct {
	Seq    uint64         `json:"seq"`
	Time   time.Time      `json:"time"`
	Actor  string         `json:"actor"`
	Ledger string         `json:"ledger"`
	Action string         `json:"action"`
	Detail map[string]any `json:"detail,omitempty"`
}

func New(cfg EngineConfig) (*Engine, error) {
	cfg.applyDefaults()
	if cfg.PlatformWallet == "" {
		return nil, fmt.Errorf("ledger: %w: platform wallet", ErrInvalidAddress)
	}
	if cfg.Admin == "" {
		return nil, fmt.Errorf("ledger: %w: admin", ErrInvalidAddress)
	}

	c := &core{
		now:      cfg.Now,
		roles:    map[string]Role{},
		paused:   map[string]bool{},
		accounts: map[string]uint64{},
		hook:     cfg.Settlement,
	}
	c.roles[cfg.Admin] |= RoleAdmin
	for _, id := range cfg.Government {
		c.roles[id] |= RoleGovernment
	}
	for _, id := range cfg.Pausers {
		c.roles[id] |= RolePauser
	}
	for id, bal := range cfg.GenesisBalances {
		c.accounts[id] = bal
	}

	tenders := &TenderLedger{
		core:       c,
		serviceFee: cfg.TenderServiceFee,
		payee:      cfg.PlatformWallet,
	}
	bids := &BidLedger{
		core:       c,
		serviceFee: cfg.BidServiceFee,
		payee:      cfg.PlatformWallet,
		tenders:    tenders,
		link:       tenders.grantLinkCap(),
	}
	vault := &EscrowVault{
		core:    c,
		tenders: tenders,
		escrows: map[uint64]*Escrow{},
	}

	return &Engine{
		core:     c,
		Tenders:  tenders,
		Bids:     bids,
		Vault:    vault,
		registry: cfg.Registry,
	}, nil
}

// SetSinks attaches the audit and notification sinks. May be called once
// during wiring, before the engine starts taking operations.
func (e *Engine) SetSinks(audit AuditLogger, notifier Notifier) {
	e.core.mu.Lock()
	defer e.core.mu.Unlock()
	e.core.auditLog = audit
	e.core.notifier = notifier
}

// Registry returns the document-handle collaborator, which may be nil.
func (e *Engine) Registry() DocRegistry { return e.registry }

// guardMutation runs the checks every mutating operation performs before any
// other validation: reentrancy, pause, then role. Caller must hold mu.
func (c *core) guardMutation(caller, ledgerName string, required Role) error {
	if c.settling {
		return ErrReentrantCall
	}
	if c.paused[ledgerName] {
		return ErrLedgerPaused
	}
	if required != 0 && !c.hasRole(caller, required) {
		return ErrUnauthorized
	}
	return nil
}

// audit records an audit entry and mirrors it as a notification event.
// Caller must hold mu.
func (c *core) audit(actor, ledgerName, action string, detail map[string]any) {
	c.auditSeq++
	entry := AuditEntry{
		Seq:    c.auditSeq,
		Time:   c.now(),
		Actor:  actor,
		Ledger: ledgerName,
		Action: action,
		Detail: detail,
	}
	if c.auditLog != nil {
		_ = c.auditLog.WriteAudit(entry)
	}
	if c.notifier != nil {
		ev := Event{"type": action, "ledger": ledgerName, "actor": actor, "seq": entry.Seq, "time": entry.Time.Unix()}
		for k, v := range detail {
			ev[k] = v
		}
		c.notifier.Notify(ev)
	}
}
