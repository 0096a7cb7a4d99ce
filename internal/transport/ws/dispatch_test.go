package ws

import (
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"tendercraft.dev/internal/ledger"
	"tendercraft.dev/internal/protocol"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := ledger.New(ledger.EngineConfig{
		PlatformWallet:  "platform",
		Admin:           "admin",
		Government:      []string{"gov"},
		Pausers:         []string{"ops"},
		GenesisBalances: map[string]uint64{"gov": 100000, "vendor": 1000},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return NewServer(eng, log.New(io.Discard, "", 0))
}

func op(t *testing.T, name string, params any) protocol.OpMsg {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return protocol.OpMsg{Type: protocol.TypeOp, ReqID: "r1", Op: name, Params: raw}
}

func TestDispatchUnknownOp(t *testing.T) {
	s := newTestServer(t)
	res := s.dispatch("gov", protocol.OpMsg{ReqID: "r1", Op: "SELF_DESTRUCT"})
	if res.OK || res.Code != protocol.ErrUnknownOp {
		t.Fatalf("result = %+v, want E_UNKNOWN_OP", res)
	}
	if res.ReqID != "r1" {
		t.Fatalf("req id not echoed: %+v", res)
	}
}

func TestDispatchCreateAndGetTender(t *testing.T) {
	s := newTestServer(t)

	res := s.dispatch("gov", op(t, protocol.OpCreateTender, protocol.CreateTenderParams{
		Description: "bridge", Budget: 1000, FeePaid: 10,
	}))
	if !res.OK {
		t.Fatalf("create failed: %+v", res)
	}
	if res.Data["tender_id"] != uint64(1) {
		t.Fatalf("tender_id = %v", res.Data["tender_id"])
	}

	res = s.dispatch("anyone", op(t, protocol.OpGetTender, protocol.GetTenderParams{TenderID: 1}))
	if !res.OK {
		t.Fatalf("get failed: %+v", res)
	}
	if res.Data["description"] != "bridge" || res.Data["budget"] != uint64(1000) {
		t.Fatalf("get data = %+v", res.Data)
	}
}

func TestDispatchMapsLedgerErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		id   string
		msg  protocol.OpMsg
		code string
	}{
		{"unauthorized", "vendor", op(t, protocol.OpCreateTender, protocol.CreateTenderParams{Budget: 1, FeePaid: 10}), protocol.ErrUnauthorized},
		{"insufficient fee", "gov", op(t, protocol.OpCreateTender, protocol.CreateTenderParams{Budget: 1, FeePaid: 3}), protocol.ErrInsufficientFee},
		{"tender not found", "vendor", op(t, protocol.OpSubmitBid, protocol.SubmitBidParams{TenderID: 9, FeePaid: 5}), protocol.ErrTenderNotFound},
		{"invalid bid id", "gov", op(t, protocol.OpAcceptBid, protocol.BidDecisionParams{TenderID: 1, BidID: 9}), protocol.ErrInvalidBidID},
		{"escrow not found", "gov", op(t, protocol.OpRefundFunds, protocol.RefundFundsParams{TenderID: 1}), protocol.ErrEscrowNotFound},
		{"vault transfer", "vendor", op(t, protocol.OpTransfer, protocol.TransferParams{To: "ESCROW_VAULT", Amount: 1}), protocol.ErrVaultTransfer},
		{"bad params", "gov", protocol.OpMsg{ReqID: "r1", Op: protocol.OpCreateTender, Params: json.RawMessage(`{"budget":`)}, protocol.ErrProtoBadRequest},
		{"bad role name", "admin", op(t, protocol.OpGrantRole, protocol.RoleParams{Identity: "x", Role: "OVERLORD"}), protocol.ErrProtoBadRequest},
	}

	// One tender so the bid and escrow cases reach their own validation.
	if res := s.dispatch("gov", op(t, protocol.OpCreateTender, protocol.CreateTenderParams{Budget: 100, FeePaid: 10})); !res.OK {
		t.Fatalf("setup tender: %+v", res)
	}

	for _, tc := range cases {
		res := s.dispatch(tc.id, tc.msg)
		if res.OK || res.Code != tc.code {
			t.Fatalf("%s: result = %+v, want code %s", tc.name, res, tc.code)
		}
		if !protocol.IsKnownCode(res.Code) {
			t.Fatalf("%s: code %q not registered", tc.name, res.Code)
		}
	}
}

func TestDispatchPauseFlow(t *testing.T) {
	s := newTestServer(t)

	if res := s.dispatch("ops", op(t, protocol.OpPause, protocol.PauseParams{Ledger: "TENDERS"})); !res.OK {
		t.Fatalf("pause: %+v", res)
	}
	res := s.dispatch("gov", op(t, protocol.OpCreateTender, protocol.CreateTenderParams{Budget: 1, FeePaid: 10}))
	if res.OK || res.Code != protocol.ErrPaused {
		t.Fatalf("create on paused ledger: %+v", res)
	}
	if res := s.dispatch("ops", op(t, protocol.OpUnpause, protocol.PauseParams{Ledger: "TENDERS"})); !res.OK {
		t.Fatalf("unpause: %+v", res)
	}
	if res := s.dispatch("gov", op(t, protocol.OpCreateTender, protocol.CreateTenderParams{Budget: 1, FeePaid: 10})); !res.OK {
		t.Fatalf("create after unpause: %+v", res)
	}
}

func TestDispatchBalanceDefaultsToCaller(t *testing.T) {
	s := newTestServer(t)
	res := s.dispatch("vendor", op(t, protocol.OpBalance, protocol.BalanceParams{}))
	if !res.OK {
		t.Fatalf("balance: %+v", res)
	}
	if res.Data["identity"] != "vendor" || res.Data["balance"] != uint64(1000) {
		t.Fatalf("balance data = %+v", res.Data)
	}

	res = s.dispatch("vendor", op(t, protocol.OpBalance, protocol.BalanceParams{Identity: "gov"}))
	if !res.OK || res.Data["balance"] != uint64(100000) {
		t.Fatalf("balance for other identity = %+v", res)
	}
}

func TestDispatchCoversAllSupportedOps(t *testing.T) {
	for _, name := range protocol.SupportedOps {
		if _, ok := opDispatch[name]; !ok {
			t.Fatalf("no handler for %s", name)
		}
	}
	if len(opDispatch) != len(protocol.SupportedOps) {
		t.Fatalf("dispatch has %d handlers, supported ops %d", len(opDispatch), len(protocol.SupportedOps))
	}
}

func TestSendWaitsOutWriterBackpressure(t *testing.T) {
	s := newTestServer(t)
	out := make(chan []byte, 1)
	out <- []byte("queued event")

	// The writer drains shortly after send starts waiting; the result must
	// still land instead of being dropped on the momentarily full queue.
	go func() {
		time.Sleep(20 * time.Millisecond)
		<-out
	}()
	s.send(out, protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version, ReqID: "r9", OK: true})

	select {
	case b := <-out:
		var res protocol.ResultMsg
		if err := json.Unmarshal(b, &res); err != nil {
			t.Fatalf("unmarshal queued result: %v", err)
		}
		if res.ReqID != "r9" || !res.OK {
			t.Fatalf("queued result = %+v", res)
		}
	default:
		t.Fatalf("result never queued")
	}
}
