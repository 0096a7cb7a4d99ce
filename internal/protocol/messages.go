package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Identity        string     `json:"identity"`
	Subscribe       bool       `json:"subscribe,omitempty"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Identity        string       `json:"identity"`
	SessionID       string       `json:"session_id,omitempty"`
	Params          LedgerParams `json:"ledger_params"`
}

type LedgerParams struct {
	TenderServiceFee uint64 `json:"tender_service_fee"`
	BidServiceFee    uint64 `json:"bid_service_fee"`
	TenderCount      uint64 `json:"tender_count"`
	BidCount         uint64 `json:"bid_count"`
}

// OP (client -> server). Params shape depends on Op.
type OpMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ReqID           string          `json:"req_id"`
	Op              string          `json:"op"`
	Params          json.RawMessage `json:"params,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ReqID           string         `json:"req_id"`
	OK              bool           `json:"ok"`
	Code            string         `json:"code,omitempty"`
	Message         string         `json:"message,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
}

// EVENT (server -> subscribed clients)
type EventMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Event           map[string]any `json:"event"`
}
