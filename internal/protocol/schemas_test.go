package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	opSchema := compile("op.schema.json")
	resultSchema := compile("result.schema.json")
	eventSchema := compile("event.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "identity":"gov-treasury",
	  "subscribe":true
	}`), &hello)
	validate(helloSchema, hello)

	var op any
	_ = json.Unmarshal([]byte(`{
	  "type":"OP",
	  "protocol_version":"1.0",
	  "req_id":"r-1",
	  "op":"CREATE_TENDER",
	  "params":{"description":"road works","budget":1000,"fee_paid":10}
	}`), &op)
	validate(opSchema, op)

	var result any
	_ = json.Unmarshal([]byte(`{
	  "type":"RESULT",
	  "protocol_version":"1.0",
	  "req_id":"r-1",
	  "ok":false,
	  "code":"E_INSUFFICIENT_FEE",
	  "message":"insufficient fee"
	}`), &result)
	validate(resultSchema, result)

	var event any
	_ = json.Unmarshal([]byte(`{
	  "type":"EVENT",
	  "protocol_version":"1.0",
	  "event":{"type":"TENDER_CREATED","ledger":"TENDERS","actor":"gov-treasury","seq":1,"time":1700000000,"tender_id":1}
	}`), &event)
	validate(eventSchema, event)
}

func TestSchemas_RejectUnknownOp(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "op.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var op any
	_ = json.Unmarshal([]byte(`{
	  "type":"OP",
	  "protocol_version":"1.0",
	  "req_id":"r-2",
	  "op":"SELF_DESTRUCT"
	}`), &op)
	if err := s.Validate(op); err == nil {
		t.Fatalf("expected unknown op to fail validation")
	}
}
