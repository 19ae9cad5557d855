package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"cropcraft.ai/internal/protocol"
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

	reject := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err == nil {
			t.Fatalf("expected validation failure")
		}
	}

	requestSchema := compile("request.schema.json")
	responseSchema := compile("response.schema.json")
	greetingSchema := compile("greeting.schema.json")

	var req any
	_ = json.Unmarshal([]byte(`{
	  "action":"init",
	  "date":"0501",
	  "crop":"wheat",
	  "fertilizer":"medium",
	  "irrigation":"drip",
	  "lat":51.97,
	  "lon":5.66
	}`), &req)
	validate(requestSchema, req)

	var badReq any
	_ = json.Unmarshal([]byte(`{"action":"harvest"}`), &badReq)
	reject(requestSchema, badReq)

	var resp any
	_ = json.Unmarshal([]byte(`{
	  "ok":true,
	  "result":{"tick":3,"steps":1,"day":"2024-05-03","finished":false}
	}`), &resp)
	validate(responseSchema, resp)

	var failure any
	_ = json.Unmarshal([]byte(`{"ok":false,"error":"boom","code":"E_BAD_REQUEST"}`), &failure)
	validate(responseSchema, failure)

	var missingError any
	_ = json.Unmarshal([]byte(`{"ok":false}`), &missingError)
	reject(responseSchema, missingError)

	var greeting any
	raw, err := json.Marshal(protocol.Greeting{OK: true, Message: "ready", SessionID: "s-1"})
	if err != nil {
		t.Fatalf("marshal greeting: %v", err)
	}
	_ = json.Unmarshal(raw, &greeting)
	validate(greetingSchema, greeting)
}
