package bridge

import (
	"testing"

	v8 "github.com/tommie/v8go"
)

func TestToHost_SymbolDescription(t *testing.T) {
	iso := v8.NewIsolate()
	defer iso.Dispose()
	ctx := v8.NewContext(iso)
	defer ctx.Close()

	val, err := ctx.RunScript("Symbol('widget-check')", "symbol.js")
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}

	host, err := ToHost(ctx, val)
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	m, ok := host.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", host)
	}
	if m["__type"] != TypeSymbol {
		t.Fatalf("expected __type %q, got %v", TypeSymbol, m["__type"])
	}
	if m["description"] != "widget-check" {
		t.Fatalf("expected description %q, got %v", "widget-check", m["description"])
	}
}

func TestToHost_SymbolWithoutDescription(t *testing.T) {
	iso := v8.NewIsolate()
	defer iso.Dispose()
	ctx := v8.NewContext(iso)
	defer ctx.Close()

	val, err := ctx.RunScript("Symbol()", "symbol.js")
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}

	host, err := ToHost(ctx, val)
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	m := host.(map[string]interface{})
	if m["description"] != "" {
		t.Fatalf("expected empty description, got %v", m["description"])
	}
}
