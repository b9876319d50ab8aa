package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"config error", "E101", "Invalid tick rate", CategoryConfig},
		{"transport error", "E201", "WebSocket upgrade failed", CategoryTransport},
		{"session error", "E300", "Session limit reached", CategorySession},
		{"unknown error code", "E999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestHostError_Error(t *testing.T) {
	err := New("E300")
	if got, want := err.Error(), "E300: Session limit reached"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("E200").Wrap(fmt.Errorf("address in use"))
	if got, want := wrapped.Error(), "E200: Listener failed: address in use"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &HostError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestHostError_IsAndUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := fmt.Errorf("serve: %w", New("E200").Wrap(cause))

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if !stderrors.Is(err, New("E200")) {
		t.Error("errors.Is(err, E200) = false")
	}
	if stderrors.Is(err, New("E201")) {
		t.Error("errors.Is(err, E201) = true")
	}
	if CodeOf(err) != "E200" {
		t.Errorf("CodeOf() = %q, want E200", CodeOf(err))
	}
	if CodeOf(cause) != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", CodeOf(cause))
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E100") != nil {
		t.Error("FromError(nil) should return nil")
	}

	he := New("E101")
	if got := FromError(fmt.Errorf("wrap: %w", he), "E100"); got != he {
		t.Errorf("FromError() = %v, want the existing HostError", got)
	}

	plain := stderrors.New("plain")
	got := FromError(plain, "E100")
	if got.Code != "E100" || got.Wrapped != plain {
		t.Errorf("FromError() = %+v", got)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "unknown command %q", "paint")
	if err.Message != `unknown command "paint"` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E101").
		WithDetailf("tick rate %q must be positive", "0").
		Wrap(stderrors.New("parse failed"))
	out := err.Format()

	for _, want := range []string{
		"ERROR E101: Invalid tick rate",
		`tick rate "0" must be positive`,
		"Cause: parse failed",
		"Hint: Set SCRIBBLE_TICK_RATE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() contains ANSI codes with colors disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	got := New("E102").WithDetail("bad port").FormatCompact()
	if want := "E102: Invalid listen address (bad port)"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Fprint(plain) = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestRegistryCodes(t *testing.T) {
	codes := Codes()
	if len(codes) == 0 {
		t.Fatal("Codes() is empty")
	}
	for _, c := range codes {
		tmpl, ok := Lookup(c)
		if !ok || tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template %s = %+v", c, tmpl)
		}
	}
}
