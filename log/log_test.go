package log

import (
	"bytes"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var debugBuf, infoBuf, errorBuf bytes.Buffer
	DebugLogger.SetOutput(&debugBuf)
	InfoLogger.SetOutput(&infoBuf)
	ErrorLogger.SetOutput(&errorBuf)
	t.Cleanup(func() {
		SuppressOutput(false)
		SetDebug(false)
	})
	return &debugBuf, &infoBuf, &errorBuf
}

func TestDebugfDisabledByDefault(t *testing.T) {
	debugBuf, _, _ := captureOutput(t)

	SetDebug(false)
	Debugf("invisible %d", 1)
	if debugBuf.Len() != 0 {
		t.Fatalf("unexpected debug output %q", debugBuf.String())
	}

	SetDebug(true)
	Debugf("visible %d", 2)
	if !strings.Contains(debugBuf.String(), "visible 2") {
		t.Fatalf("missing debug output; got %q", debugBuf.String())
	}
}

func TestInfofErrorf(t *testing.T) {
	_, infoBuf, errorBuf := captureOutput(t)

	Infof("started on %q", ":8080")
	if !strings.Contains(infoBuf.String(), `started on ":8080"`) {
		t.Fatalf("missing info output; got %q", infoBuf.String())
	}

	Errorf("fetch failed: %s", "timeout")
	if !strings.Contains(errorBuf.String(), "fetch failed: timeout") {
		t.Fatalf("missing error output; got %q", errorBuf.String())
	}
}

func TestSuppressOutput(t *testing.T) {
	_, infoBuf, _ := captureOutput(t)

	SuppressOutput(true)
	Infof("hidden")
	if strings.Contains(infoBuf.String(), "hidden") {
		t.Fatalf("unexpected output while suppressed: %q", infoBuf.String())
	}
}
