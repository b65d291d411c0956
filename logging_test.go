package fence

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func TestSetLogger_signalTransition(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(&buf),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelTrace),
	)
	SetLogger(logger.Logger())
	defer SetLogger(nil)

	f := New(nil)
	defer f.Put()
	var cb Callback
	if err := f.AddCallback(&cb, func(*Fence, *Callback) {}); err != nil {
		t.Fatal(err)
	}
	if err := f.Signal(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, `fence: signaled`) {
		t.Errorf(`missing signal transition in output: %q`, out)
	}
	if !strings.Contains(out, `"callbacks"`) {
		t.Errorf(`missing callback count in output: %q`, out)
	}
}

func TestSetLogger_enableTransition(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(&buf),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelTrace),
	)
	SetLogger(logger.Logger())
	defer SetLogger(nil)

	var f Fence
	Init(&f, &Ops{EnableSignaling: func(*Fence) bool { return true }}, nil)
	f.EnableSWSignaling()
	if !strings.Contains(buf.String(), `fence: enabling signaling`) {
		t.Errorf(`missing enable transition in output: %q`, buf.String())
	}
	_ = f.Signal()
	f.Put()
}

func TestSetLogger_nilDisables(t *testing.T) {
	SetLogger(nil)
	f := New(nil)
	defer f.Put()
	// must not panic with logging disabled
	if err := f.Signal(); err != nil {
		t.Fatal(err)
	}
}
