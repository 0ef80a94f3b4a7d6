package provider

import (
	"context"
	"errors"
	"testing"
)

func stubFactory(name string) Factory {
	return func(cfg Config) (Adapter, error) {
		return Func(func(ctx context.Context, req Request) (*Response, error) {
			return &Response{Text: name, Model: req.Model}, nil
		}), nil
	}
}

func TestRegisterAndNew(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register("stub", stubFactory("stub"))

	if !IsRegistered("stub") {
		t.Fatal("expected stub to be registered")
	}

	adapter, err := New("stub", DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer adapter.Close()

	resp, err := adapter.Send(context.Background(), Request{Model: "m", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Text != "stub" {
		t.Errorf("Text = %q, want %q", resp.Text, "stub")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	_, err := New("nope", DefaultConfig())
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register("dup", stubFactory("a"))

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate Register")
		}
	}()
	Register("dup", stubFactory("b"))
}

func TestAvailableSorted(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register("zeta", stubFactory("z"))
	Register("alpha", stubFactory("a"))
	Register("mid", stubFactory("m"))

	names := Available()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Available() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Available()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestUnregister(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register("temp", stubFactory("t"))
	Unregister("temp")

	if IsRegistered("temp") {
		t.Error("expected temp to be unregistered")
	}
}
