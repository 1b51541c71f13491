package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mfadel/brontes/internal/model"
)

func noopHandler(_ context.Context, _ *model.WorkItem) (model.Outcome, error) {
	return model.Completed(nil), nil
}

func validSpec(taskType string) Spec {
	return Spec{
		TaskType:     taskType,
		Handler:      noopHandler,
		Concurrency:  1,
		PollInterval: 100 * time.Millisecond,
	}
}

func TestRegisterValid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(validSpec("email")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	spec, ok := r.Get("email")
	if !ok {
		t.Fatal("Get(email) not found")
	}
	if spec.PollTimeout != DefaultPollTimeout {
		t.Errorf("PollTimeout = %v, want default %v", spec.PollTimeout, DefaultPollTimeout)
	}
}

func TestRegisterInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"empty task type", func(s *Spec) { s.TaskType = "" }},
		{"nil handler", func(s *Spec) { s.Handler = nil }},
		{"zero concurrency", func(s *Spec) { s.Concurrency = 0 }},
		{"negative concurrency", func(s *Spec) { s.Concurrency = -2 }},
		{"zero poll interval", func(s *Spec) { s.PollInterval = 0 }},
		{"negative poll timeout", func(s *Spec) { s.PollTimeout = -time.Second }},
		{"lease extension without interval", func(s *Spec) { s.LeaseExtendEnabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			spec := validSpec("email")
			tt.mutate(&spec)

			err := r.Register(spec)
			if !errors.Is(err, ErrInvalidSpec) {
				t.Errorf("Register error = %v, want ErrInvalidSpec", err)
			}
			if r.Len() != 0 {
				t.Errorf("Len() = %d after rejected registration, want 0", r.Len())
			}
		})
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()

	first := validSpec("email")
	first.Concurrency = 1
	second := validSpec("email")
	second.Concurrency = 8

	if err := r.Register(first); err != nil {
		t.Fatalf("Register first: %v", err)
	}
	if err := r.Register(second); err != nil {
		t.Fatalf("Register second: %v", err)
	}

	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	spec, _ := r.Get("email")
	if spec.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want replacement value 8", spec.Concurrency)
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(validSpec("email"))

	if !r.Unregister("email") {
		t.Error("Unregister(email) = false, want true")
	}
	if r.Unregister("email") {
		t.Error("Unregister(email) second call = true, want false")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestListSortedSnapshot(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(validSpec("sms"))
	_ = r.Register(validSpec("billing"))
	_ = r.Register(validSpec("email"))

	specs := r.List()
	if len(specs) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(specs))
	}
	for i, want := range []string{"billing", "email", "sms"} {
		if specs[i].TaskType != want {
			t.Errorf("List()[%d].TaskType = %q, want %q", i, specs[i].TaskType, want)
		}
	}

	// Mutating the snapshot must not affect the registry.
	specs[0].TaskType = "mutated"
	if _, ok := r.Get("billing"); !ok {
		t.Error("registry mutated through List() snapshot")
	}
}
