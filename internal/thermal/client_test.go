// SPDX-License-Identifier: MPL-2.0

package thermal

import (
	"context"
	"errors"
	"slices"
	"testing"
)

// fakeTransport serves thresholds from memory and records every request.
type fakeTransport struct {
	names     []string
	high      map[string]float64
	highCrit  map[string]float64
	unsupport map[Method]bool
	calls     []Request
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		names:     []string{"CPU Temp", "MB Temp", "PSU-1 Temp 1"},
		high:      map[string]float64{"CPU Temp": 50},
		highCrit:  map[string]float64{"CPU Temp": 80},
		unsupport: map[Method]bool{},
	}
}

func (f *fakeTransport) Call(_ context.Context, req Request) (*Response, error) {
	f.calls = append(f.calls, req)

	if req.Method == MethodList {
		return &Response{Status: StatusOK, Names: slices.Clone(f.names)}, nil
	}
	if !slices.Contains(f.names, req.Thermal) {
		return nil, &CallError{Request: req, ExitCode: 1, Err: ErrThermalNotFound}
	}
	if f.unsupport[req.Method] {
		return nil, &CallError{Request: req, ExitCode: 1, Err: ErrNotImplemented}
	}

	switch req.Method {
	case MethodHighThreshold:
		v := f.high[req.Thermal]
		return &Response{Status: StatusOK, Value: &v}, nil
	case MethodHighCriticalThreshold:
		v := f.highCrit[req.Thermal]
		return &Response{Status: StatusOK, Value: &v}, nil
	case MethodSetHighThreshold:
		f.high[req.Thermal] = *req.Value
	case MethodSetHighCriticalThreshold:
		f.highCrit[req.Thermal] = *req.Value
	}
	return &Response{Status: StatusOK}, nil
}

func (f *fakeTransport) writes() []Request {
	var out []Request
	for _, r := range f.calls {
		if r.Method.IsWrite() {
			out = append(out, r)
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func TestClientList(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	names, err := NewClient(ft).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(names, ft.names) {
		t.Errorf("List() = %v, want %v", names, ft.names)
	}
}

func TestClientReads(t *testing.T) {
	t.Parallel()

	c := NewClient(newFakeTransport())
	high, err := c.HighThreshold(context.Background(), "CPU Temp")
	if err != nil || high != 50 {
		t.Errorf("HighThreshold() = %v, %v", high, err)
	}
	crit, err := c.HighCriticalThreshold(context.Background(), "CPU Temp")
	if err != nil || crit != 80 {
		t.Errorf("HighCriticalThreshold() = %v, %v", crit, err)
	}
	if _, err := c.HighThreshold(context.Background(), "Nope"); !errors.Is(err, ErrThermalNotFound) {
		t.Errorf("HighThreshold(Nope) error = %v", err)
	}
}

func TestSetThresholdsAgainstPersistedPartner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		high     *float64
		highCrit *float64
		wantErr  string
		wantMsgs []string
	}{
		{"high at or above persisted critical", ptr(85), nil, msgHighOrder, nil},
		{"high equal to persisted critical", ptr(80), nil, msgHighOrder, nil},
		{"critical at or below persisted high", nil, ptr(40), msgHighCritOrder, nil},
		{"critical equal to persisted high", nil, ptr(50), msgHighCritOrder, nil},
		{"high below persisted critical", ptr(55), nil, "", []string{msgHighApplied}},
		{"critical above persisted high", nil, ptr(95), "", []string{msgHighCritApplied}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ft := newFakeTransport()
			msgs, err := NewClient(ft).SetThresholds(context.Background(), "CPU Temp", tt.high, tt.highCrit)
			if tt.wantErr != "" {
				if !errors.Is(err, ErrThresholdOrder) || err.Error() != tt.wantErr {
					t.Fatalf("SetThresholds() error = %v, want %q", err, tt.wantErr)
				}
				if len(ft.writes()) != 0 {
					t.Errorf("rejected change still wrote: %v", ft.writes())
				}
				return
			}
			if err != nil {
				t.Fatalf("SetThresholds() error = %v", err)
			}
			if !slices.Equal(msgs, tt.wantMsgs) {
				t.Errorf("messages = %v, want %v", msgs, tt.wantMsgs)
			}
			if len(ft.calls) != 2 {
				t.Errorf("calls = %v, want one read and one write", ft.calls)
			}
		})
	}
}

func TestSetThresholdsBothSides(t *testing.T) {
	t.Parallel()

	t.Run("ordered pair skips remote reads", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport()
		// 90 is above the persisted critical 80, but the pair is checked
		// against itself.
		msgs, err := NewClient(ft).SetThresholds(context.Background(), "CPU Temp", ptr(90), ptr(100))
		if err != nil {
			t.Fatalf("SetThresholds() error = %v", err)
		}
		if !slices.Equal(msgs, []string{msgHighApplied, msgHighCritApplied}) {
			t.Errorf("messages = %v", msgs)
		}
		w := ft.writes()
		if len(ft.calls) != 2 || len(w) != 2 || w[0].Method != MethodSetHighThreshold {
			t.Errorf("calls = %v, want high write then critical write", ft.calls)
		}
	})

	t.Run("inverted pair is rejected locally", func(t *testing.T) {
		t.Parallel()
		ft := newFakeTransport()
		_, err := NewClient(ft).SetThresholds(context.Background(), "CPU Temp", ptr(70), ptr(70))
		if !errors.Is(err, ErrThresholdOrder) {
			t.Fatalf("SetThresholds() error = %v", err)
		}
		if len(ft.calls) != 0 {
			t.Errorf("remote calls made: %v", ft.calls)
		}
	})
}

func TestSetThresholdsRangeCheckedFirst(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		high     *float64
		highCrit *float64
		wantErr  bool
	}{
		{"low bound", ptr(30.0), nil, false},
		{"high bound", nil, ptr(110.0), false},
		{"below low bound", ptr(29.9), nil, true},
		{"above high bound", nil, ptr(110.1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ft := newFakeTransport()
			_, err := NewClient(ft).SetThresholds(context.Background(), "CPU Temp", tt.high, tt.highCrit)
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Fatalf("error = %v, want ErrOutOfRange", err)
				}
				if len(ft.calls) != 0 {
					t.Errorf("remote calls made before range check: %v", ft.calls)
				}
				return
			}
			if errors.Is(err, ErrOutOfRange) {
				t.Errorf("boundary value rejected: %v", err)
			}
		})
	}
}

func TestSetThresholdsPartnerUnavailable(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	ft.unsupport[MethodHighCriticalThreshold] = true
	msgs, err := NewClient(ft).SetThresholds(context.Background(), "CPU Temp", ptr(55.0), nil)
	if err != nil {
		t.Fatalf("SetThresholds() error = %v", err)
	}
	if !slices.Equal(msgs, []string{msgHighApplied}) {
		t.Errorf("messages = %v", msgs)
	}
	if ft.high["CPU Temp"] != 55 {
		t.Errorf("high = %v, want 55", ft.high["CPU Temp"])
	}
}

func TestSetThresholdsWriteNotImplemented(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	ft.unsupport[MethodSetHighThreshold] = true
	msgs, err := NewClient(ft).SetThresholds(context.Background(), "CPU Temp", ptr(60), ptr(90))
	if !errors.Is(err, ErrNotImplemented) || !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SetThresholds() error = %v, want ErrNotImplemented", err)
	}
	if err.Error() != "Not implement the set_high_threshold method!" {
		t.Errorf("Error() = %q", err.Error())
	}
	if len(msgs) != 0 {
		t.Errorf("messages = %v", msgs)
	}
	if len(ft.writes()) != 1 {
		t.Errorf("critical write attempted after high write failed: %v", ft.writes())
	}
}

func TestSetThresholdsNothingToDo(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	msgs, err := NewClient(ft).SetThresholds(context.Background(), "CPU Temp", nil, nil)
	if err != nil || msgs != nil || len(ft.calls) != 0 {
		t.Errorf("SetThresholds(nil, nil) = %v, %v with calls %v", msgs, err, ft.calls)
	}
}
