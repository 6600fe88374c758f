package sensors

import (
	"testing"
	"time"
)

func TestBarometerFullCycleProducesSample(t *testing.T) {
	cfg := BarometerConfig{ConversionDelay: time.Millisecond, TempSkipRatio: 2}
	b := NewBarometer(cfg, func(state BaroPhase) (float64, bool) {
		if state == BaroTemperature {
			return 2500, true // 25.00 C raw
		}
		return 101325, true
	})

	now := time.Now()
	ready := false
	for i := 0; i < 10 && !ready; i++ {
		now = now.Add(2 * time.Millisecond)
		ready = b.Poll(now)
	}
	if !ready {
		t.Fatalf("expected a sample after init->temperature->pressure->calculate")
	}
	var out [2]float64
	b.Fetch(out[:])
	if out[0] <= 0 {
		t.Fatalf("expected positive temperature, got %v", out[0])
	}
}

func TestBarometerAppliesLowTempCompensation(t *testing.T) {
	cfg := BarometerConfig{ConversionDelay: time.Millisecond, TempSkipRatio: 2}
	b := NewBarometer(cfg, func(state BaroPhase) (float64, bool) {
		if state == BaroTemperature {
			return 500, true // 5.00 C, below the 20C compensation threshold
		}
		return 101325, true
	})

	now := time.Now()
	for i := 0; i < 10; i++ {
		now = now.Add(2 * time.Millisecond)
		if b.Poll(now) {
			break
		}
	}
	var out [2]float64
	b.Fetch(out[:])
	if out[1] >= 101325 {
		t.Fatalf("expected compensation to reduce raw pressure below 20C, got %v", out[1])
	}
}

func TestBarometerReadFailureTriggersReset(t *testing.T) {
	cfg := BarometerConfig{ConversionDelay: 0, TempSkipRatio: 4}
	calls := 0
	b := NewBarometer(cfg, func(state BaroPhase) (float64, bool) {
		calls++
		return 0, false
	})
	now := time.Now()
	b.Poll(now) // init -> temperature
	b.Poll(now) // temperature read fails -> reset
	if b.state != BaroInit {
		t.Fatalf("expected FSM reset to BaroInit after read failure, got %v", b.state)
	}
}

func TestMagnetometerOrientationEastNorthUp(t *testing.T) {
	bus := NewBus()
	m := NewMagnetometer(bus, OrientEastNorthUp, func() (float64, float64, float64, bool) {
		return 1, 2, 3, true
	})
	if !m.Poll(time.Now()) {
		t.Fatalf("expected successful poll")
	}
	var out [3]float64
	m.Fetch(out[:])
	want := [3]float64{3, 1, -2}
	if out != want {
		t.Fatalf("got %v, want %v", out, want)
	}
}

func TestMagnetometerLatchesErrorUntilReset(t *testing.T) {
	bus := NewBus()
	fail := true
	m := NewMagnetometer(bus, OrientNorthEastDown, func() (float64, float64, float64, bool) {
		return 0, 0, 0, !fail
	})
	if m.Poll(time.Now()) {
		t.Fatalf("expected poll to fail")
	}
	fail = false
	if m.Poll(time.Now()) {
		t.Fatalf("expected latched error to block poll until Reset")
	}
	m.Reset()
	if !m.Poll(time.Now()) {
		t.Fatalf("expected poll to succeed after Reset")
	}
}

func TestBusSerializesTransactions(t *testing.T) {
	bus := NewBus()
	var order []int
	done := make(chan struct{})
	go func() {
		bus.Transact(func() error {
			order = append(order, 1)
			return nil
		})
		close(done)
	}()
	<-done
	bus.Transact(func() error {
		order = append(order, 2)
		return nil
	})
	if len(order) != 2 {
		t.Fatalf("expected both transactions to run, got %v", order)
	}
}
