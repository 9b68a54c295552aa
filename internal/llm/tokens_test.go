package llm

import (
	"sync"
	"testing"
)

func TestTokenTrackerTotals(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add(100, 50)
	tracker.Add(200, 75)

	total := tracker.Total()
	if total.Input != 300 {
		t.Errorf("input = %d, want 300", total.Input)
	}
	if total.Output != 125 {
		t.Errorf("output = %d, want 125", total.Output)
	}
	if total.Calls != 2 {
		t.Errorf("calls = %d, want 2", total.Calls)
	}
}

func TestTokenTrackerByAgent(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.AddFor("Pulmonologist", 100, 40)
	tracker.AddFor("Pulmonologist", 50, 10)
	tracker.AddFor("Radiologist", 30, 20)

	byAgent := tracker.ByAgent()
	if u := byAgent["Pulmonologist"]; u.Input != 150 || u.Output != 50 || u.Calls != 2 {
		t.Errorf("Pulmonologist usage = %+v", u)
	}
	if u := byAgent["Radiologist"]; u.Input != 30 || u.Output != 20 || u.Calls != 1 {
		t.Errorf("Radiologist usage = %+v", u)
	}
	if total := tracker.Total(); total.Input != 180 || total.Calls != 3 {
		t.Errorf("total = %+v", total)
	}
}

func TestTokenTrackerReset(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.AddFor("x", 10, 10)
	tracker.Reset()

	if total := tracker.Total(); total.Input != 0 || total.Calls != 0 {
		t.Errorf("total after reset = %+v", total)
	}
	if len(tracker.ByAgent()) != 0 {
		t.Error("per-agent usage not cleared")
	}
}

func TestTokenTrackerConcurrent(t *testing.T) {
	tracker := NewTokenTracker()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.AddFor("agent", 1, 1)
			}
		}()
	}
	wg.Wait()

	if total := tracker.Total(); total.Input != 1000 {
		t.Errorf("input = %d, want 1000", total.Input)
	}
}

func TestCost(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add(1_000_000, 1_000_000)
	if cost := tracker.Cost(); cost != 18.0 {
		t.Errorf("cost = %f, want 18.0", cost)
	}
}
