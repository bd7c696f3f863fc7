package switcher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/obs-scene-scheduler/internal/schedule"
)

// ─── Test Doubles ───────────────────────────────────────────────────────────

// call records one remote request made through the applier.
type call struct {
	Op   string
	Name string
}

// mockApplier captures every ApplyScene/ApplyTransition call.
type mockApplier struct {
	calls           []call
	failScene       error
	failTransition  error
	afterTransition func()
}

func (m *mockApplier) ApplyScene(_ context.Context, name string) error {
	m.calls = append(m.calls, call{Op: "scene", Name: name})
	return m.failScene
}

func (m *mockApplier) ApplyTransition(_ context.Context, name string) error {
	m.calls = append(m.calls, call{Op: "transition", Name: name})
	if m.afterTransition != nil {
		m.afterTransition()
	}
	return m.failTransition
}

func (m *mockApplier) reset() {
	m.calls = nil
}

// fakeClock returns a settable local wall-clock time.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) set(clock string) {
	parsed, err := time.ParseInLocation("15:04", clock, time.Local)
	if err != nil {
		panic(err)
	}
	f.t = time.Date(2026, 6, 1, parsed.Hour(), parsed.Minute(), 0, 0, time.Local)
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func testScenes() map[schedule.Window]string {
	return map[schedule.Window]string{
		schedule.Daytime:   "Daytime Scene",
		schedule.Evening:   "Evening Scene",
		schedule.Nighttime: "Nighttime Scene",
	}
}

func testConfig() Config {
	return Config{
		Schedule:   schedule.Default(),
		Scenes:     testScenes(),
		Transition: "Fade",
		Interval:   time.Minute,
	}
}

func newTestController(t *testing.T, clock *fakeClock, opts ...Option) (*Controller, *mockApplier, *bytes.Buffer) {
	t.Helper()
	applier := &mockApplier{}
	out := &bytes.Buffer{}
	opts = append([]Option{WithClock(clock.now), WithOutput(out)}, opts...)
	ctrl, err := New(testConfig(), applier, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return ctrl, applier, out
}

// ─── Construction ───────────────────────────────────────────────────────────

func TestNew_Defaults(t *testing.T) {
	ctrl, err := New(Config{Schedule: schedule.Default(), Scenes: testScenes()}, &mockApplier{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if ctrl.cfg.Transition != DefaultTransition {
		t.Errorf("Transition = %q, want %q", ctrl.cfg.Transition, DefaultTransition)
	}
	if ctrl.cfg.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want %v", ctrl.cfg.Interval, DefaultInterval)
	}
	if ctrl.Current() != schedule.None {
		t.Errorf("Current() = %v, want none", ctrl.Current())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		applier SceneApplier
	}{
		{"nil applier", func(_ *Config) {}, nil},
		{"negative interval", func(c *Config) { c.Interval = -time.Second }, &mockApplier{}},
		{"bad schedule", func(c *Config) { c.Schedule.EveningStart = "25:00" }, &mockApplier{}},
		{"unordered schedule", func(c *Config) { c.Schedule.DaytimeStart = "19:00" }, &mockApplier{}},
		{"missing scene", func(c *Config) { delete(c.Scenes, schedule.Evening) }, &mockApplier{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			_, err := New(cfg, tt.applier)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

// ─── Tick Behaviour ─────────────────────────────────────────────────────────

func TestTick_FirstTickAlwaysApplies(t *testing.T) {
	for _, clock := range []string{"05:30", "10:00", "19:00", "23:00"} {
		t.Run(clock, func(t *testing.T) {
			fc := &fakeClock{}
			fc.set(clock)
			ctrl, applier, _ := newTestController(t, fc)

			applied, err := ctrl.Tick(context.Background())
			if err != nil {
				t.Fatalf("Tick() error = %v", err)
			}
			if !applied {
				t.Error("first Tick() applied = false, want true")
			}
			if len(applier.calls) != 2 {
				t.Errorf("first Tick() made %d calls, want 2", len(applier.calls))
			}
		})
	}
}

func TestTick_StartAtNight(t *testing.T) {
	fc := &fakeClock{}
	fc.set("05:30")
	ctrl, applier, out := newTestController(t, fc)

	if _, err := ctrl.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	want := []call{
		{Op: "scene", Name: "Nighttime Scene"},
		{Op: "transition", Name: "Fade"},
	}
	assertCalls(t, applier.calls, want)

	if ctrl.Current() != schedule.Nighttime {
		t.Errorf("Current() = %v, want nighttime", ctrl.Current())
	}
	if out.String() != "Switched to scene: Nighttime Scene\n" {
		t.Errorf("output = %q, want %q", out.String(), "Switched to scene: Nighttime Scene\n")
	}
}

func TestTick_CrossingIntoEvening(t *testing.T) {
	fc := &fakeClock{}
	fc.set("17:59")
	ctrl, applier, out := newTestController(t, fc)

	if _, err := ctrl.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if ctrl.Current() != schedule.Daytime {
		t.Fatalf("Current() = %v, want daytime", ctrl.Current())
	}
	applier.reset()
	out.Reset()

	fc.set("18:00")
	applied, err := ctrl.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if !applied {
		t.Error("Tick() applied = false, want true")
	}

	assertCalls(t, applier.calls, []call{
		{Op: "scene", Name: "Evening Scene"},
		{Op: "transition", Name: "Fade"},
	})

	if ctrl.Current() != schedule.Evening {
		t.Errorf("Current() = %v, want evening", ctrl.Current())
	}
	if !strings.Contains(out.String(), "Switched to scene: Evening Scene") {
		t.Errorf("output = %q, want evening announcement", out.String())
	}
}

func TestTick_UnchangedWindowIsSilent(t *testing.T) {
	fc := &fakeClock{}
	fc.set("10:00")
	ctrl, applier, out := newTestController(t, fc)

	if _, err := ctrl.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	applier.reset()
	out.Reset()

	for _, clock := range []string{"10:00", "10:01", "17:59"} {
		fc.set(clock)
		applied, err := ctrl.Tick(context.Background())
		if err != nil {
			t.Fatalf("Tick(%s) error = %v", clock, err)
		}
		if applied {
			t.Errorf("Tick(%s) applied = true, want false", clock)
		}
	}

	if len(applier.calls) != 0 {
		t.Errorf("unchanged window made %d remote calls, want 0: %+v", len(applier.calls), applier.calls)
	}
	if out.Len() != 0 {
		t.Errorf("unchanged window wrote %q, want nothing", out.String())
	}
}

func TestTick_FullDayCycle(t *testing.T) {
	fc := &fakeClock{}
	fc.set("00:00")
	ctrl, applier, out := newTestController(t, fc)

	for _, clock := range []string{"00:00", "05:59", "06:00", "12:00", "18:00", "21:59", "22:00", "23:59"} {
		fc.set(clock)
		if _, err := ctrl.Tick(context.Background()); err != nil {
			t.Fatalf("Tick(%s) error = %v", clock, err)
		}
	}

	// night, day, evening, night
	if len(applier.calls) != 8 {
		t.Errorf("full day made %d calls, want 8", len(applier.calls))
	}
	want := "Switched to scene: Nighttime Scene\n" +
		"Switched to scene: Daytime Scene\n" +
		"Switched to scene: Evening Scene\n" +
		"Switched to scene: Nighttime Scene\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestTick_SceneFailureLeavesStateUnset(t *testing.T) {
	fc := &fakeClock{}
	fc.set("12:00")
	ctrl, applier, out := newTestController(t, fc)
	applier.failScene = errors.New("scene not found")

	_, err := ctrl.Tick(context.Background())
	if !errors.Is(err, ErrApplyScene) {
		t.Fatalf("Tick() error = %v, want ErrApplyScene", err)
	}

	// Transition is not attempted after a failed scene change
	if len(applier.calls) != 1 {
		t.Errorf("calls = %+v, want only the scene request", applier.calls)
	}
	if ctrl.Current() != schedule.None {
		t.Errorf("Current() = %v, want none after failure", ctrl.Current())
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing after failure", out.String())
	}
}

func TestTick_TransitionFailure(t *testing.T) {
	fc := &fakeClock{}
	fc.set("12:00")
	ctrl, applier, _ := newTestController(t, fc)
	applier.failTransition = errors.New("transition not found")

	_, err := ctrl.Tick(context.Background())
	if !errors.Is(err, ErrApplyTransition) {
		t.Fatalf("Tick() error = %v, want ErrApplyTransition", err)
	}
	if ctrl.Current() != schedule.None {
		t.Errorf("Current() = %v, want none after failure", ctrl.Current())
	}
}

func TestTick_NotifiesObservers(t *testing.T) {
	fc := &fakeClock{}
	fc.set("05:30")

	var got []Switch
	recorder := ObserverFunc(func(_ context.Context, sw Switch) error {
		got = append(got, sw)
		return nil
	})
	failing := ObserverFunc(func(context.Context, Switch) error {
		return errors.New("broker down")
	})

	ctrl, _, _ := newTestController(t, fc, WithObservers(failing, recorder))

	if _, err := ctrl.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v (observer failures must not propagate)", err)
	}

	fc.set("06:00")
	if _, err := ctrl.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("observer saw %d switches, want 2", len(got))
	}
	if got[0].Previous != schedule.None || got[0].Window != schedule.Nighttime {
		t.Errorf("first switch = %+v, want none -> nighttime", got[0])
	}
	if got[1].Previous != schedule.Nighttime || got[1].Window != schedule.Daytime {
		t.Errorf("second switch = %+v, want nighttime -> daytime", got[1])
	}
	if got[1].Scene != "Daytime Scene" || got[1].Transition != "Fade" {
		t.Errorf("second switch = %+v, want Daytime Scene with Fade", got[1])
	}
	if !got[1].At.Equal(fc.now()) {
		t.Errorf("switch At = %v, want %v", got[1].At, fc.now())
	}
}

// ─── Run Loop ───────────────────────────────────────────────────────────────

func TestRun_StopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clocks := []string{"05:30", "10:00"}
	idx := 0
	fc := &fakeClock{}
	clock := func() time.Time {
		fc.set(clocks[idx])
		if idx < len(clocks)-1 {
			idx++
		}
		return fc.now()
	}

	applier := &mockApplier{}
	applier.afterTransition = func() {
		// Stop once the daytime switch has gone out
		if len(applier.calls) == 4 {
			cancel()
		}
	}

	cfg := testConfig()
	cfg.Interval = 5 * time.Millisecond
	ctrl, err := New(cfg, applier, WithClock(clock), WithOutput(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := ctrl.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}

	assertCalls(t, applier.calls, []call{
		{Op: "scene", Name: "Nighttime Scene"},
		{Op: "transition", Name: "Fade"},
		{Op: "scene", Name: "Daytime Scene"},
		{Op: "transition", Name: "Fade"},
	})
	if ctrl.Current() != schedule.Daytime {
		t.Errorf("Current() = %v, want daytime", ctrl.Current())
	}
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc := &fakeClock{}
	fc.set("12:00")
	ctrl, applier, _ := newTestController(t, fc)

	if err := ctrl.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if len(applier.calls) != 0 {
		t.Errorf("cancelled Run made %d calls, want 0", len(applier.calls))
	}
}

func TestRun_FailsFastOnRemoteError(t *testing.T) {
	fc := &fakeClock{}
	fc.set("12:00")
	ctrl, applier, _ := newTestController(t, fc)
	applier.failScene = errors.New("connection reset")

	err := ctrl.Run(context.Background())
	if !errors.Is(err, ErrApplyScene) {
		t.Fatalf("Run() error = %v, want ErrApplyScene", err)
	}
}

func assertCalls(t *testing.T, got, want []call) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
