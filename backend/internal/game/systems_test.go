package game

import (
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"horse-race/backend/internal/telemetry"
)

// MockBroadcaster для тестирования
type MockBroadcaster struct {
	mu        sync.Mutex
	Snapshots []Snapshot
	Err       error
}

func (mb *MockBroadcaster) BroadcastSnapshot(snapshot Snapshot) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.Snapshots = append(mb.Snapshots, snapshot)
	return mb.Err
}

func (mb *MockBroadcaster) count() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.Snapshots)
}

// mockSystem записывает порядок вызовов
type mockSystem struct {
	name     string
	priority int
	calls    *[]string
	err      error
	panics   bool
}

func (m *mockSystem) Update(time.Duration) error {
	*m.calls = append(*m.calls, m.name)
	if m.panics {
		panic("сбой системы")
	}
	return m.err
}

func (m *mockSystem) GetName() string  { return m.name }
func (m *mockSystem) GetPriority() int { return m.priority }

func testLogger() *log.Logger {
	return log.New(io.Discard, "[TEST] ", log.LstdFlags)
}

func TestGameTicker_SystemsRunByPriority(t *testing.T) {
	gameTicker := NewGameTicker(60, testLogger())

	var calls []string
	gameTicker.RegisterSystem(&mockSystem{name: "broadcast", priority: 100, calls: &calls})
	gameTicker.RegisterSystem(&mockSystem{name: "race", priority: 5, calls: &calls})
	gameTicker.RegisterSystem(&mockSystem{name: "telemetry", priority: 50, calls: &calls})

	gameTicker.lastTick = time.Now()
	gameTicker.executeTick(gameTicker.lastTick.Add(16 * time.Millisecond))

	want := []string{"race", "telemetry", "broadcast"}
	if len(calls) != len(want) {
		t.Fatalf("Ожидалось %v, получено %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("Позиция %d: ожидалась %s, получена %s", i, want[i], calls[i])
		}
	}
	if gameTicker.GetTickCount() != 1 {
		t.Errorf("Ожидался 1 тик, получено %d", gameTicker.GetTickCount())
	}
}

func TestGameTicker_SystemErrorsAreCounted(t *testing.T) {
	gameTicker := NewGameTicker(60, testLogger())

	var calls []string
	gameTicker.RegisterSystem(&mockSystem{name: "failing", priority: 1, calls: &calls, err: errors.New("ошибка")})
	gameTicker.RegisterSystem(&mockSystem{name: "panicking", priority: 2, calls: &calls, panics: true})
	gameTicker.RegisterSystem(&mockSystem{name: "healthy", priority: 3, calls: &calls})

	gameTicker.lastTick = time.Now()
	gameTicker.executeTick(gameTicker.lastTick.Add(16 * time.Millisecond))

	if len(calls) != 3 {
		t.Fatalf("Паника не должна прерывать тик: вызовы %v", calls)
	}

	monitor := gameTicker.Monitor()
	for _, name := range []string{"failing", "panicking"} {
		metrics, ok := monitor.SystemMetrics(name)
		if !ok || metrics.Errors != 1 {
			t.Errorf("%s: ожидалась 1 ошибка, метрики %+v", name, metrics)
		}
	}
	if metrics, _ := monitor.SystemMetrics("healthy"); metrics.Executions != 1 || metrics.Errors != 0 {
		t.Errorf("healthy: неожиданные метрики %+v", metrics)
	}
}

func TestGameTicker_StartStop(t *testing.T) {
	gameTicker := NewGameTicker(200, testLogger())

	ticked := make(chan struct{}, 1)
	gameTicker.RegisterSystem(&signalSystem{ch: ticked})

	if err := gameTicker.Start(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("Тикер не выполнил ни одного тика")
	}

	gameTicker.Stop()

	if gameTicker.Stats().Running {
		t.Errorf("Тикер должен быть остановлен")
	}
	if err := gameTicker.Start(); !errors.Is(err, ErrTickerStopped) {
		t.Errorf("Ожидалась ErrTickerStopped, получено %v", err)
	}
}

func TestGameTicker_PauseResume(t *testing.T) {
	gameTicker := NewGameTicker(200, testLogger())
	ticked := make(chan struct{}, 1)
	gameTicker.RegisterSystem(&signalSystem{ch: ticked})

	if err := gameTicker.Start(); err != nil {
		t.Fatal(err)
	}
	defer gameTicker.Stop()

	gameTicker.Pause()
	if !gameTicker.Stats().Paused {
		t.Fatal("Тикер должен быть на паузе")
	}

	// ждем, пока цикл заберет команду паузы
	time.Sleep(50 * time.Millisecond)
	before := gameTicker.GetTickCount()
	time.Sleep(100 * time.Millisecond)
	if got := gameTicker.GetTickCount(); got != before {
		t.Errorf("На паузе выполнено тиков: %d", got-before)
	}

	select {
	case <-ticked:
	default:
	}
	gameTicker.Resume()
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("Тикер не возобновил работу")
	}
	if gameTicker.Stats().Paused {
		t.Errorf("Тикер должен быть снят с паузы")
	}
}

func TestGameTicker_ManualStep(t *testing.T) {
	gameTicker := NewGameTicker(60, testLogger())

	var calls []string
	gameTicker.RegisterSystem(&mockSystem{name: "b", priority: 10, calls: &calls})
	gameTicker.RegisterSystem(&mockSystem{name: "a", priority: 10, calls: &calls})

	for i := 0; i < 3; i++ {
		if err := gameTicker.Step(10 * time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}

	// равный приоритет - порядок регистрации
	if len(calls) != 6 || calls[0] != "b" || calls[1] != "a" {
		t.Errorf("Неверный порядок систем: %v", calls)
	}
	if gameTicker.GetTickCount() != 3 {
		t.Errorf("Ожидалось 3 тика, получено %d", gameTicker.GetTickCount())
	}

	all := gameTicker.Monitor().All()
	if len(all) != 2 || all[0].Name != "a" || all[1].Name != "b" {
		t.Fatalf("Метрики должны быть отсортированы по имени: %+v", all)
	}
	if all[0].Executions != 3 {
		t.Errorf("Ожидалось 3 выполнения, получено %d", all[0].Executions)
	}
	if stats := gameTicker.Stats(); stats.Ticks != 3 || stats.Running || stats.Systems != 2 {
		t.Errorf("Неверная сводка: %+v", stats)
	}
}

func TestPerformanceMonitor_RollingAverage(t *testing.T) {
	pm := NewPerformanceMonitor(2, 25*time.Millisecond)
	pm.track("race")

	pm.recordExecution("race", 10*time.Millisecond)
	pm.recordExecution("race", 20*time.Millisecond)
	pm.recordExecution("race", 40*time.Millisecond)

	m, ok := pm.SystemMetrics("race")
	if !ok {
		t.Fatal("Метрики не найдены")
	}
	// окно из двух последних: (20+40)/2
	if m.Average != 30*time.Millisecond {
		t.Errorf("Ожидалось среднее 30ms, получено %v", m.Average)
	}
	if m.Max != 40*time.Millisecond || m.Last != 40*time.Millisecond || m.Slow != 1 {
		t.Errorf("Неверные метрики: %+v", m)
	}

	if _, ok := pm.SystemMetrics("missing"); ok {
		t.Errorf("Неизвестная система не должна иметь метрик")
	}
}

type signalSystem struct {
	ch chan struct{}
}

func (s *signalSystem) Update(time.Duration) error {
	select {
	case s.ch <- struct{}{}:
	default:
	}
	return nil
}

func (s *signalSystem) GetName() string  { return "signal" }
func (s *signalSystem) GetPriority() int { return 1 }

func TestRaceSystem_AdvancesSimulation(t *testing.T) {
	sim := newTestSimulation(t, 21)
	gameTicker := NewGameTicker(60, testLogger())
	system := NewRaceSystem(sim, gameTicker, testLogger())

	sim.StartCountdown()
	if err := system.Update(time.Second); err != nil {
		t.Fatal(err)
	}

	if got := sim.Snapshot().Countdown.Value; got != 9 {
		t.Errorf("Ожидалось значение отсчета 9, получено %d", got)
	}
}

func TestBroadcastSystem_RespectsInterval(t *testing.T) {
	sim := newTestSimulation(t, 22)
	mock := &MockBroadcaster{}
	system := NewBroadcastSystem(sim, nil, mock, 50*time.Millisecond, testLogger())

	for i := 0; i < 6; i++ {
		if err := system.Update(20 * time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}

	// 20+20+20 -> отправка, 20+20+20 -> отправка
	if got := mock.count(); got != 2 {
		t.Errorf("Ожидалось 2 снимка, получено %d", got)
	}
	if system.Sent() != 2 {
		t.Errorf("Ожидалось Sent() = 2, получено %d", system.Sent())
	}

	mock.Err = errors.New("клиент отключился")
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = system.Update(20 * time.Millisecond)
	}
	if err == nil {
		t.Errorf("Ошибка рассылки должна возвращаться тикеру")
	}
}

func TestTelemetrySystem_RecordsRunningRace(t *testing.T) {
	sim := newTestSimulation(t, 23)
	tm := telemetry.NewTelemetryManager(testLogger())
	system := NewTelemetrySystem(sim, tm, 100*time.Millisecond, testLogger())

	// Во время ожидания состояния лошадей не пишутся
	if err := system.Update(200 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if n := len(tm.Entries()); n != 0 {
		t.Fatalf("Ожидалось 0 записей до старта, получено %d", n)
	}

	if err := sim.SetStatus(StatusRunning); err != nil {
		t.Fatal(err)
	}
	sim.Advance(1.0 / 60)

	if err := system.Update(200 * time.Millisecond); err != nil {
		t.Fatal(err)
	}

	states := 0
	for _, e := range tm.Entries() {
		if e.Kind == telemetry.KindState {
			states++
		}
	}
	if states != 4 {
		t.Errorf("Ожидалось 4 записи состояния, получено %d", states)
	}
}
