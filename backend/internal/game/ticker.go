package game

import (
	"cmp"
	"context"
	"errors"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTickerStopped тикер нельзя запустить повторно после Stop
	ErrTickerStopped = errors.New("игровой цикл уже остановлен")
	// ErrTickerRunning ручной шаг недоступен, пока работает цикл
	ErrTickerRunning = errors.New("игровой цикл запущен")
)

// TickSystem интерфейс для всех систем игрового цикла
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // Приоритет выполнения (меньше = раньше)
}

// GameTicker игровой цикл гонки: с фиксированной частотой вызывает
// зарегистрированные системы в порядке приоритета
type GameTicker struct {
	targetTPS    int
	tickDuration time.Duration
	slowTick     time.Duration // порог предупреждения
	criticalTick time.Duration // порог критического предупреждения

	running   atomic.Bool
	paused    atomic.Bool
	tickCount atomic.Uint64
	startTime time.Time
	lastTick  time.Time

	systems   []TickSystem
	systemsMu sync.RWMutex

	monitor *PerformanceMonitor

	ctx     context.Context
	cancel  context.CancelFunc
	pauseCh chan bool
	done    chan struct{}

	metricsMu   sync.Mutex
	avgTick     time.Duration
	maxTick     time.Duration
	lateTicks   uint64
	manualSteps uint64

	logger *log.Logger
}

// TickerStats сводка по игровому циклу
type TickerStats struct {
	TargetTPS   int           `json:"targetTps"`
	ActualTPS   float64       `json:"actualTps"`
	Ticks       uint64        `json:"ticks"`
	Uptime      time.Duration `json:"uptime"`
	AverageTick time.Duration `json:"averageTick"`
	MaxTick     time.Duration `json:"maxTick"`
	LateTicks   uint64        `json:"lateTicks"`
	Running     bool          `json:"running"`
	Paused      bool          `json:"paused"`
	Systems     int           `json:"systems"`
}

// NewGameTicker создает тикер. targetTPS <= 0 означает 60.
func NewGameTicker(targetTPS int, logger *log.Logger) *GameTicker {
	if targetTPS <= 0 {
		targetTPS = 60
	}
	if logger == nil {
		logger = log.Default()
	}

	tickDuration := time.Second / time.Duration(targetTPS)
	ctx, cancel := context.WithCancel(context.Background())

	return &GameTicker{
		targetTPS:    targetTPS,
		tickDuration: tickDuration,
		slowTick:     tickDuration / 2,
		criticalTick: tickDuration * 2,
		monitor:      NewPerformanceMonitor(50, tickDuration/4),
		ctx:          ctx,
		cancel:       cancel,
		pauseCh:      make(chan bool, 1),
		done:         make(chan struct{}),
		logger:       logger,
	}
}

// Start запускает игровой цикл в отдельной горутине
func (gt *GameTicker) Start() error {
	if gt.ctx.Err() != nil {
		return ErrTickerStopped
	}
	if !gt.running.CompareAndSwap(false, true) {
		return nil
	}

	gt.startTime = time.Now()
	gt.lastTick = gt.startTime

	gt.logger.Printf("[GameTicker] Запуск игрового цикла: %d TPS (тик каждые %v)", gt.targetTPS, gt.tickDuration)

	go gt.loop()
	return nil
}

// Stop останавливает цикл и ждет завершения текущего тика
func (gt *GameTicker) Stop() {
	if !gt.running.CompareAndSwap(true, false) {
		gt.cancel()
		return
	}

	gt.logger.Printf("[GameTicker] Остановка игрового цикла (выполнено тиков: %d)", gt.tickCount.Load())

	gt.cancel()
	<-gt.done
}

// Pause приостанавливает тики. Время паузы не попадает в шаг гонки.
func (gt *GameTicker) Pause() {
	gt.setPaused(true)
}

// Resume возобновляет тики
func (gt *GameTicker) Resume() {
	gt.setPaused(false)
}

func (gt *GameTicker) setPaused(pause bool) {
	if gt.paused.Swap(pause) == pause {
		return
	}

	// в канале держим только последнюю команду
	select {
	case <-gt.pauseCh:
	default:
	}
	gt.pauseCh <- pause

	gt.logger.Printf("[GameTicker] Пауза: %v", pause)
}

// RegisterSystem добавляет систему. Системы с равным приоритетом
// выполняются в порядке регистрации.
func (gt *GameTicker) RegisterSystem(system TickSystem) {
	gt.systemsMu.Lock()
	gt.systems = append(gt.systems, system)
	slices.SortStableFunc(gt.systems, func(a, b TickSystem) int {
		return cmp.Compare(a.GetPriority(), b.GetPriority())
	})
	gt.systemsMu.Unlock()

	gt.monitor.track(system.GetName())

	gt.logger.Printf("[GameTicker] Зарегистрирована система: %s (приоритет: %d)", system.GetName(), system.GetPriority())
}

// Step выполняет один тик вручную с заданным шагом.
// Используется для прогона гонки без реального времени.
func (gt *GameTicker) Step(deltaTime time.Duration) error {
	if gt.running.Load() {
		return ErrTickerRunning
	}

	gt.tickCount.Add(1)
	gt.runSystems(deltaTime)

	gt.metricsMu.Lock()
	gt.manualSteps++
	gt.metricsMu.Unlock()
	return nil
}

func (gt *GameTicker) loop() {
	defer close(gt.done)

	ticker := time.NewTicker(gt.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-gt.ctx.Done():
			return

		case pause := <-gt.pauseCh:
			for pause {
				select {
				case <-gt.ctx.Done():
					return
				case pause = <-gt.pauseCh:
				}
			}
			gt.lastTick = time.Now()

		case now := <-ticker.C:
			gt.executeTick(now)
		}
	}
}

// executeTick выполняет тик, наступивший в момент now
func (gt *GameTicker) executeTick(now time.Time) {
	started := time.Now()
	deltaTime := now.Sub(gt.lastTick)
	gt.lastTick = now

	if deltaTime > gt.tickDuration*2 {
		gt.logger.Printf("[GameTicker] ПРЕДУПРЕЖДЕНИЕ: Большая задержка между тиками: %v (ожидалось: %v)", deltaTime, gt.tickDuration)
		gt.metricsMu.Lock()
		gt.lateTicks++
		gt.metricsMu.Unlock()
	}

	gt.tickCount.Add(1)
	gt.runSystems(deltaTime)

	elapsed := time.Since(started)
	gt.recordTick(elapsed)

	switch {
	case elapsed > gt.criticalTick:
		gt.logger.Printf("[GameTicker] КРИТИЧЕСКОЕ ПРЕДУПРЕЖДЕНИЕ: Тик превысил максимальное время! %v > %v", elapsed, gt.criticalTick)
	case elapsed > gt.slowTick:
		gt.logger.Printf("[GameTicker] ПРЕДУПРЕЖДЕНИЕ: Медленный тик: %v (цель: %v)", elapsed, gt.tickDuration)
	}
}

func (gt *GameTicker) runSystems(deltaTime time.Duration) {
	gt.systemsMu.RLock()
	systems := slices.Clone(gt.systems)
	gt.systemsMu.RUnlock()

	for _, system := range systems {
		gt.runSystem(system, deltaTime)
	}
}

// runSystem выполняет систему с замером времени. Паника системы
// не останавливает тик.
func (gt *GameTicker) runSystem(system TickSystem, deltaTime time.Duration) {
	name := system.GetName()
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Printf("[GameTicker] КРИТИЧЕСКАЯ ОШИБКА в системе %s: %v", name, r)
			gt.monitor.recordError(name)
		}
	}()

	err := system.Update(deltaTime)
	gt.monitor.recordExecution(name, time.Since(started))

	if err != nil {
		gt.logger.Printf("[GameTicker] Ошибка в системе %s: %v", name, err)
		gt.monitor.recordError(name)
	}
}

func (gt *GameTicker) recordTick(elapsed time.Duration) {
	gt.metricsMu.Lock()
	defer gt.metricsMu.Unlock()

	gt.maxTick = max(gt.maxTick, elapsed)
	if gt.avgTick == 0 {
		gt.avgTick = elapsed
	} else {
		gt.avgTick = (gt.avgTick*9 + elapsed) / 10
	}
}

// Stats сводка по игровому циклу
func (gt *GameTicker) Stats() TickerStats {
	gt.systemsMu.RLock()
	systems := len(gt.systems)
	gt.systemsMu.RUnlock()

	gt.metricsMu.Lock()
	defer gt.metricsMu.Unlock()

	stats := TickerStats{
		TargetTPS:   gt.targetTPS,
		Ticks:       gt.tickCount.Load(),
		AverageTick: gt.avgTick,
		MaxTick:     gt.maxTick,
		LateTicks:   gt.lateTicks,
		Running:     gt.running.Load(),
		Paused:      gt.paused.Load(),
		Systems:     systems,
	}
	if !gt.startTime.IsZero() {
		stats.Uptime = time.Since(gt.startTime)
		if realTicks := stats.Ticks - gt.manualSteps; stats.Uptime > 0 {
			stats.ActualTPS = float64(realTicks) / stats.Uptime.Seconds()
		}
	}
	return stats
}

// GetTickCount количество выполненных тиков
func (gt *GameTicker) GetTickCount() uint64 {
	return gt.tickCount.Load()
}

// Monitor метрики систем
func (gt *GameTicker) Monitor() *PerformanceMonitor {
	return gt.monitor
}

// PerformanceMonitor отслеживает время выполнения каждой системы
// по скользящему окну последних тиков
type PerformanceMonitor struct {
	mu       sync.RWMutex
	systems  map[string]*systemWindow
	window   int
	slowExec time.Duration
}

// SystemMetrics метрики одной системы
type SystemMetrics struct {
	Name       string        `json:"name"`
	Last       time.Duration `json:"last"`
	Average    time.Duration `json:"average"`
	Max        time.Duration `json:"max"`
	Executions uint64        `json:"executions"`
	Errors     uint64        `json:"errors"`
	Slow       uint64        `json:"slow"` // выполнений дольше порога
}

type systemWindow struct {
	SystemMetrics
	samples []time.Duration
	next    int
	filled  int
	sum     time.Duration
}

// NewPerformanceMonitor создает монитор с окном windowSize выполнений
func NewPerformanceMonitor(windowSize int, slowExec time.Duration) *PerformanceMonitor {
	return &PerformanceMonitor{
		systems:  make(map[string]*systemWindow),
		window:   max(windowSize, 1),
		slowExec: slowExec,
	}
}

func (pm *PerformanceMonitor) track(name string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, ok := pm.systems[name]; ok {
		return
	}
	pm.systems[name] = &systemWindow{
		SystemMetrics: SystemMetrics{Name: name},
		samples:       make([]time.Duration, pm.window),
	}
}

func (pm *PerformanceMonitor) recordExecution(name string, took time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	w, ok := pm.systems[name]
	if !ok {
		return
	}

	w.Last = took
	w.Executions++
	w.Max = max(w.Max, took)
	if pm.slowExec > 0 && took > pm.slowExec {
		w.Slow++
	}

	// скользящее среднее за O(1)
	w.sum += took - w.samples[w.next]
	w.samples[w.next] = took
	w.next = (w.next + 1) % len(w.samples)
	w.filled = min(w.filled+1, len(w.samples))
	w.Average = w.sum / time.Duration(w.filled)
}

func (pm *PerformanceMonitor) recordError(name string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if w, ok := pm.systems[name]; ok {
		w.Errors++
	}
}

// SystemMetrics метрики системы по имени
func (pm *PerformanceMonitor) SystemMetrics(name string) (SystemMetrics, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	w, ok := pm.systems[name]
	if !ok {
		return SystemMetrics{}, false
	}
	return w.SystemMetrics, true
}

// All метрики всех систем, отсортированные по имени
func (pm *PerformanceMonitor) All() []SystemMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]SystemMetrics, 0, len(pm.systems))
	for _, w := range pm.systems {
		out = append(out, w.SystemMetrics)
	}
	slices.SortFunc(out, func(a, b SystemMetrics) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
