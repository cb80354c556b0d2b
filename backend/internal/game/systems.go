package game

import (
	"log"
	"time"

	"horse-race/backend/internal/telemetry"
)

// RaceSystem продвигает симуляцию гонки на каждом тике
type RaceSystem struct {
	name       string
	priority   int
	simulation *Simulation
	gameTicker *GameTicker
	logger     *log.Logger
}

// NewRaceSystem создает систему гонки
func NewRaceSystem(simulation *Simulation, gameTicker *GameTicker, logger *log.Logger) *RaceSystem {
	return &RaceSystem{
		name:       "RaceSystem",
		priority:   5, // Высокий приоритет - двигаем гонку первой
		simulation: simulation,
		gameTicker: gameTicker,
		logger:     logger,
	}
}

// Update выполняет шаг симуляции
func (rs *RaceSystem) Update(deltaTime time.Duration) error {
	rs.simulation.Advance(deltaTime.Seconds())

	// Логируем состояние каждые 30 секунд при 60 TPS
	if rs.gameTicker != nil && rs.gameTicker.GetTickCount()%1800 == 0 {
		snap := rs.simulation.Snapshot()
		rs.logger.Printf("[RaceSystem] Статус %s, время гонки %.1f с, лошадей %d",
			snap.Status, snap.GameTime, len(snap.Horses))
	}

	return nil
}

func (rs *RaceSystem) GetName() string {
	return rs.name
}

func (rs *RaceSystem) GetPriority() int {
	return rs.priority
}

// TelemetrySystem пишет состояния лошадей и прирост столкновений в телеметрию
type TelemetrySystem struct {
	name       string
	priority   int
	simulation *Simulation
	telemetry  *telemetry.TelemetryManager
	logger     *log.Logger

	// Частота записи
	sampleInterval time.Duration
	sinceSample    time.Duration

	lastTick       uint64
	lastCollisions CollisionCounters
}

// NewTelemetrySystem создает систему телеметрии
func NewTelemetrySystem(simulation *Simulation, tm *telemetry.TelemetryManager, sampleInterval time.Duration, logger *log.Logger) *TelemetrySystem {
	if sampleInterval <= 0 {
		sampleInterval = 500 * time.Millisecond
	}
	return &TelemetrySystem{
		name:           "TelemetrySystem",
		priority:       50,
		simulation:     simulation,
		telemetry:      tm,
		logger:         logger,
		sampleInterval: sampleInterval,
	}
}

// Update записывает выборку не чаще sampleInterval
func (ts *TelemetrySystem) Update(deltaTime time.Duration) error {
	ts.sinceSample += deltaTime
	if ts.sinceSample < ts.sampleInterval {
		return nil
	}
	ts.sinceSample = 0

	snap := ts.simulation.Snapshot()

	// Счетчики обнуляются при пересоздании гонки
	if snap.Tick < ts.lastTick || countersDecreased(snap.Collisions, ts.lastCollisions) {
		ts.lastCollisions = CollisionCounters{}
	}
	ts.lastTick = snap.Tick

	if snap.Status == StatusRunning {
		for _, h := range snap.Horses {
			ts.telemetry.LogHorseState(snap.Tick, snap.GameTime, h)
		}
	}

	ts.telemetry.LogCollisions(snap.Tick, telemetry.KindWall, snap.Collisions.Walls-ts.lastCollisions.Walls)
	ts.telemetry.LogCollisions(snap.Tick, telemetry.KindHorse, snap.Collisions.Horses-ts.lastCollisions.Horses)
	ts.telemetry.LogCollisions(snap.Tick, telemetry.KindObstacle, snap.Collisions.Obstacles-ts.lastCollisions.Obstacles)
	ts.lastCollisions = snap.Collisions

	ts.telemetry.PrintSummary()

	return nil
}

func countersDecreased(current, previous CollisionCounters) bool {
	return current.Walls < previous.Walls ||
		current.Horses < previous.Horses ||
		current.Obstacles < previous.Obstacles
}

func (ts *TelemetrySystem) GetName() string {
	return ts.name
}

func (ts *TelemetrySystem) GetPriority() int {
	return ts.priority
}

// SnapshotBroadcaster интерфейс для отправки состояния клиентам
type SnapshotBroadcaster interface {
	BroadcastSnapshot(snapshot Snapshot) error
}

// BroadcastSystem система синхронизации состояния с клиентами
type BroadcastSystem struct {
	name        string
	priority    int
	simulation  *Simulation
	gameTicker  *GameTicker
	broadcaster SnapshotBroadcaster
	logger      *log.Logger

	// Ограничение частоты отправки
	broadcastInterval time.Duration
	sinceBroadcast    time.Duration
	sent              uint64
}

// NewBroadcastSystem создает систему рассылки снимков
func NewBroadcastSystem(simulation *Simulation, gameTicker *GameTicker, broadcaster SnapshotBroadcaster, interval time.Duration, logger *log.Logger) *BroadcastSystem {
	return &BroadcastSystem{
		name:              "BroadcastSystem",
		priority:          100, // Самый низкий приоритет - отправляем в конце тика
		simulation:        simulation,
		gameTicker:        gameTicker,
		broadcaster:       broadcaster,
		logger:            logger,
		broadcastInterval: interval,
	}
}

// Update отправляет снимок состояния клиентам
func (bs *BroadcastSystem) Update(deltaTime time.Duration) error {
	if bs.broadcaster == nil {
		return nil
	}

	bs.sinceBroadcast += deltaTime
	if bs.sinceBroadcast < bs.broadcastInterval {
		return nil
	}
	bs.sinceBroadcast = 0

	if err := bs.broadcaster.BroadcastSnapshot(bs.simulation.Snapshot()); err != nil {
		return err
	}
	bs.sent++

	// Логируем периодически для отладки
	if bs.sent%600 == 0 {
		bs.logger.Printf("[BroadcastSystem] Отправлено снимков: %d", bs.sent)
	}

	return nil
}

// Sent количество отправленных снимков
func (bs *BroadcastSystem) Sent() uint64 {
	return bs.sent
}

func (bs *BroadcastSystem) GetName() string {
	return bs.name
}

func (bs *BroadcastSystem) GetPriority() int {
	return bs.priority
}

// GameMetricsSystem система сбора метрик игрового цикла
type GameMetricsSystem struct {
	name       string
	priority   int
	gameTicker *GameTicker
	logger     *log.Logger

	// Счетчики для метрик
	lastMetricsLog  time.Time
	metricsInterval time.Duration
}

// NewGameMetricsSystem создает новую систему сбора метрик
func NewGameMetricsSystem(gameTicker *GameTicker, logger *log.Logger) *GameMetricsSystem {
	return &GameMetricsSystem{
		name:            "GameMetricsSystem",
		priority:        200, // Метрики в самом конце
		gameTicker:      gameTicker,
		logger:          logger,
		lastMetricsLog:  time.Now(),
		metricsInterval: 30 * time.Second,
	}
}

// Update собирает и логирует метрики игрового цикла
func (gms *GameMetricsSystem) Update(deltaTime time.Duration) error {
	now := time.Now()
	if now.Sub(gms.lastMetricsLog) < gms.metricsInterval {
		return nil
	}
	gms.lastMetricsLog = now

	stats := gms.gameTicker.Stats()

	gms.logger.Printf("[GameMetrics] TPS: %.1f/%d, Тиков: %d, Время тика: %v, Опозданий: %d",
		stats.ActualTPS, stats.TargetTPS, stats.Ticks, stats.AverageTick, stats.LateTicks)

	if stats.ActualTPS < float64(stats.TargetTPS)*0.9 {
		gms.logger.Printf("[GameMetrics] ПРЕДУПРЕЖДЕНИЕ: TPS снижен до %.1f", stats.ActualTPS)
	}

	for _, m := range gms.gameTicker.Monitor().All() {
		if m.Errors > 0 || m.Slow > 0 {
			gms.logger.Printf("[GameMetrics] %s: ошибок %d, медленных выполнений %d, среднее %v",
				m.Name, m.Errors, m.Slow, m.Average)
		}
	}

	return nil
}

func (gms *GameMetricsSystem) GetName() string {
	return gms.name
}

func (gms *GameMetricsSystem) GetPriority() int {
	return gms.priority
}
