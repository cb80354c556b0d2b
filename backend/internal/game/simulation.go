package game

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"horse-race/backend/internal/entity"
	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

// timeEpsilon допуск накопленной ошибки при сравнении времени гонки с лимитом
const timeEpsilon = 1e-9

// spawnAttempts попыток найти свободную точку в зоне старта
const spawnAttempts = 32

// Simulation владеет всем состоянием гонки: картой, лошадьми, монетой,
// отсчетом, статусом и временем. Все поля защищены одним мьютексом,
// поэтому тик и управляющие команды никогда не выполняются одновременно.
type Simulation struct {
	mu sync.Mutex

	// Конфигурация
	settings Settings
	rng      *rand.Rand
	logger   *log.Logger

	// Состояние гонки
	status     Status
	winner     string
	arena      *world.Map
	mapID      string
	horses     []*entity.Horse
	coin       *entity.Coin
	countdown  *entity.Countdown
	elapsed    float64
	canvasSize float64
	tickCount  uint64
	collisions CollisionCounters

	// Параметры расстановки, применяются при каждом пересоздании гонки
	horseCount int
	startArea  StartArea
	coinSpawn  vecmath.Vector2D

	// Переиспользуемые буферы тика
	bodies     []world.Body
	candidates []*entity.Horse

	listeners   []EventListener
	listenersMu sync.RWMutex
}

// NewSimulation создает симуляцию со стандартной трассой в состоянии waiting.
// rng задает источник случайности для расстановки лошадей; nil - случайное зерно.
func NewSimulation(settings Settings, rng *rand.Rand, logger *log.Logger) *Simulation {
	if logger == nil {
		logger = log.Default()
	}

	if err := settings.Validate(); err != nil {
		logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: некорректные настройки (%v), используются значения по умолчанию", err)
		settings = DefaultSettings()
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9E3779B97F4A7C15))
	}

	s := &Simulation{
		settings:   settings,
		rng:        rng,
		logger:     logger,
		status:     StatusWaiting,
		horseCount: settings.Horse.Count,
		startArea:  settings.Race.StartArea,
		coinSpawn:  settings.Race.CoinPosition,
	}

	arena, err := s.newArena(world.DefaultTrack())
	if err != nil {
		logger.Printf("[Simulation] Ошибка построения стандартной трассы: %v", err)
		arena = world.NewMap(nil)
	}
	s.arena = arena
	s.resetRaceLocked()

	return s
}

// AddListener регистрирует получателя событий гонки
func (s *Simulation) AddListener(listener EventListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.listeners = append(s.listeners, listener)
}

// Settings настройки, с которыми создана симуляция
func (s *Simulation) Settings() Settings {
	return s.settings
}

// Advance выполняет один тик симуляции
func (s *Simulation) Advance(deltaTime float64) {
	events := s.step(deltaTime)
	s.dispatch(events)
}

func (s *Simulation) step(deltaTime float64) (events []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Тик вызывается каждый кадр: паника не должна остановить гонку навсегда
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[Simulation] КРИТИЧЕСКАЯ ОШИБКА в тике %d: %v", s.tickCount, r)
			events = nil
		}
	}()

	if math.IsNaN(deltaTime) || math.IsInf(deltaTime, 0) || deltaTime <= 0 {
		return nil
	}

	s.tickCount++
	bounds := s.arena.Bounds()

	// 1. Отсчет перед стартом. Движение лошадей в этом тике не выполняется.
	if s.countdown != nil && s.countdown.Active {
		if s.countdown.Update(deltaTime, bounds) {
			events = append(events, s.eventLocked(EventCountdown))
		}
		if !s.countdown.Active {
			s.status = StatusRunning
			s.logger.Printf("[Simulation] Отсчет завершен, гонка началась (лошадей: %d)", len(s.horses))
			events = append(events, s.eventLocked(EventStarted))
		}
		return events
	}

	// 2. Гонка не идет
	if s.status != StatusRunning || s.coin == nil {
		return nil
	}

	// 3. Гонка
	dt := math.Min(deltaTime, s.settings.Race.MaxDeltaTime)
	s.elapsed += dt

	if s.elapsed+timeEpsilon >= s.settings.Race.GameDuration {
		s.status = StatusEnded
		s.winner = TimeUpWinner
		s.logger.Printf("[Simulation] Время вышло (%.1f с), победителя нет", s.elapsed)
		return append(events, s.eventLocked(EventTimeUp))
	}

	s.moveHorsesLocked(dt, bounds)

	if winner := s.findWinnerLocked(); winner != nil {
		s.coin.Collect()
		s.status = StatusEnded
		s.winner = winner.ID
		s.logger.Printf("[Simulation] Победитель: %s (время %.2f с)", winner.ID, s.elapsed)
		return append(events, s.eventLocked(EventWon))
	}

	s.resolveObstaclesLocked(bounds)

	return events
}

// moveHorsesLocked двигает всех лошадей. Кандидаты на столкновение берутся из сетки.
func (s *Simulation) moveHorsesLocked(dt float64, bounds world.Bounds) {
	grid := s.arena.Grid()

	maxSize, maxSpeed := 0.0, 0.0
	s.bodies = s.bodies[:0]
	for _, h := range s.horses {
		s.bodies = append(s.bodies, h)
		maxSize = math.Max(maxSize, h.Size)
		maxSpeed = math.Max(maxSpeed, h.Speed)
	}
	grid.Reindex(s.bodies)

	// сумма радиусов, смещение обеих лошадей за тик и запас на расталкивание
	reach := 4*maxSize + 2*maxSpeed*dt

	for i, h := range s.horses {
		nearby, _ := grid.QueryArea(h.Position, reach)

		s.candidates = s.candidates[:0]
		for _, j := range nearby {
			if j != i {
				s.candidates = append(s.candidates, s.horses[j])
			}
		}

		contacts := h.Update(dt, s.candidates, bounds)
		s.collisions.Walls += uint64(contacts.Walls)
		s.collisions.Horses += uint64(len(contacts.Horses))
	}
}

// findWinnerLocked лошадь, коснувшаяся монеты. При одновременном касании
// побеждает ближайшая к центру монеты, при равенстве - созданная раньше.
func (s *Simulation) findWinnerLocked() *entity.Horse {
	if s.coin.Collected {
		return nil
	}

	var winner *entity.Horse
	best := math.Inf(1)

	for _, h := range s.horses {
		if !h.CheckCollision(s.coin) {
			continue
		}
		if d := h.Position.Distance(s.coin.Position); d < best {
			best = d
			winner = h
		}
	}

	return winner
}

// resolveObstaclesLocked выталкивает лошадей из препятствий и возвращает в границы арены
func (s *Simulation) resolveObstaclesLocked(bounds world.Bounds) {
	passes := s.settings.Race.ObstaclePasses
	if passes < 1 {
		passes = 1
	}

	for _, h := range s.horses {
		for pass := 0; pass < passes; pass++ {
			if !h.ResolveObstacle(s.arena.CollisionInfo(h)) {
				break
			}
			s.collisions.Obstacles++
		}

		if h.Contain(bounds) {
			s.collisions.Walls++
		}
	}
}

// SetStatus принудительно устанавливает статус гонки
func (s *Simulation) SetStatus(status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return fmt.Errorf("%w: %q", err, status)
	}

	s.mu.Lock()
	s.status = status
	s.mu.Unlock()

	s.logger.Printf("[Simulation] Статус изменен на %s", status)
	return nil
}

// StartCountdown запускает обратный отсчет в центре арены.
// Завершенная гонка перед этим пересоздается.
func (s *Simulation) StartCountdown() {
	s.mu.Lock()
	var events []Event
	if s.status == StatusEnded {
		s.resetRaceLocked()
		events = append(events, s.eventLocked(EventReset))
	}
	events = append(events, s.startCountdownLocked()...)
	s.mu.Unlock()

	s.dispatch(events)
}

// RestartGame пересоздает гонку с текущей картой и точками спавна и запускает отсчет
func (s *Simulation) RestartGame() {
	s.mu.Lock()
	s.resetRaceLocked()
	events := []Event{s.eventLocked(EventReset)}
	events = append(events, s.startCountdownLocked()...)
	s.mu.Unlock()

	s.logger.Printf("[Simulation] Гонка перезапущена")
	s.dispatch(events)
}

// InitializeRace пересоздает гонку с заданными параметрами. Статус - waiting, отсчета нет.
func (s *Simulation) InitializeRace(horseCount int, obstacles []world.Obstacle, area StartArea, coinPosition vecmath.Vector2D) error {
	if horseCount <= 0 {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: некорректное количество лошадей: %d", horseCount)
		return fmt.Errorf("%w: %d", ErrInvalidHorseCount, horseCount)
	}
	if obstacles == nil {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: инициализация отклонена: %v", ErrMissingObstacles)
		return ErrMissingObstacles
	}
	if !area.Center.IsFinite() || !coinPosition.IsFinite() || area.Radius < 0 || math.IsNaN(area.Radius) {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: инициализация отклонена: зона старта %+v, монета %v", area, coinPosition)
		return fmt.Errorf("%w: зона старта %+v, монета %v", ErrInvalidPosition, area, coinPosition)
	}

	arena, err := s.newArena(obstacles)
	if err != nil {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: инициализация отклонена: %v", err)
		return fmt.Errorf("error building arena: %w", err)
	}

	s.mu.Lock()
	s.arena = arena
	s.mapID = ""
	s.horseCount = horseCount
	s.startArea = area
	s.coinSpawn = coinPosition
	s.resetRaceLocked()
	events := []Event{s.eventLocked(EventReset)}
	s.mu.Unlock()

	s.logger.Printf("[Simulation] Гонка инициализирована: %d лошадей, %d препятствий", horseCount, len(obstacles))
	s.dispatch(events)
	return nil
}

// LoadMap загружает карту без идентификатора
func (s *Simulation) LoadMap(obstacles []world.Obstacle, horseSpawn, coinSpawn world.OptionalPoint) error {
	return s.LoadMapWithID("", obstacles, horseSpawn, coinSpawn)
}

// LoadMapWithID загружает карту и пересоздает гонку.
// Отсутствующая точка спавна сохраняет текущее значение, null сбрасывает к значению по умолчанию.
// Некорректная карта отклоняется, текущее состояние не меняется.
func (s *Simulation) LoadMapWithID(id string, obstacles []world.Obstacle, horseSpawn, coinSpawn world.OptionalPoint) error {
	if obstacles == nil {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: карта %q отклонена: %v", id, ErrMissingObstacles)
		return ErrMissingObstacles
	}
	if (horseSpawn.IsSet() && !horseSpawn.Point.IsFinite()) || (coinSpawn.IsSet() && !coinSpawn.Point.IsFinite()) {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: карта %q отклонена: некорректные точки спавна", id)
		return ErrInvalidPosition
	}

	arena, err := s.newArena(obstacles)
	if err != nil {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: карта %q отклонена: %v", id, err)
		return fmt.Errorf("error loading map %q: %w", id, err)
	}

	s.mu.Lock()
	defaults := s.settings.Race
	s.startArea.Center = horseSpawn.Resolve(s.startArea.Center, defaults.StartArea.Center)
	if horseSpawn.Present && horseSpawn.Null {
		s.startArea.Radius = defaults.StartArea.Radius
	}
	s.coinSpawn = coinSpawn.Resolve(s.coinSpawn, defaults.CoinPosition)
	s.arena = arena
	s.mapID = id
	s.resetRaceLocked()
	events := []Event{s.eventLocked(EventMapLoaded)}
	s.mu.Unlock()

	s.logger.Printf("[Simulation] Загружена карта %q: %d препятствий", id, len(obstacles))
	s.dispatch(events)
	return nil
}

// SetMapObstacles заменяет препятствия текущей карты и пересоздает гонку
func (s *Simulation) SetMapObstacles(obstacles []world.Obstacle) error {
	if obstacles == nil {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: пустой список препятствий отклонен")
		return ErrMissingObstacles
	}

	arena, err := s.newArena(obstacles)
	if err != nil {
		s.logger.Printf("[Simulation] ПРЕДУПРЕЖДЕНИЕ: препятствия отклонены: %v", err)
		return fmt.Errorf("error building arena: %w", err)
	}

	s.mu.Lock()
	s.arena = arena
	s.mapID = ""
	s.resetRaceLocked()
	events := []Event{s.eventLocked(EventReset)}
	s.mu.Unlock()

	s.dispatch(events)
	return nil
}

// SetHorseStartPosition меняет центр зоны старта. До начала гонки лошади сразу переставляются.
func (s *Simulation) SetHorseStartPosition(pos vecmath.Vector2D) error {
	if !pos.IsFinite() {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.startArea.Center = pos
	if s.status == StatusWaiting {
		s.horses = s.spawnHorsesLocked()
	}
	return nil
}

// SetCoinPosition меняет точку появления монеты. До начала гонки монета сразу переносится.
func (s *Simulation) SetCoinPosition(pos vecmath.Vector2D) error {
	if !pos.IsFinite() {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.coinSpawn = pos
	if s.status == StatusWaiting {
		s.coin = entity.NewCoin(pos, s.settings.Race.CoinSize)
	}
	return nil
}

// SetCanvasSize запоминает размер холста клиента в пикселях
func (s *Simulation) SetCanvasSize(size float64) {
	if math.IsNaN(size) || size < 0 {
		size = 0
	}

	s.mu.Lock()
	s.canvasSize = size
	s.mu.Unlock()
}

// Status текущий статус гонки
func (s *Simulation) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot копия состояния после последнего тика
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	horses := make([]*entity.Horse, len(s.horses))
	for i, h := range s.horses {
		horses[i] = h.Clone()
	}

	snap := Snapshot{
		Status: s.status,
		Winner: s.winner,
		Horses: horses,
		Map: MapView{
			ID:        s.mapID,
			Bounds:    s.arena.Bounds(),
			Obstacles: s.arena.Obstacles(),
		},
		GameTime:   s.elapsed,
		CanvasSize: s.canvasSize,
		StartArea:  s.startArea,
		CoinSpawn:  s.coinSpawn,
		Tick:       s.tickCount,
		Collisions: s.collisions,
	}
	if s.coin != nil {
		snap.Coin = s.coin.Clone()
	}
	if s.countdown != nil {
		snap.Countdown = s.countdown.Clone()
	}

	return snap
}

func (s *Simulation) newArena(obstacles []world.Obstacle) (*world.Map, error) {
	return world.NewMapWithBounds(world.DefaultBounds(), obstacles, s.settings.Race.CellSize)
}

// resetRaceLocked пересоздает лошадей и монету, сбрасывает время, победителя и отсчет
func (s *Simulation) resetRaceLocked() {
	s.horses = s.spawnHorsesLocked()
	s.coin = entity.NewCoin(s.coinSpawn, s.settings.Race.CoinSize)
	s.countdown = nil
	s.winner = ""
	s.elapsed = 0
	s.status = StatusWaiting
	s.collisions = CollisionCounters{}
}

func (s *Simulation) startCountdownLocked() []Event {
	cfg := s.settings.Countdown
	bounds := s.arena.Bounds()

	s.countdown = entity.NewCountdown(bounds.Center(), cfg.Velocity, cfg.Size, cfg.Initial)
	s.countdown.TimePerNumber = cfg.TimePerNumber
	s.status = StatusWaiting

	events := []Event{s.eventLocked(EventCountdown)}

	// Нулевой отсчет: гонка стартует сразу
	if !s.countdown.Active {
		s.status = StatusRunning
		events = append(events, s.eventLocked(EventStarted))
	}

	return events
}

// spawnHorsesLocked расставляет лошадей случайно внутри зоны старта.
// Направления движения равномерно распределены по кругу.
func (s *Simulation) spawnHorsesLocked() []*entity.Horse {
	cfg := s.settings.Horse
	count := s.horseCount

	horses := make([]*entity.Horse, 0, count)
	for i := 0; i < count; i++ {
		variation := 1 - cfg.SpeedVariation + s.rng.Float64()*2*cfg.SpeedVariation
		speed := cfg.Speed * variation

		position := s.spawnPositionLocked(horses)
		velocity := vecmath.FromAngle(float64(i)*2*math.Pi/float64(count), speed)

		horse := entity.NewHorse(fmt.Sprintf("Horse %d", i+1), position, velocity, cfg.Size, cfg.Colors[i%len(cfg.Colors)])
		horse.SetTrail(cfg.TrailInterval, cfg.TrailLength)
		horses = append(horses, horse)
	}

	return horses
}

// spawnPositionLocked случайная точка зоны старта, где лошадь не задевает
// препятствия. Если за spawnAttempts попыток такой точки нет, берется
// ближайшая к центру зоны свободная точка арены.
func (s *Simulation) spawnPositionLocked(placed []*entity.Horse) vecmath.Vector2D {
	size := s.settings.Horse.Size
	bounds := s.arena.Bounds()
	inside := func(p vecmath.Vector2D) vecmath.Vector2D {
		return p.Clamp(bounds.Left+size, bounds.Right-size, bounds.Top+size, bounds.Bottom-size)
	}

	for attempt := 0; attempt < spawnAttempts; attempt++ {
		offset := vecmath.FromAngle(s.rng.Float64()*2*math.Pi, s.rng.Float64()*s.startArea.Radius)
		position := inside(s.startArea.Center.Add(offset))
		if !s.arena.CheckCollision(spawnPoint{center: position, radius: size}) {
			return position
		}
	}

	return s.nearestFreePointLocked(inside(s.startArea.Center), size, placed)
}

// nearestFreePointLocked перебирает узлы сетки, проходящей через target, с шагом
// в четверть радиуса. Точка без пересечения с лошадьми предпочтительнее точки,
// свободной только от препятствий.
func (s *Simulation) nearestFreePointLocked(target vecmath.Vector2D, size float64, placed []*entity.Horse) vecmath.Vector2D {
	bounds := s.arena.Bounds()
	step := size / 4
	if !(step > 0) {
		return target
	}
	minX, maxX := bounds.Left+size, bounds.Right-size
	minY, maxY := bounds.Top+size, bounds.Bottom-size
	startX := target.X - math.Floor((target.X-minX)/step)*step
	startY := target.Y - math.Floor((target.Y-minY)/step)*step

	best, fallback := target, target
	bestDist, fallbackDist := math.Inf(1), math.Inf(1)

	for x := startX; x <= maxX; x += step {
		for y := startY; y <= maxY; y += step {
			p := vecmath.New(x, y)
			if s.arena.CheckCollision(spawnPoint{center: p, radius: size}) {
				continue
			}
			d := p.Distance(target)
			if d < fallbackDist {
				fallback, fallbackDist = p, d
			}
			if d < bestDist && !overlapsAny(p, size, placed) {
				best, bestDist = p, d
			}
		}
	}

	if !math.IsInf(bestDist, 1) {
		return best
	}
	return fallback
}

func overlapsAny(p vecmath.Vector2D, size float64, horses []*entity.Horse) bool {
	for _, h := range horses {
		if p.Distance(h.Position) < size+h.Size {
			return true
		}
	}
	return false
}

// spawnPoint круг-кандидат на место старта
type spawnPoint struct {
	center vecmath.Vector2D
	radius float64
}

func (p spawnPoint) Pos() vecmath.Vector2D { return p.center }
func (p spawnPoint) Radius() float64       { return p.radius }

func (s *Simulation) eventLocked(eventType EventType) Event {
	event := Event{
		Type:    eventType,
		Status:  s.status,
		Winner:  s.winner,
		Elapsed: s.elapsed,
		MapID:   s.mapID,
		Time:    time.Now(),
	}
	if s.countdown != nil {
		event.Countdown = s.countdown.Value
	}
	if event.Finished() || eventType == EventReset || eventType == EventMapLoaded {
		event.Horses = make([]string, len(s.horses))
		for i, h := range s.horses {
			event.Horses[i] = h.ID
		}
	}
	return event
}

// dispatch рассылает события вне мьютекса симуляции
func (s *Simulation) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}

	s.listenersMu.RLock()
	listeners := make([]EventListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, event := range events {
		for _, listener := range listeners {
			s.notify(listener, event)
		}
	}
}

func (s *Simulation) notify(listener EventListener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[Simulation] Ошибка в обработчике события %s: %v", event.Type, r)
		}
	}()
	listener.OnRaceEvent(event)
}
