package entity

import (
	"math"
	"slices"

	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

const (
	// CollisionEffectDuration длительность визуального эффекта столкновения, секунды
	CollisionEffectDuration = 0.3

	DefaultTrailInterval = 0.1 // интервал записи следа, секунды гоночного времени
	DefaultTrailLength   = 10

	// ejectSlop добавка к выталкиванию из препятствия, чтобы повторная
	// проверка (distance <= radius) не срабатывала на самой границе
	ejectSlop = 1e-9
)

// Contacts столкновения лошади за один вызов Update
type Contacts struct {
	Walls  int      // отскоки от границ арены
	Horses []string // id лошадей, с которыми был обмен импульсом или касание
}

// Horse автономный круглый агент с постоянной по модулю скоростью
type Horse struct {
	ID              string             `json:"id"`
	Position        vecmath.Vector2D   `json:"position"`
	Velocity        vecmath.Vector2D   `json:"velocity"`
	Size            float64            `json:"size"`
	Color           string             `json:"color"`
	Speed           float64            `json:"speed"`
	CollisionEffect float64            `json:"collisionEffect"`
	Trail           []vecmath.Vector2D `json:"trail"`

	trailInterval float64
	trailLength   int
	trailClock    float64
}

// NewHorse создает лошадь. Скорость фиксируется по модулю начальной скорости.
func NewHorse(id string, position, velocity vecmath.Vector2D, size float64, color string) *Horse {
	return &Horse{
		ID:            id,
		Position:      position,
		Velocity:      velocity,
		Size:          size,
		Color:         color,
		Speed:         velocity.Magnitude(),
		Trail:         make([]vecmath.Vector2D, 0, DefaultTrailLength),
		trailInterval: DefaultTrailInterval,
		trailLength:   DefaultTrailLength,
	}
}

func (h *Horse) Pos() vecmath.Vector2D { return h.Position }
func (h *Horse) Radius() float64       { return h.Size }
func (h *Horse) Kind() Kind            { return KindHorse }
func (h *Horse) sealed()               {}

// SetTrail настраивает запись следа. length <= 0 отключает след.
func (h *Horse) SetTrail(interval float64, length int) {
	if interval <= 0 {
		interval = DefaultTrailInterval
	}
	if length < 0 {
		length = 0
	}
	h.trailInterval = interval
	h.trailLength = length
	if len(h.Trail) > length {
		h.Trail = h.Trail[len(h.Trail)-length:]
	}
}

// NormalizeVelocity восстанавливает |velocity| == speed
func (h *Horse) NormalizeVelocity() {
	h.Velocity = h.Velocity.Normalize(h.Speed)
}

// restoreSpeed нормализует скорость; если она обнулилась,
// направляет лошадь вдоль fallback
func (h *Horse) restoreSpeed(fallback vecmath.Vector2D) {
	if h.Velocity.IsZero() && h.Speed > 0 {
		h.Velocity = fallback.Normalize(h.Speed)
		return
	}
	h.NormalizeVelocity()
}

// Update продвигает лошадь на deltaTime: движение, отскок от границ,
// упругие столкновения с другими лошадями. Препятствия обрабатывает симуляция.
func (h *Horse) Update(deltaTime float64, horses []*Horse, bounds world.Bounds) Contacts {
	var contacts Contacts

	h.CollisionEffect = math.Max(0, h.CollisionEffect-deltaTime)

	// 1. Движение
	h.Position = h.Position.Add(h.Velocity.Scale(deltaTime))

	// 2. Границы, по каждой оси отдельно
	if h.bounceX(bounds) {
		contacts.Walls++
	}
	if h.bounceY(bounds) {
		contacts.Walls++
	}
	if contacts.Walls > 0 {
		h.CollisionEffect = CollisionEffectDuration
	}

	// 3. Другие лошади
	for _, other := range horses {
		if other == nil || other == h {
			continue
		}
		if h.collideWith(other) {
			contacts.Horses = append(contacts.Horses, other.ID)
		}
	}

	h.recordTrail(deltaTime)

	return contacts
}

func (h *Horse) bounceX(bounds world.Bounds) bool {
	switch {
	case h.Position.X-h.Size < bounds.Left:
		h.Position.X = bounds.Left + h.Size
		h.Velocity.X = math.Abs(h.Velocity.X)
	case h.Position.X+h.Size > bounds.Right:
		h.Position.X = bounds.Right - h.Size
		h.Velocity.X = -math.Abs(h.Velocity.X)
	default:
		return false
	}
	h.NormalizeVelocity()
	return true
}

func (h *Horse) bounceY(bounds world.Bounds) bool {
	switch {
	case h.Position.Y-h.Size < bounds.Top:
		h.Position.Y = bounds.Top + h.Size
		h.Velocity.Y = math.Abs(h.Velocity.Y)
	case h.Position.Y+h.Size > bounds.Bottom:
		h.Position.Y = bounds.Bottom - h.Size
		h.Velocity.Y = -math.Abs(h.Velocity.Y)
	default:
		return false
	}
	h.NormalizeVelocity()
	return true
}

// collideWith упругий обмен импульсом вдоль нормали между центрами
func (h *Horse) collideWith(other *Horse) bool {
	if !h.CheckCollision(other) {
		return false
	}

	delta := h.Position.Sub(other.Position)
	distance := delta.Magnitude()

	normal := vecmath.New(1, 0)
	if distance > 0 {
		normal = delta.Scale(1 / distance)
	}

	relative := h.Velocity.Sub(other.Velocity)
	impulse := relative.Dot(normal)

	// Импульс только при сближении
	if impulse < 0 {
		h.Velocity = h.Velocity.Sub(normal.Scale(impulse))
		other.Velocity = other.Velocity.Add(normal.Scale(impulse))
		h.restoreSpeed(normal)
		other.restoreSpeed(normal.Scale(-1))
	}

	// Расталкиваем на половину перекрытия, чтобы не слипались
	if penetration := h.Size + other.Size - distance; penetration > 0 {
		h.Position = h.Position.Add(normal.Scale(penetration / 2))
	}

	h.CollisionEffect = CollisionEffectDuration
	other.CollisionEffect = CollisionEffectDuration

	return true
}

// ResolveObstacle отражает скорость от нормали препятствия и выталкивает лошадь наружу
func (h *Horse) ResolveObstacle(info world.CollisionInfo) bool {
	if !info.Collided {
		return false
	}

	h.Velocity = h.Velocity.Reflect(info.Normal)
	h.restoreSpeed(info.Normal)
	h.Position = h.Position.Add(info.Normal.Scale(info.Penetration + ejectSlop))
	h.CollisionEffect = CollisionEffectDuration

	return true
}

// Contain возвращает лошадь в границы арены, если ее вытолкнуло наружу.
// Скорость по нарушенной оси разворачивается внутрь.
func (h *Horse) Contain(bounds world.Bounds) bool {
	hitX := h.bounceX(bounds)
	hitY := h.bounceY(bounds)
	return hitX || hitY
}

// CheckCollision пересечение кругов
func (h *Horse) CheckCollision(other world.Body) bool {
	return overlaps(h, other)
}

func (h *Horse) recordTrail(deltaTime float64) {
	if h.trailLength == 0 {
		return
	}

	h.trailClock += deltaTime
	if h.trailClock < h.trailInterval {
		return
	}
	h.trailClock = math.Mod(h.trailClock, h.trailInterval)

	h.Trail = append(h.Trail, h.Position)
	if len(h.Trail) > h.trailLength {
		h.Trail = h.Trail[len(h.Trail)-h.trailLength:]
	}
}

// Clone глубокая копия для снимка состояния
func (h *Horse) Clone() *Horse {
	c := *h
	c.Trail = slices.Clone(h.Trail)
	return &c
}
