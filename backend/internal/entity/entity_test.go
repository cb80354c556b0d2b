package entity

import (
	"math"
	"math/rand/v2"
	"testing"

	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

const speedTolerance = 1e-6

func TestHorseHeadOnCollisionSwapsVelocities(t *testing.T) {
	bounds := world.DefaultBounds()
	left := NewHorse("Horse 1", vecmath.New(0.45, 0.5), vecmath.New(0.2, 0), 0.02, "#E63946")
	right := NewHorse("Horse 2", vecmath.New(0.55, 0.5), vecmath.New(-0.2, 0), 0.02, "#457B9D")
	horses := []*Horse{left, right}

	for _, h := range horses {
		h.Update(0.2, horses, bounds)
	}

	if math.Abs(left.Velocity.X-(-0.2)) > speedTolerance {
		t.Errorf("Левая лошадь: ожидали vx -0.2, получили %f", left.Velocity.X)
	}
	if math.Abs(right.Velocity.X-0.2) > speedTolerance {
		t.Errorf("Правая лошадь: ожидали vx 0.2, получили %f", right.Velocity.X)
	}
	for _, h := range horses {
		if math.Abs(h.Velocity.Magnitude()-0.2) > speedTolerance {
			t.Errorf("%s: скорость изменилась на %f", h.ID, h.Velocity.Magnitude())
		}
		if h.CollisionEffect != CollisionEffectDuration {
			t.Errorf("%s: ожидали эффект столкновения %f, получили %f", h.ID, CollisionEffectDuration, h.CollisionEffect)
		}
	}

	// После обмена лошади расходятся, повторного обмена быть не должно
	for _, h := range horses {
		h.Update(0.05, horses, bounds)
	}
	if left.Velocity.X > 0 || right.Velocity.X < 0 {
		t.Errorf("Лошади столкнулись повторно после разлета: левая=%v правая=%v", left.Velocity, right.Velocity)
	}
}

func TestHorseWallBounce(t *testing.T) {
	bounds := world.DefaultBounds()
	h := NewHorse("Horse 1", vecmath.New(0.13, 0.5), vecmath.New(-0.2, 0.1), 0.02, "#E63946")

	contacts := h.Update(0.1, nil, bounds)

	if contacts.Walls != 1 {
		t.Fatalf("Ожидали 1 касание стены, получили %d", contacts.Walls)
	}
	if h.Position.X != bounds.Left+h.Size {
		t.Errorf("Ожидали x, прижатый к %f, получили %f", bounds.Left+h.Size, h.Position.X)
	}
	if h.Velocity.X <= 0 {
		t.Errorf("После отскока vx должна смотреть внутрь, получили %f", h.Velocity.X)
	}
	if math.Abs(h.Velocity.Magnitude()-h.Speed) > speedTolerance {
		t.Errorf("Нарушен инвариант скорости: |v|=%f speed=%f", h.Velocity.Magnitude(), h.Speed)
	}
	if h.CollisionEffect != CollisionEffectDuration {
		t.Errorf("Эффект столкновения должен быть установлен, получили %f", h.CollisionEffect)
	}

	h.Update(0.1, nil, bounds)
	if math.Abs(h.CollisionEffect-0.2) > 1e-12 {
		t.Errorf("Эффект столкновения должен затухнуть до 0.2, получили %f", h.CollisionEffect)
	}
	for i := 0; i < 10; i++ {
		h.Update(0.1, nil, bounds)
	}
	if h.CollisionEffect < 0 {
		t.Errorf("Эффект столкновения стал отрицательным: %f", h.CollisionEffect)
	}
}

func TestHorseSpeedAndContainmentInvariants(t *testing.T) {
	bounds := world.DefaultBounds()

	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7))

		horses := make([]*Horse, 8)
		for i := range horses {
			pos := vecmath.New(0.12+rng.Float64()*0.76, 0.12+rng.Float64()*0.76)
			vel := vecmath.FromAngle(rng.Float64()*2*math.Pi, 0.16+rng.Float64()*0.08)
			horses[i] = NewHorse("h", pos, vel, 0.02, "#2A9D8F")
		}

		for tick := 0; tick < 2000; tick++ {
			dt := 0.001 + rng.Float64()*0.099
			for _, h := range horses {
				h.Update(dt, horses, bounds)
			}
			for _, h := range horses {
				h.Contain(bounds)
			}

			for i, h := range horses {
				if !h.Position.IsFinite() || !h.Velocity.IsFinite() {
					t.Fatalf("seed %d тик %d лошадь %d: нечисловое состояние %v %v", seed, tick, i, h.Position, h.Velocity)
				}
				if math.Abs(h.Velocity.Magnitude()-h.Speed) > speedTolerance {
					t.Fatalf("seed %d тик %d лошадь %d: |v|=%f speed=%f", seed, tick, i, h.Velocity.Magnitude(), h.Speed)
				}
				if !bounds.Contains(h.Position, h.Size, 1e-9) {
					t.Fatalf("seed %d тик %d лошадь %d: вышла за границы в %v", seed, tick, i, h.Position)
				}
			}
		}
	}
}

func TestHorseZeroDistanceFallback(t *testing.T) {
	bounds := world.DefaultBounds()
	a := NewHorse("a", vecmath.New(0.5, 0.5), vecmath.New(0.2, 0), 0.02, "#8338EC")
	b := NewHorse("b", vecmath.New(0.5, 0.5), vecmath.New(0, 0.2), 0.02, "#2B9348")
	horses := []*Horse{a, b}

	a.Update(0, horses, bounds)

	if !a.Position.IsFinite() || !a.Velocity.IsFinite() || !b.Velocity.IsFinite() {
		t.Fatalf("NaN после столкновения на нулевом расстоянии: a=%+v b=%+v", a, b)
	}
	if math.Abs(a.Position.X-0.52) > 1e-12 {
		t.Errorf("Лошадь должна сдвинуться вдоль (1,0) до x=0.52, получили %f", a.Position.X)
	}
	if math.Abs(a.Velocity.Magnitude()-0.2) > speedTolerance || math.Abs(b.Velocity.Magnitude()-0.2) > speedTolerance {
		t.Errorf("Скорости изменились: a=%f b=%f", a.Velocity.Magnitude(), b.Velocity.Magnitude())
	}
}

func TestHorseResolveObstacle(t *testing.T) {
	m := world.NewMap([]world.Obstacle{world.NewObstacle(0.4, 0.4, 0.2, 0.2)})
	h := NewHorse("Horse 1", vecmath.New(0.39, 0.5), vecmath.New(0.2, 0), 0.02, "#F4A261")

	info := m.CollisionInfo(h)
	if !h.ResolveObstacle(info) {
		t.Fatal("Столкновение с препятствием должно быть разрешено")
	}

	if !h.Velocity.ApproxEqual(vecmath.New(-0.2, 0), 1e-9) {
		t.Errorf("Ожидали отраженную скорость (-0.2, 0), получили %v", h.Velocity)
	}
	if again := m.CollisionInfo(h); again.Collided {
		t.Errorf("Лошадь осталась в препятствии после выталкивания: %+v", again)
	}
	if h.ResolveObstacle(world.CollisionInfo{}) {
		t.Error("Пустое столкновение не должно ничего менять")
	}
}

func TestHorseTrailIsBounded(t *testing.T) {
	bounds := world.DefaultBounds()
	h := NewHorse("Horse 1", vecmath.New(0.5, 0.5), vecmath.New(0.01, 0), 0.02, "#E63946")

	for i := 0; i < 15; i++ {
		h.Update(0.1, nil, bounds)
	}
	if len(h.Trail) != DefaultTrailLength {
		t.Fatalf("Ожидали %d точек следа, получили %d", DefaultTrailLength, len(h.Trail))
	}
	if h.Trail[len(h.Trail)-1] != h.Position {
		t.Errorf("Последняя точка следа %v должна совпадать с позицией %v", h.Trail[len(h.Trail)-1], h.Position)
	}

	h.SetTrail(0.1, 3)
	if len(h.Trail) != 3 {
		t.Errorf("След должен обрезаться до 3, получили %d", len(h.Trail))
	}
}

func TestHorseCoinCollision(t *testing.T) {
	h := NewHorse("Horse 1", vecmath.New(0.85, 0.15), vecmath.New(0.2, 0), 0.02, "#E63946")
	coin := NewCoin(vecmath.New(0.85, 0.15), 0.025)

	if !h.CheckCollision(coin) {
		t.Fatal("Лошадь на монете должна с ней пересекаться")
	}
	if !coin.CheckCollision(h) {
		t.Fatal("Несобранная монета должна пересекаться с лошадью")
	}
	if !coin.Collect() {
		t.Fatal("Первый Collect должен быть успешным")
	}
	if coin.Collect() {
		t.Error("Повторный Collect должен сообщить, что монета уже собрана")
	}
	if coin.CheckCollision(h) {
		t.Error("Собранная монета не должна пересекаться")
	}
}

func TestCountdownReachesZero(t *testing.T) {
	bounds := world.DefaultBounds()
	c := NewCountdown(bounds.Center(), vecmath.New(0.3, 0.1), 0.05, 5)

	previous := c.Value
	for i := 0; i < 5; i++ {
		if !c.Active {
			t.Fatalf("Отсчет выключился раньше времени на шаге %d", i)
		}
		c.Update(1.0, bounds)
		if c.Value > previous {
			t.Fatalf("Отсчет вырос с %d до %d", previous, c.Value)
		}
		previous = c.Value
		if !bounds.Contains(c.Position, c.Size, 1e-9) {
			t.Errorf("Отсчет вышел за границы: %v", c.Position)
		}
	}

	if c.Value != 0 || c.Active {
		t.Errorf("Ожидали значение 0 и выключенный отсчет, получили value=%d active=%v", c.Value, c.Active)
	}
	if c.Update(1.0, bounds) {
		t.Error("Выключенный отсчет не должен меняться")
	}
}

func TestEntityKinds(t *testing.T) {
	entities := []Entity{
		NewHorse("h", vecmath.New(0.5, 0.5), vecmath.New(0.2, 0), 0.02, ""),
		NewCoin(vecmath.New(0.85, 0.15), 0.025),
		NewCountdown(vecmath.New(0.5, 0.5), vecmath.New(0.3, 0.1), 0.05, 3),
	}
	want := []Kind{KindHorse, KindCoin, KindCountdown}

	for i, e := range entities {
		if e.Kind() != want[i] {
			t.Errorf("Объект %d: ожидали тип %s, получили %s", i, want[i], e.Kind())
		}
		if e.Radius() <= 0 {
			t.Errorf("Объект %d: радиус должен быть положительным", i)
		}
	}
}

func BenchmarkHorseUpdate(b *testing.B) {
	bounds := world.DefaultBounds()
	rng := rand.New(rand.NewPCG(1, 1))
	horses := make([]*Horse, 16)
	for i := range horses {
		horses[i] = NewHorse("h", vecmath.New(0.12+rng.Float64()*0.76, 0.12+rng.Float64()*0.76),
			vecmath.FromAngle(rng.Float64()*2*math.Pi, 0.2), 0.02, "")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, h := range horses {
			h.Update(0.016, horses, bounds)
		}
	}
}
