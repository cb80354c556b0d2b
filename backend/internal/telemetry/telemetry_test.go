package telemetry

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"horse-race/backend/internal/entity"
	"horse-race/backend/internal/vecmath"
)

func newTestManager() *TelemetryManager {
	return NewTelemetryManager(log.New(io.Discard, "", 0))
}

func TestLogHorseState(t *testing.T) {
	tm := newTestManager()
	horse := entity.NewHorse("Horse 1", vecmath.New(0.3, 0.4), vecmath.New(0.12, 0.16), 0.02, "#fff")

	tm.LogHorseState(7, 1.5, horse)

	entries := tm.Entries()
	if len(entries) != 1 {
		t.Fatalf("Ожидалась 1 запись, получено %d", len(entries))
	}
	e := entries[0]
	if e.ObjectID != "Horse 1" || e.Kind != KindState || e.Tick != 7 {
		t.Errorf("Неверная запись: %+v", e)
	}
	if e.Speed < 0.2-1e-12 || e.Speed > 0.2+1e-12 {
		t.Errorf("Ожидалась скорость 0.2, получено %f", e.Speed)
	}
	if tm.Counters()[KindState] != 1 {
		t.Errorf("Счетчик состояний не увеличен")
	}
}

func TestBufferIsBounded(t *testing.T) {
	tm := newTestManager()
	horse := entity.NewHorse("Horse 1", vecmath.New(0.5, 0.5), vecmath.New(0.1, 0), 0.02, "#fff")

	for i := 0; i < 250; i++ {
		tm.LogHorseState(uint64(i), 0, horse)
	}

	entries := tm.Entries()
	if len(entries) != 200 {
		t.Fatalf("Ожидалось 200 записей, получено %d", len(entries))
	}
	if entries[0].Tick != 50 || entries[199].Tick != 249 {
		t.Errorf("В буфере должны остаться последние записи: первая %d, последняя %d", entries[0].Tick, entries[199].Tick)
	}
}

func TestLogCollisions(t *testing.T) {
	tm := newTestManager()

	tm.LogCollisions(1, KindWall, 0)
	tm.LogCollisions(1, KindObstacle, 3)

	entries := tm.Entries()
	if len(entries) != 1 || entries[0].Kind != KindObstacle || entries[0].Count != 3 {
		t.Fatalf("Неожиданные записи: %+v", entries)
	}
	if got := tm.Counters()["collision_"+KindObstacle]; got != 3 {
		t.Errorf("Ожидалось 3 столкновения, получено %d", got)
	}
}

func TestDisabledManagerIgnoresData(t *testing.T) {
	tm := newTestManager()
	tm.SetEnabled(false)

	tm.LogHorseState(1, 0, entity.NewHorse("Horse 1", vecmath.New(0.5, 0.5), vecmath.New(0.1, 0), 0.02, "#fff"))
	tm.LogCollisions(1, KindHorse, 2)

	if len(tm.Entries()) != 0 {
		t.Errorf("Выключенная телеметрия не должна писать данные")
	}
	if tm.Enabled() {
		t.Errorf("Телеметрия должна быть выключена")
	}
}

func TestJSONAndClear(t *testing.T) {
	tm := newTestManager()
	tm.LogHorseState(3, 0.5, entity.NewHorse("Horse 2", vecmath.New(0.5, 0.5), vecmath.New(0, 0.1), 0.02, "#fff"))

	raw, err := tm.GetTelemetryJSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Entries  []TelemetryData `json:"entries"`
		Counters map[string]int  `json:"counters"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("Некорректный JSON: %v", err)
	}
	if len(decoded.Entries) != 1 || decoded.Entries[0].ObjectID != "Horse 2" {
		t.Errorf("Неожиданные данные: %+v", decoded.Entries)
	}
	if len(decoded.Counters) == 0 {
		t.Errorf("Счетчики не попали в JSON")
	}

	tm.Clear()
	if len(tm.Entries()) != 0 || len(tm.Counters()) != 0 {
		t.Errorf("Данные не очищены")
	}
}

func TestPrintSummaryResetsCounters(t *testing.T) {
	tm := newTestManager()
	tm.SetPrintInterval(0)
	tm.LogHorseState(1, 0, entity.NewHorse("Horse 1", vecmath.New(0.5, 0.5), vecmath.New(0.1, 0), 0.02, "#fff"))

	tm.PrintSummary()

	if len(tm.Counters()) != 0 {
		t.Errorf("Сводка должна сбрасывать счетчики")
	}
	if len(tm.Entries()) != 1 {
		t.Errorf("Сводка не должна очищать записи")
	}
}
