package stats

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"horse-race/backend/internal/game"
)

func newTestRecorder(t *testing.T, store Store) *Recorder {
	t.Helper()
	r, err := NewRecorder(context.Background(), store, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	r.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestRecorder_Events(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRecorder(t, store)

	r.OnRaceEvent(game.Event{Type: game.EventWon, Winner: "Horse 2"})
	r.OnRaceEvent(game.Event{Type: game.EventWon, Winner: "Horse 2"})
	r.OnRaceEvent(game.Event{Type: game.EventTimeUp, Winner: game.TimeUpWinner, MapID: "maze"})
	r.OnRaceEvent(game.Event{Type: game.EventCountdown, Countdown: 5})

	s := r.Stats()
	if s.Wins["Horse 2"] != 2 {
		t.Errorf("Ожидалось 2 победы, получено %d", s.Wins["Horse 2"])
	}
	if _, ok := s.Wins[game.TimeUpWinner]; ok {
		t.Errorf("Окончание по времени не должно давать победу")
	}
	if s.GamesPlayed != 3 {
		t.Errorf("Ожидалось 3 гонки, получено %d", s.GamesPlayed)
	}
	if s.CurrentMapID != "maze" {
		t.Errorf("Ожидалась текущая карта maze, получено %q", s.CurrentMapID)
	}
	if s.LastPlayed.IsZero() {
		t.Errorf("Время последней гонки не записано")
	}

	// статистика сохранена и читается новым экземпляром
	reloaded := newTestRecorder(t, store)
	if reloaded.Wins("Horse 2") != 2 || reloaded.Stats().GamesPlayed != 3 {
		t.Errorf("Статистика не сохранена: %+v", reloaded.Stats())
	}
}

func TestRecorder_StatsIsCopy(t *testing.T) {
	r := newTestRecorder(t, NewMemoryStore())
	if err := r.RecordWin(context.Background(), "Horse 1"); err != nil {
		t.Fatal(err)
	}

	s := r.Stats()
	s.Wins["Horse 1"] = 100

	if r.Wins("Horse 1") != 1 {
		t.Errorf("Изменение копии не должно влиять на статистику")
	}
}

func TestRecorder_Reset(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRecorder(t, store)

	if err := r.RecordWin(context.Background(), "Horse 1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Reset(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := r.Stats()
	if len(s.Wins) != 0 || s.GamesPlayed != 0 {
		t.Errorf("Статистика не сброшена: %+v", s)
	}
	if saved, _ := store.LoadStats(context.Background()); saved.GamesPlayed != 0 {
		t.Errorf("Сброс не сохранен")
	}
}

func TestRecorder_DefaultMap(t *testing.T) {
	r := newTestRecorder(t, NewMemoryStore())
	ctx := context.Background()

	if _, ok, err := r.DefaultMap(ctx); err != nil || ok {
		t.Fatalf("Карта по умолчанию не должна быть задана: ok=%v err=%v", ok, err)
	}
	if err := r.SetDefaultMap(ctx, "spiral"); err != nil {
		t.Fatal(err)
	}
	id, ok, err := r.DefaultMap(ctx)
	if err != nil || !ok || id != "spiral" {
		t.Errorf("Ожидалась карта spiral, получено %q ok=%v err=%v", id, ok, err)
	}
}

type failingStore struct {
	*MemoryStore
}

func (f failingStore) SaveStats(context.Context, Stats) error {
	return errors.New("диск заполнен")
}

func TestRecorder_SaveErrorIsReturned(t *testing.T) {
	r := newTestRecorder(t, failingStore{NewMemoryStore()})

	if err := r.RecordWin(context.Background(), "Horse 1"); err == nil {
		t.Errorf("Ожидалась ошибка сохранения")
	}

	// событие не паникует, ошибка только логируется
	r.OnRaceEvent(game.Event{Type: game.EventWon, Winner: "Horse 1"})
}
