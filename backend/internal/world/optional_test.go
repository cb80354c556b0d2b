package world

import (
	"encoding/json"
	"testing"

	"horse-race/backend/internal/vecmath"
)

func TestOptionalPointUnmarshal(t *testing.T) {
	tests := []struct {
		name        string
		json        string
		wantPresent bool
		wantNull    bool
		wantPoint   vecmath.Vector2D
	}{
		{"absent", `{}`, false, false, vecmath.Vector2D{}},
		{"null", `{"spawn": null}`, true, true, vecmath.Vector2D{}},
		{"point", `{"spawn": {"x": 0.2, "y": 0.3}}`, true, false, vecmath.New(0.2, 0.3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var holder struct {
				Spawn OptionalPoint `json:"spawn"`
			}
			if err := json.Unmarshal([]byte(tt.json), &holder); err != nil {
				t.Fatalf("Неожиданная ошибка: %v", err)
			}
			if holder.Spawn.Present != tt.wantPresent || holder.Spawn.Null != tt.wantNull {
				t.Errorf("Ожидали present=%v null=%v, получили %+v", tt.wantPresent, tt.wantNull, holder.Spawn)
			}
			if holder.Spawn.Point != tt.wantPoint {
				t.Errorf("Ожидали точку %v, получили %v", tt.wantPoint, holder.Spawn.Point)
			}
		})
	}
}

func TestOptionalPointResolve(t *testing.T) {
	current := vecmath.New(0.3, 0.3)
	def := vecmath.New(0.15, 0.85)

	if got := Absent().Resolve(current, def); got != current {
		t.Errorf("Отсутствующее значение должно сохранять текущее, получили %v", got)
	}
	if got := Null().Resolve(current, def); got != def {
		t.Errorf("null должен сбрасывать к значению по умолчанию, получили %v", got)
	}
	if got := Some(vecmath.New(0.5, 0.5)).Resolve(current, def); got != vecmath.New(0.5, 0.5) {
		t.Errorf("Заданное значение должно применяться, получили %v", got)
	}
}

func TestOptionalPointMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A OptionalPoint `json:"a"`
		B OptionalPoint `json:"b"`
	}{A: Absent(), B: Some(vecmath.New(0.5, 0.25))})
	if err != nil {
		t.Fatalf("Ошибка сериализации: %v", err)
	}
	if string(data) != `{"a":null,"b":{"x":0.5,"y":0.25}}` {
		t.Errorf("Неожиданный JSON: %s", data)
	}
}

func TestOptionalPointRejectsGarbage(t *testing.T) {
	var holder struct {
		Spawn OptionalPoint `json:"spawn"`
	}
	if err := json.Unmarshal([]byte(`{"spawn": "left"}`), &holder); err == nil {
		t.Error("Ожидали ошибку для точки спавна не объектом")
	}
}
