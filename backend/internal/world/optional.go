package world

import (
	"bytes"
	"encoding/json"
	"fmt"

	"horse-race/backend/internal/vecmath"
)

// OptionalPoint точка спавна в формате обмена картами.
// Различает три состояния: поле отсутствует (оставить текущее значение),
// явный null (вернуть значение по умолчанию) и заданная точка.
type OptionalPoint struct {
	Present bool
	Null    bool
	Point   vecmath.Vector2D
}

// Absent поле не передано
func Absent() OptionalPoint {
	return OptionalPoint{}
}

// Null явный сброс к значению по умолчанию
func Null() OptionalPoint {
	return OptionalPoint{Present: true, Null: true}
}

// Some заданная точка
func Some(p vecmath.Vector2D) OptionalPoint {
	return OptionalPoint{Present: true, Point: p}
}

// IsSet true если передана конкретная точка
func (o OptionalPoint) IsSet() bool {
	return o.Present && !o.Null
}

// Resolve применяет значение к текущему: absent -> current, null -> def, точка -> точка
func (o OptionalPoint) Resolve(current, def vecmath.Vector2D) vecmath.Vector2D {
	switch {
	case !o.Present:
		return current
	case o.Null:
		return def
	default:
		return o.Point
	}
}

// Ptr точка или nil
func (o OptionalPoint) Ptr() *vecmath.Vector2D {
	if !o.IsSet() {
		return nil
	}
	p := o.Point
	return &p
}

func (o *OptionalPoint) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		o.Point = vecmath.Vector2D{}
		return nil
	}

	var p vecmath.Vector2D
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("error parsing spawn point: %w", err)
	}
	if !p.IsFinite() {
		return fmt.Errorf("spawn point is not finite: %v", p)
	}
	o.Null = false
	o.Point = p
	return nil
}

// MarshalJSON отсутствующее поле сериализуется как null
func (o OptionalPoint) MarshalJSON() ([]byte, error) {
	if !o.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Point)
}
