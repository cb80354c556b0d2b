package entity

import (
	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

// Coin статичная цель гонки
type Coin struct {
	Position  vecmath.Vector2D `json:"position"`
	Size      float64          `json:"size"`
	Collected bool             `json:"collected"`
}

func NewCoin(position vecmath.Vector2D, size float64) *Coin {
	return &Coin{Position: position, Size: size}
}

func (c *Coin) Pos() vecmath.Vector2D { return c.Position }
func (c *Coin) Radius() float64       { return c.Size }
func (c *Coin) Kind() Kind            { return KindCoin }
func (c *Coin) sealed()               {}

// CheckCollision пересечение кругов; собранная монета ни с чем не пересекается
func (c *Coin) CheckCollision(other world.Body) bool {
	if c.Collected {
		return false
	}
	return overlaps(c, other)
}

// Collect помечает монету собранной. Возвращает false, если она уже собрана.
func (c *Coin) Collect() bool {
	if c.Collected {
		return false
	}
	c.Collected = true
	return true
}

func (c *Coin) Clone() *Coin {
	cc := *c
	return &cc
}
