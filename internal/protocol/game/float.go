package game

import "math"

func bitsToFloat32(bits uint32) float32 {
	return math.Float32frombits(bits)
}
