package helpers

import (
	"context"
)

func IsContextDone(ctx context.Context) bool {
	if ctx == nil {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return false
}

// RoundHours округление до сотых для человекочитаемых отчётов о ходе размещения
func RoundHours(hours float64) float64 {
	return float64(int64(hours*100+0.5)) / 100
}
