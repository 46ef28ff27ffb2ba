package lock

import (
	"context"
	"sync"
	"time"
)

var (
	lockMap sync.Map
)

func WithDelay(ctx context.Context, key string, wait time.Duration, safeCode func() error) (success bool, err error) {
	isLocked := false
	isTimeout := time.After(wait)
	for {
		if _, loaded := lockMap.LoadOrStore(key, true); !loaded {
			isLocked = true
			break
		}
		select {
		case <-isTimeout:
			return false, nil
		case <-ctx.Done():
			return false, nil
		default:
			time.Sleep(50 * time.Millisecond)
		}
	}
	if isLocked {
		defer lockMap.Delete(key)
		return true, safeCode()
	}
	return false, nil
}

// Try выполняет safeCode только если ключ свободен, без ожидания
func Try(key string, safeCode func() error) (success bool, err error) {
	if _, loaded := lockMap.LoadOrStore(key, true); loaded {
		return false, nil
	}
	defer lockMap.Delete(key)
	return true, safeCode()
}

// IsLocked ключ сейчас занят другой горутиной
func IsLocked(key string) bool {
	_, loaded := lockMap.Load(key)
	return loaded
}
