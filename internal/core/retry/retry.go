// Package retry 提供外部服務呼叫的重試與退避
package retry

import (
	"context"
	"fmt"
	"time"
)

// DelayFunc 依照已失敗的次數（從 1 開始）回傳下一次嘗試前的等待時間
type DelayFunc func(attempt int) time.Duration

// SleepFunc 等待指定時間，ctx 取消時提前返回
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fixed 固定間隔
func Fixed(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

// Exponential 指數退避：base * 2^(attempt-1)
func Exponential(base time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << uint(attempt-1)
	}
}

// Policy 重試設定
type Policy struct {
	Name        string
	MaxAttempts int
	Delay       DelayFunc
	// Timeout 為單次嘗試的逾時，0 表示不限制
	Timeout time.Duration
	// Sleep 預設為 SleepContext，測試可替換
	Sleep SleepFunc
	// OnFailure 每次失敗後呼叫，可用於記錄日誌
	OnFailure func(attempt int, err error)
}

// ExhaustedError 所有嘗試都失敗
type ExhaustedError struct {
	Name     string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Name, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// SleepContext 不阻塞其他請求的等待，ctx 結束時返回 ctx.Err()
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do 執行 op，失敗時依 Policy 等待後重試，最後一次失敗回傳 *ExhaustedError。
// 每次嘗試可能已對遠端產生作用，這裡不做去重也不取消執行中的請求。
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay == nil {
		delay = Fixed(0)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	name := p.Name
	if name == "" {
		name = "operation"
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := runAttempt(ctx, p.Timeout, op)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if p.OnFailure != nil {
			p.OnFailure(attempt, err)
		}
		if attempt == attempts {
			break
		}
		if serr := sleep(ctx, delay(attempt)); serr != nil {
			return zero, &ExhaustedError{Name: name, Attempts: attempt, Last: lastErr}
		}
	}

	return zero, &ExhaustedError{Name: name, Attempts: attempts, Last: lastErr}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}
