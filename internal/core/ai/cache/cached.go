package cache

import (
	"context"
	"errors"

	"menu-scanner/internal/core/ai/provider"
	"menu-scanner/internal/pkg/common"

	"go.uber.org/zap"
)

// Cached 在 Completer 前加上快取，快取錯誤只記錄不影響補完
type Cached struct {
	next  provider.Completer
	store Store
}

// NewCached 包裝 Completer
func NewCached(next provider.Completer, store Store) *Cached {
	return &Cached{next: next, store: store}
}

// Name 沿用被包裝者的名稱
func (c *Cached) Name() string {
	return c.next.Name()
}

// Complete 命中時直接回傳快取內容，快取值為 Completion 的 JSON
func (c *Cached) Complete(ctx context.Context, req provider.Request) (provider.Completion, error) {
	key := Key(req)

	val, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var hit provider.Completion
		if perr := common.ParseJSONBytes([]byte(val), &hit); perr == nil && hit.Text != "" {
			return hit, nil
		}
		common.LogWarn("Discarding unreadable cache entry", zap.String("provider", c.next.Name()))
	case !errors.Is(err, common.ErrCacheMiss):
		common.LogWarn("Cache lookup failed", zap.String("provider", c.next.Name()), zap.Error(err))
	}

	completion, err := c.next.Complete(ctx, req)
	if err != nil {
		return provider.Completion{}, err
	}

	encoded, err := common.ToJSON(completion)
	if err == nil {
		err = c.store.Set(ctx, key, encoded)
	}
	if err != nil {
		common.LogWarn("Cache store failed", zap.String("provider", c.next.Name()), zap.Error(err))
	}

	return completion, nil
}
