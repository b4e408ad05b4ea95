package store

import (
	"context"
	"sync"

	"menu-scanner/internal/core/allergy"
)

// MemoryStore 記憶體儲存，未設定資料庫時與測試使用
type MemoryStore struct {
	mu        sync.RWMutex
	analyses  []AnalysisRecord
	allergies map[int64][]allergy.Allergy
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		allergies: make(map[int64][]allergy.Allergy),
	}
}

// SaveAnalysis 保存分析紀錄
func (s *MemoryStore) SaveAnalysis(ctx context.Context, record AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.analyses = append(s.analyses, record)
	return nil
}

// Analyses 取得已保存的分析紀錄
func (s *MemoryStore) Analyses() []AnalysisRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AnalysisRecord, len(s.analyses))
	copy(out, s.analyses)
	return out
}

// ListAllergies 列出過敏設定
func (s *MemoryStore) ListAllergies(ctx context.Context, userID int64) ([]allergy.Allergy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]allergy.Allergy, len(s.allergies[userID]))
	copy(out, s.allergies[userID])
	return out, nil
}

// ReplaceAllergies 取代過敏設定
func (s *MemoryStore) ReplaceAllergies(ctx context.Context, userID int64, allergies []allergy.Allergy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(allergies) == 0 {
		delete(s.allergies, userID)
		return nil
	}
	stored := make([]allergy.Allergy, len(allergies))
	copy(stored, allergies)
	s.allergies[userID] = stored
	return nil
}

// Ping 記憶體儲存永遠可用
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
