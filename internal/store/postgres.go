package store

import (
	"context"
	"fmt"
	"time"

	"menu-scanner/internal/core/allergy"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore 以 PostgreSQL 實作 AnalysisStore 與 AllergyStore
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore 創建 PostgreSQL 儲存
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveAnalysis 寫入一筆分析紀錄
func (s *PostgresStore) SaveAnalysis(ctx context.Context, record AnalysisRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	// analysis_result 為 JSON 欄位，空值寫入 NULL
	var result []byte
	if len(record.AnalysisResult) > 0 {
		result = record.AnalysisResult
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO menu_analyses (
			user_id,
			image_url,
			extracted_text,
			translated_text,
			analysis_result,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, record.UserID, record.ImageURL, record.ExtractedText, record.TranslatedText, result, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert menu analysis: %w", err)
	}
	return nil
}

// ListAllergies 依建立順序列出過敏設定
func (s *PostgresStore) ListAllergies(ctx context.Context, userID int64) ([]allergy.Allergy, error) {
	rows, err := s.db.Query(ctx, `
		SELECT allergy_name, severity
		FROM user_allergies
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allergies: %w", err)
	}

	allergies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (allergy.Allergy, error) {
		var a allergy.Allergy
		var severity string
		if err := row.Scan(&a.Name, &severity); err != nil {
			return a, err
		}
		a.Severity = allergy.Severity(severity)
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan allergies: %w", err)
	}
	return allergies, nil
}

// ReplaceAllergies 在同一個交易中刪除舊設定並寫入新設定
func (s *PostgresStore) ReplaceAllergies(ctx context.Context, userID int64, allergies []allergy.Allergy) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM user_allergies WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete allergies: %w", err)
	}

	if len(allergies) > 0 {
		now := time.Now()
		rows := make([][]any, 0, len(allergies))
		for _, a := range allergies {
			rows = append(rows, []any{userID, a.Name, string(a.Severity), now, now})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"user_allergies"},
			[]string{"user_id", "allergy_name", "severity", "created_at", "updated_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to insert allergies: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit allergies: %w", err)
	}
	return nil
}

// Ping 檢查資料庫連線
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
