package sqlite

import (
	"strings"

	"github.com/modelgate/modelgate/internal/storage/models"
)

// statsConds translates a StatsFilter into WHERE conditions shared by the
// aggregate and per-model queries.
func statsConds(filter models.StatsFilter) ([]string, []any) {
	conds := []string{"1=1"}
	var args []any

	if filter.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Model != "" {
		conds = append(conds, "model = ?")
		args = append(args, filter.Model)
	}
	if filter.StartDate != nil {
		conds = append(conds, "date >= ?")
		args = append(args, filter.StartDate.Format("2006-01-02"))
	}
	if filter.EndDate != nil {
		conds = append(conds, "date <= ?")
		args = append(args, filter.EndDate.Format("2006-01-02"))
	}
	return conds, args
}

const usageSums = `
	COALESCE(SUM(request_count), 0),
	COALESCE(SUM(prompt_tokens), 0),
	COALESCE(SUM(completion_tokens), 0),
	COALESCE(SUM(total_tokens), 0),
	COALESCE(SUM(error_count), 0)`

// UpdateDailyUsage upserts one rollup row keyed by date, provider and model,
// adding the increment onto whatever is already there.
func (s *Storage) UpdateDailyUsage(usage *models.DailyUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO usage_daily (date, provider, model, request_count,
			prompt_tokens, completion_tokens, total_tokens, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, provider, model) DO UPDATE SET
			request_count = request_count + excluded.request_count,
			prompt_tokens = prompt_tokens + excluded.prompt_tokens,
			completion_tokens = completion_tokens + excluded.completion_tokens,
			total_tokens = total_tokens + excluded.total_tokens,
			error_count = error_count + excluded.error_count
	`, usage.Date, usage.Provider, usage.Model, usage.RequestCount,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, usage.ErrorCount)
	return err
}

// GetUsageStats aggregates the rollups matching the filter, with a per-model
// breakdown over the same window.
func (s *Storage) GetUsageStats(filter models.StatsFilter) (*models.UsageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	conds, args := statsConds(filter)
	where := strings.Join(conds, " AND ")

	stats := &models.UsageStats{
		ModelBreakdown: make(map[string]*models.ModelStats),
	}
	err := s.db.QueryRow(
		"SELECT "+usageSums+" FROM usage_daily WHERE "+where, args...,
	).Scan(
		&stats.TotalRequests,
		&stats.TotalPromptTokens,
		&stats.TotalCompletionTokens,
		&stats.TotalTokens,
		&stats.ErrorCount,
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		"SELECT model, "+usageSums+" FROM usage_daily WHERE "+where+" GROUP BY model", args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ms models.ModelStats
		if err := rows.Scan(&ms.Model, &ms.RequestCount, &ms.PromptTokens,
			&ms.CompletionTokens, &ms.TotalTokens, &ms.ErrorCount); err != nil {
			return nil, err
		}
		stats.ModelBreakdown[ms.Model] = &ms
	}
	return stats, rows.Err()
}

// GetDailyUsage returns the raw rollup rows for an inclusive date range.
func (s *Storage) GetDailyUsage(startDate, endDate string) ([]*models.DailyUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	rows, err := s.db.Query(`
		SELECT date, provider, model, request_count,
			prompt_tokens, completion_tokens, total_tokens, error_count
		FROM usage_daily
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, provider ASC, model ASC
	`, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []*models.DailyUsage
	for rows.Next() {
		var u models.DailyUsage
		if err := rows.Scan(&u.Date, &u.Provider, &u.Model, &u.RequestCount,
			&u.PromptTokens, &u.CompletionTokens, &u.TotalTokens, &u.ErrorCount); err != nil {
			return nil, err
		}
		usage = append(usage, &u)
	}
	return usage, rows.Err()
}
