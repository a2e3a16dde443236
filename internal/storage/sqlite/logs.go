package sqlite

import (
	"strings"
	"time"

	"github.com/modelgate/modelgate/internal/storage/models"
)

const insertLogSQL = `
	INSERT INTO request_logs (id, request_id, route, model, provider,
		prompt_tokens, completion_tokens, total_tokens, is_streaming,
		status_code, error_message, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// prepareLog fills defaults on a log entry before insert.
func prepareLog(log *models.RequestLog) {
	if log.ID == "" {
		log.ID = generateID("log")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if log.Route == "" {
		log.Route = models.RouteCompletions
	}
}

// logArgs binds a log entry in insertLogSQL column order.
func logArgs(log *models.RequestLog) []any {
	return []any{
		log.ID, log.RequestID, log.Route, log.Model, log.Provider,
		log.PromptTokens, log.CompletionTokens, log.TotalTokens, boolToInt(log.IsStreaming),
		log.StatusCode, log.ErrorMessage, log.DurationMs, log.CreatedAt,
	}
}

// LogRequest stores one request log entry.
func (s *Storage) LogRequest(log *models.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	prepareLog(log)
	_, err := s.db.Exec(insertLogSQL, logArgs(log)...)
	return err
}

// LogRequestsBatch stores a batch of log entries in one transaction, as the
// async log writer flushes them.
func (s *Storage) LogRequestsBatch(logs []*models.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertLogSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, log := range logs {
		prepareLog(log)
		if _, err := stmt.Exec(logArgs(log)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetRequestLogs returns log entries matching the filter, newest first.
func (s *Storage) GetRequestLogs(filter models.LogFilter) ([]*models.RequestLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	conds := []string{"1=1"}
	var args []any
	and := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}

	if filter.Route != "" {
		and("route = ?", filter.Route)
	}
	if filter.Model != "" {
		and("model = ?", filter.Model)
	}
	if filter.Provider != "" {
		and("provider = ?", filter.Provider)
	}
	if filter.StatusCode != nil {
		and("status_code = ?", *filter.StatusCode)
	}
	if filter.StartDate != nil {
		and("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		and("created_at <= ?", *filter.EndDate)
	}

	query := `SELECT id, request_id, route, COALESCE(model, ''), provider,
		prompt_tokens, completion_tokens, total_tokens, is_streaming,
		status_code, COALESCE(error_message, ''), duration_ms, created_at
		FROM request_logs WHERE ` + strings.Join(conds, " AND ") +
		" ORDER BY created_at DESC"

	// SQLite only allows OFFSET after LIMIT; -1 means unbounded
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, max(filter.Offset, 0))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		var log models.RequestLog
		var isStreaming int
		if err := rows.Scan(&log.ID, &log.RequestID, &log.Route, &log.Model, &log.Provider,
			&log.PromptTokens, &log.CompletionTokens, &log.TotalTokens, &isStreaming,
			&log.StatusCode, &log.ErrorMessage, &log.DurationMs, &log.CreatedAt); err != nil {
			return nil, err
		}
		log.IsStreaming = isStreaming == 1
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}

// DeleteRequestLogs removes entries created before the YYYY-MM-DD cutoff and
// reports how many went.
func (s *Storage) DeleteRequestLogs(olderThan string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStorageClosed
	}

	result, err := s.db.Exec("DELETE FROM request_logs WHERE DATE(created_at) < ?", olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
