package reconcile

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// mockExecutor はExecutorのモック実装。クエリごとの修復行数を記録する。
type mockExecutor struct {
	queries []string
	results []int64 // クエリ順に返すRowsAffected。足りない分は0。
	errAt   int     // このインデックスのクエリでエラーを返す。-1で無効。
}

func newMockExecutor(results ...int64) *mockExecutor {
	return &mockExecutor{results: results, errAt: -1}
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	idx := len(m.queries)
	m.queries = append(m.queries, query)
	if m.errAt == idx {
		return nil, errors.New("db connection lost")
	}
	var affected int64
	if idx < len(m.results) {
		affected = m.results[idx]
	}
	return &fakeResult{rowsAffected: affected}, nil
}

// mockCollector はCollectorのモック実装。
type mockCollector struct {
	runs     int
	repaired int
}

func (m *mockCollector) RecordReconcileRun(repaired int) {
	m.runs++
	m.repaired += repaired
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestJob_Run_ExecutesAllSteps(t *testing.T) {
	var buf bytes.Buffer
	mock := newMockExecutor(2, 1, 3, 5)
	job := NewJob(mock, newTestLogger(&buf), nil)

	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if len(mock.queries) != 4 {
		t.Fatalf("実行クエリ数 = %d, want 4", len(mock.queries))
	}

	// 各ステップが正しいテーブルを対象にしていること
	if !strings.Contains(mock.queries[0], "UPDATE newzer_stats") {
		t.Errorf("ステップ1は newzer_stats を更新すべき: %s", mock.queries[0])
	}
	if !strings.Contains(mock.queries[1], "UPDATE station_refs") {
		t.Errorf("ステップ2は station_refs を更新すべき: %s", mock.queries[1])
	}
	if !strings.Contains(mock.queries[2], "UPDATE newz_metrics") {
		t.Errorf("ステップ3は newz_metrics を更新すべき: %s", mock.queries[2])
	}
	if !strings.Contains(mock.queries[3], "DELETE FROM sessions") {
		t.Errorf("ステップ4は sessions を削除すべき: %s", mock.queries[3])
	}

	if result.StatsRepaired != 2 {
		t.Errorf("StatsRepaired = %d, want 2", result.StatsRepaired)
	}
	if result.RefsRepaired != 1 {
		t.Errorf("RefsRepaired = %d, want 1", result.RefsRepaired)
	}
	if result.RatingsRepaired != 3 {
		t.Errorf("RatingsRepaired = %d, want 3", result.RatingsRepaired)
	}
	if result.SessionsPruned != 5 {
		t.Errorf("SessionsPruned = %d, want 5", result.SessionsPruned)
	}
}

func TestJob_Run_RepairedExcludesSessions(t *testing.T) {
	var buf bytes.Buffer
	mock := newMockExecutor(2, 1, 3, 100)
	job := NewJob(mock, newTestLogger(&buf), nil)

	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	// セッション削除はカウンター修復に数えない
	if result.Repaired() != 6 {
		t.Errorf("Repaired() = %d, want 6", result.Repaired())
	}
}

func TestJob_Run_OnlyUpdatesDivergedRows(t *testing.T) {
	var buf bytes.Buffer
	mock := newMockExecutor()
	job := NewJob(mock, newTestLogger(&buf), nil)

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	// カウンター更新クエリはすべて差分条件を持つこと
	for i, query := range mock.queries[:3] {
		if !strings.Contains(query, "<>") {
			t.Errorf("ステップ%dのクエリに差分条件がない: %s", i+1, query)
		}
	}
}

func TestJob_Run_ViewsAndSharesAreNotReconciled(t *testing.T) {
	var buf bytes.Buffer
	mock := newMockExecutor()
	job := NewJob(mock, newTestLogger(&buf), nil)

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	// 共有リンク視聴は重複排除レコードを持たないため、
	// viewsとsharesの列を書き換えるクエリがあってはならない
	for _, query := range mock.queries {
		if strings.Contains(query, "views =") || strings.Contains(query, "shares =") {
			t.Errorf("viewsまたはsharesを再集計するクエリが存在する: %s", query)
		}
	}
}

func TestJob_Run_RecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	collector := &mockCollector{}
	mock := newMockExecutor(1, 2, 4, 0)
	job := NewJob(mock, newTestLogger(&buf), collector)

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if collector.runs != 1 {
		t.Errorf("runs = %d, want 1", collector.runs)
	}
	if collector.repaired != 7 {
		t.Errorf("repaired = %d, want 7", collector.repaired)
	}
}

func TestJob_Run_StepFailure_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	mock := newMockExecutor(5)
	mock.errAt = 1 // station_refsステップで失敗
	collector := &mockCollector{}
	job := NewJob(mock, newTestLogger(&buf), collector)

	result, err := job.Run(context.Background())
	if err == nil {
		t.Fatal("Run() はエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "station_refs") {
		t.Errorf("エラーに失敗ステップ名が含まれていない: %v", err)
	}

	// 完了済みステップの結果は保持される
	if result.StatsRepaired != 5 {
		t.Errorf("StatsRepaired = %d, want 5", result.StatsRepaired)
	}

	// 失敗時はメトリクスを記録しない
	if collector.runs != 0 {
		t.Errorf("runs = %d, want 0", collector.runs)
	}
}

func TestJob_Run_LogsResultSummary(t *testing.T) {
	var buf bytes.Buffer
	mock := newMockExecutor(1, 0, 0, 2)
	job := NewJob(mock, newTestLogger(&buf), nil)

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "stats_repaired") {
		t.Errorf("ログに stats_repaired が含まれていない: %s", logOutput)
	}
	if !strings.Contains(logOutput, "sessions_pruned") {
		t.Errorf("ログに sessions_pruned が含まれていない: %s", logOutput)
	}
}
