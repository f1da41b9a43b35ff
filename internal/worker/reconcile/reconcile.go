// Package reconcile は非正規化カウンターの再集計ジョブを提供する。
// newzer_stats・station_refs・平均評価を元データから数え直して修復し、
// 期限切れセッションを削除する。定期実行のバッチジョブとして設計されており、
// すべてのステップは冪等で、差分のある行のみを更新する。
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Collector は再集計の実行結果を記録するインターフェース。
type Collector interface {
	RecordReconcileRun(repaired int)
}

// Result は1回の再集計で修復された行数の内訳。
type Result struct {
	StatsRepaired   int64 // newzer_statsの修復行数
	RefsRepaired    int64 // station_refsの修復行数
	RatingsRepaired int64 // 平均評価の修復行数
	SessionsPruned  int64 // 削除された期限切れセッション数
}

// Repaired は修復されたカウンター行数の合計を返す（セッション削除は含めない）。
func (r Result) Repaired() int64 {
	return r.StatsRepaired + r.RefsRepaired + r.RatingsRepaired
}

// Job は非正規化カウンターの再集計ジョブ。
type Job struct {
	db      Executor
	logger  *slog.Logger
	metrics Collector
}

// NewJob は新しいJobを生成する。metricsはnilでもよい。
func NewJob(db Executor, logger *slog.Logger, metrics Collector) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		db:      db,
		logger:  logger,
		metrics: metrics,
	}
}

// reconcileStatsQuery はnewzer_statsの3カウンターを元データから数え直す。
// 差分のある行のみを更新する。
const reconcileStatsQuery = `
UPDATE newzer_stats ns SET
	follower_count = sub.followers,
	newz_count     = sub.newz,
	station_count  = sub.stations,
	updated_at     = now()
FROM (
	SELECT u.id AS owner_id,
		(SELECT COUNT(*) FROM follows f WHERE f.followed_id = u.id)  AS followers,
		(SELECT COUNT(*) FROM newz_items n WHERE n.owner_id = u.id)  AS newz,
		(SELECT COUNT(*) FROM stations s WHERE s.owner_id = u.id)    AS stations
	FROM users u
) sub
WHERE ns.owner_id = sub.owner_id
  AND (ns.follower_count <> sub.followers
    OR ns.newz_count <> sub.newz
    OR ns.station_count <> sub.stations)`

// reconcileRefsQuery はstation_refsのニュース数と可視性フラグを同期する。
const reconcileRefsQuery = `
UPDATE station_refs sr SET
	newz_count = sub.newz,
	is_public  = sub.is_public,
	updated_at = now()
FROM (
	SELECT st.id AS station_id, st.is_public,
		(SELECT COUNT(*) FROM newz_item_stations nis WHERE nis.station_id = st.id) AS newz
	FROM stations st
) sub
WHERE sr.station_id = sub.station_id
  AND (sr.newz_count <> sub.newz OR sr.is_public <> sub.is_public)`

// reconcileRatingsQuery は平均評価を評価レコードから再計算する。
// viewsとsharesは再集計しない: 共有リンク経由の視聴は重複排除レコードを
// 持たないため、元データから数え直すと失われる。
const reconcileRatingsQuery = `
UPDATE newz_metrics nm SET
	avg_rating = sub.avg,
	updated_at = now()
FROM (
	SELECT n.id AS newz_id, COALESCE(AVG(r.score), 0) AS avg
	FROM newz_items n
	LEFT JOIN newz_ratings r ON r.newz_id = n.id
	GROUP BY n.id
) sub
WHERE nm.newz_id = sub.newz_id
  AND nm.avg_rating <> sub.avg`

// pruneSessionsQuery は期限切れセッションを削除する。
const pruneSessionsQuery = `DELETE FROM sessions WHERE expires_at < now()`

// Run は再集計を1回実行し、修復行数の内訳を返す。
// いずれかのステップが失敗した場合はそこで中断するが、
// 完了済みステップの修復は保持される（各ステップは独立して冪等）。
func (j *Job) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var result Result

	steps := []struct {
		name  string
		query string
		count *int64
	}{
		{"newzer_stats", reconcileStatsQuery, &result.StatsRepaired},
		{"station_refs", reconcileRefsQuery, &result.RefsRepaired},
		{"avg_rating", reconcileRatingsQuery, &result.RatingsRepaired},
		{"sessions", pruneSessionsQuery, &result.SessionsPruned},
	}

	for _, step := range steps {
		res, err := j.db.ExecContext(ctx, step.query)
		if err != nil {
			j.logger.Error("再集計ステップの実行に失敗しました",
				slog.String("step", step.name),
				slog.String("error", err.Error()),
			)
			return result, fmt.Errorf("再集計ステップ %s の実行に失敗: %w", step.name, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("再集計ステップ %s の件数取得に失敗: %w", step.name, err)
		}
		*step.count = affected
	}

	if j.metrics != nil {
		j.metrics.RecordReconcileRun(int(result.Repaired()))
	}

	duration := time.Since(start)
	j.logger.Info("再集計ジョブが完了しました",
		slog.Int64("stats_repaired", result.StatsRepaired),
		slog.Int64("refs_repaired", result.RefsRepaired),
		slog.Int64("ratings_repaired", result.RatingsRepaired),
		slog.Int64("sessions_pruned", result.SessionsPruned),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return result, nil
}
