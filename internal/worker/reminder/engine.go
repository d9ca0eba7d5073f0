// Package reminder は期限が近い記録の所有者へ通知を送る定期ジョブを提供する。
// 対象の抽出、メッセージ送信、送信済みの記録を含む。
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hitoshi/displaydate/internal/repository"
)

// DefaultInterval はスイープの実行間隔。
const DefaultInterval = time.Hour

const skipReasonCredentials = "gateway credentials missing or rejected"

// スイープの結果区分。
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Recorder はスイープの計測値を記録するインターフェース。
type Recorder interface {
	RecordSweep(outcome string, duration time.Duration)
	RecordDue(count int)
	RecordSent()
	RecordSendFailure(class string)
	RecordMarkFailure()
	RecordUnparseable(count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSweep(string, time.Duration) {}
func (nopRecorder) RecordDue(int) {}
func (nopRecorder) RecordSent() {}
func (nopRecorder) RecordSendFailure(string) {}
func (nopRecorder) RecordMarkFailure() {}
func (nopRecorder) RecordUnparseable(int) {}

// configuredSender は認証情報の有無を事前に判定できるSender。
type configuredSender interface {
	Configured() bool
}

// SweepResult は1回のスイープの集計。
type SweepResult struct {
	Candidates   int
	Due          int
	Sent         int
	Failed       int
	MarkFailed   int
	Unparseable  int
	SkipReason   string
	PanicMessage string
}

// Outcome は集計からスイープの結果区分を返す。
func (r SweepResult) Outcome() string {
	switch {
	case r.PanicMessage != "":
		return OutcomeError
	case r.SkipReason != "":
		return OutcomeSkipped
	case r.Failed > 0 || r.MarkFailed > 0:
		return OutcomePartial
	default:
		return OutcomeOK
	}
}

// Engine は期限通知のスイープを一定間隔で実行する。
// スイープは逐次実行され、同時に複数走ることはない。
// 1つのEngineでStartできるのは1回限り。停止後に再開する場合は新しいEngineを生成する。
type Engine struct {
	repo       repository.ReminderRepository
	sender     Sender
	dispatcher *Dispatcher
	clock      Clock
	recorder   Recorder
	logger     *slog.Logger
	interval   time.Duration

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewEngine はEngineを生成する。
// clockがnilの場合はSystemClock、recorderがnilの場合は何も記録しない実装を使用する。
func NewEngine(
	repo repository.ReminderRepository,
	sender Sender,
	config MessageConfig,
	clock Clock,
	recorder Recorder,
	logger *slog.Logger,
) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Engine{
		repo:       repo,
		sender:     sender,
		dispatcher: NewDispatcher(sender, config),
		clock:      clock,
		recorder:   recorder,
		logger:     logger,
		interval:   DefaultInterval,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start は起動直後に1回スイープし、以後interval毎に繰り返す。
// ctxがキャンセルされるかStopが呼ばれるまで戻らない。
// 2回目以降の呼び出しと、Stop済みのEngineに対する呼び出しは即座に戻る。
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		e.logger.Warn("リマインダーエンジンは既に起動しています")
		return
	}
	e.started = true
	e.mu.Unlock()

	defer close(e.done)

	select {
	case <-e.stopCh:
		e.logger.Info("リマインダーエンジンは起動前に停止されました")
		return
	default:
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Stopで実行中のスイープも中断する
	go func() {
		select {
		case <-e.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("リマインダーエンジンを開始しました",
		slog.Duration("interval", e.interval),
	)

	e.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("リマインダーエンジンを停止しました")
			return
		case <-ticker.C:
			e.RunOnce(ctx)
		}
	}
}

// Stop はループを停止し、Startが戻るのを待つ。
// Startより先に呼ばれた場合は以後のStartがスイープせずに戻る。複数回呼んでもよい。
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })

	e.mu.Lock()
	started := e.started
	e.mu.Unlock()

	if started {
		<-e.done
	}
}

// RunOnce は1回のスイープを実行する。
// スイープ中のpanicはここで回収され、結果のPanicMessageに記録される。
func (e *Engine) RunOnce(ctx context.Context) (result SweepResult) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result.PanicMessage = fmt.Sprint(rec)
			e.logger.Error("リマインダースイープ中にpanicが発生しました",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
		e.recorder.RecordSweep(result.Outcome(), time.Since(start))
	}()

	if cs, ok := e.sender.(configuredSender); ok && !cs.Configured() {
		result.SkipReason = skipReasonCredentials
		e.logger.Error("ゲートウェイの認証情報が未設定のためスイープをスキップします")
		return result
	}

	candidates, err := e.repo.ListPendingReminders(ctx)
	if err != nil {
		result.SkipReason = "failed to list pending reminders"
		e.logger.Error("通知候補の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return result
	}
	result.Candidates = len(candidates)

	due, unparseable := SelectDue(e.clock.Now(), candidates)
	result.Due = len(due)
	result.Unparseable = unparseable
	e.recorder.RecordDue(len(due))
	if unparseable > 0 {
		e.recorder.RecordUnparseable(unparseable)
	}

	if len(due) == 0 {
		e.logger.Info("通知対象の記録はありません",
			slog.Int("candidates", result.Candidates),
		)
		return result
	}

	for _, item := range due {
		if ctx.Err() != nil {
			break
		}

		if err := e.dispatcher.Dispatch(ctx, item); err != nil {
			class := ClassifyFailure(err)
			e.recorder.RecordSendFailure(class)
			if class == FailureConfig {
				result.SkipReason = skipReasonCredentials
				e.logger.Error("ゲートウェイの認証情報が未設定または拒否されたためスイープを中断します",
					slog.String("error", err.Error()),
				)
				return result
			}
			result.Failed++
			e.logger.Warn("通知の送信に失敗しました",
				slog.String("item_id", item.Candidate.ItemID),
				slog.String("owner_openid", item.Candidate.OwnerOpenID),
				slog.String("class", class),
				slog.String("error", err.Error()),
			)
			continue
		}

		result.Sent++
		e.recorder.RecordSent()

		// 送信直後に1件ずつ記録する。送信済みの記録はスイープの中断に影響されない
		if err := e.repo.MarkNotified(context.WithoutCancel(ctx), item.Candidate.ItemID, e.clock.Now()); err != nil {
			result.MarkFailed++
			e.recorder.RecordMarkFailure()
			e.logger.Error("送信済みの記録に失敗しました",
				slog.String("item_id", item.Candidate.ItemID),
				slog.String("error", err.Error()),
			)
		}
	}

	e.logger.Info("リマインダースイープが完了しました",
		slog.Int("candidates", result.Candidates),
		slog.Int("due", result.Due),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
		slog.Int("unparseable", result.Unparseable),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return result
}
