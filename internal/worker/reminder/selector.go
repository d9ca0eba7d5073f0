package reminder

import (
	"time"

	"github.com/hitoshi/displaydate/internal/model"
)

// DueItem は通知対象と判定された記録と、解釈済みの期限。
type DueItem struct {
	Candidate model.ReminderCandidate
	ExpireAt  time.Time
}

// IsDue は期限までの残り時間がreminderDays日以内かを返す。
// 期限切れ（残り時間が負）は常に対象となる。
func IsDue(expireAt, now time.Time, reminderDays int) bool {
	return expireAt.Sub(now) <= time.Duration(reminderDays)*24*time.Hour
}

// SelectDue は候補から通知対象を抽出する。
// 期限を解釈できない候補は除外し、その件数をunparseableとして返す。
func SelectDue(now time.Time, candidates []model.ReminderCandidate) (due []DueItem, unparseable int) {
	for _, c := range candidates {
		expireAt, err := ParseExpiry(c.ExpireDate)
		if err != nil {
			unparseable++
			continue
		}
		if IsDue(expireAt, now, c.ReminderDays) {
			due = append(due, DueItem{Candidate: c, ExpireAt: expireAt})
		}
	}
	return due, unparseable
}
