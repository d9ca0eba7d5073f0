package reminder

import "time"

// Clock は現在時刻の取得元。
type Clock interface {
	Now() time.Time
}

// SystemClock はシステム時刻をUTCで返すClock。
type SystemClock struct{}

// Now は現在時刻をUTCで返す。
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc は関数をClockとして扱うためのアダプタ。
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}
