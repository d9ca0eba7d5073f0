package reminder

import (
	"errors"
	"time"
)

const (
	expiryLayoutDateTime = "2006-01-02 15:04"
	expiryLayoutDate     = "2006-01-02"
)

// ErrUnparseableExpiry は期限文字列が受理できる形式でない場合に返される。
var ErrUnparseableExpiry = errors.New("unparseable expire date")

// ParseExpiry は期限文字列を "2006-01-02 15:04" または "2006-01-02" として解釈する。
// 日付のみの場合は0時とみなす。タイムゾーン変換は行わずUTCとして扱う。
func ParseExpiry(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrUnparseableExpiry
	}
	for _, layout := range []string{expiryLayoutDateTime, expiryLayoutDate} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrUnparseableExpiry
}

// FormatExpiry は通知メッセージ用に期限を "2006-01-02 15:04" 形式で返す。
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(expiryLayoutDateTime)
}
