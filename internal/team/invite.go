package team

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// inviteAlphabet は招待コードに使用する文字（英大文字と数字）。
const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateInviteCode は指定長のランダムな招待コードを生成する。
func GenerateInviteCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid invite code length: %d", length)
	}

	alphabetSize := big.NewInt(int64(len(inviteAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("乱数の生成に失敗しました: %w", err)
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return string(buf), nil
}
