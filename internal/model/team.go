package model

import (
	"slices"
	"time"
)

// DefaultTeamQuota はチームの最大メンバー数のデフォルト値。
const DefaultTeamQuota = 5

// Team は物品を共有するグループを表す。
// MemberOpenIDsは参加順に並び、オーナーを必ず含む。
type Team struct {
	ID            string
	Name          string
	OwnerOpenID   string
	MemberOpenIDs []string
	InviteCode    string
	Quota         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOwner は指定ユーザーがオーナーかどうかを返す。
func (t *Team) IsOwner(openid string) bool {
	return t.OwnerOpenID == openid
}

// HasMember は指定ユーザーがメンバーに含まれるかどうかを返す。
func (t *Team) HasMember(openid string) bool {
	return slices.Contains(t.MemberOpenIDs, openid)
}

// IsFull はメンバー数がクォータに達しているかどうかを返す。
func (t *Team) IsFull() bool {
	return len(t.MemberOpenIDs) >= t.Quota
}

// AddMember はメンバーを末尾に追加する。既に含まれている場合は何もしない。
func (t *Team) AddMember(openid string) {
	if t.HasMember(openid) {
		return
	}
	t.MemberOpenIDs = append(t.MemberOpenIDs, openid)
}

// RemoveMember はメンバーを除外する。含まれていない場合は何もしない。
// 戻り値は実際に除外したかどうか。
func (t *Team) RemoveMember(openid string) bool {
	idx := slices.Index(t.MemberOpenIDs, openid)
	if idx < 0 {
		return false
	}
	t.MemberOpenIDs = slices.Delete(t.MemberOpenIDs, idx, idx+1)
	return true
}

// TeamListType はチーム一覧の絞り込み種別。
type TeamListType string

const (
	// TeamListCreated は自分がオーナーのチーム。
	TeamListCreated TeamListType = "created"
	// TeamListJoined は自分がメンバーのチーム。
	TeamListJoined TeamListType = "joined"
)
