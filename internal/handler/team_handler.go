package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/team"
)

// TeamServiceInterface はチームハンドラーが必要とするサービスインターフェース。
type TeamServiceInterface interface {
	Create(ctx context.Context, actor string, in team.CreateInput) (*model.Team, error)
	Join(ctx context.Context, actor, inviteCode string) (*model.Team, error)
	Rename(ctx context.Context, actor, teamID, name string) (*model.Team, error)
	RegenerateInvite(ctx context.Context, actor, teamID string) (*model.Team, error)
	RemoveMember(ctx context.Context, actor, teamID, target string) (*model.Team, error)
	Leave(ctx context.Context, actor, teamID string) error
	Delete(ctx context.Context, actor, teamID string) error
	Get(ctx context.Context, actor, teamID string) (*model.Team, error)
	List(ctx context.Context, actor string, listType model.TeamListType) ([]*model.Team, error)
}

// TeamHandler はチーム管理のHTTPハンドラー。
type TeamHandler struct {
	service TeamServiceInterface
}

// NewTeamHandler はTeamHandlerを生成する。
func NewTeamHandler(service TeamServiceInterface) *TeamHandler {
	return &TeamHandler{service: service}
}

type teamResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	OwnerOpenID   string    `json:"owner_openid"`
	MemberOpenIDs []string  `json:"member_openids"`
	InviteCode    string    `json:"invite_code"`
	Quota         int       `json:"quota"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type teamListResponse struct {
	Teams []teamResponse `json:"teams"`
}

type createTeamRequest struct {
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
	Quota      *int   `json:"quota"`
}

type joinTeamRequest struct {
	InviteCode string `json:"invite_code"`
}

type renameTeamRequest struct {
	Name string `json:"name"`
}

type removeMemberRequest struct {
	MemberOpenID string `json:"member_openid"`
}

func toTeamResponse(t *model.Team) teamResponse {
	members := t.MemberOpenIDs
	if members == nil {
		members = []string{}
	}
	return teamResponse{
		ID:            t.ID,
		Name:          t.Name,
		OwnerOpenID:   t.OwnerOpenID,
		MemberOpenIDs: members,
		InviteCode:    t.InviteCode,
		Quota:         t.Quota,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// ListTeams は自分が作成した、または参加しているチームの一覧を返す。
// GET /api/teams?type=created|joined
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	listType := model.TeamListType(r.URL.Query().Get("type"))
	teams, err := h.service.List(r.Context(), openid, listType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := teamListResponse{Teams: make([]teamResponse, 0, len(teams))}
	for _, t := range teams {
		resp.Teams = append(resp.Teams, toTeamResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTeam はチームを作成する。作成者は他の所属チームから外れる。
// POST /api/teams
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req createTeamRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	created, err := h.service.Create(r.Context(), openid, team.CreateInput{
		Name:       req.Name,
		InviteCode: req.InviteCode,
		Quota:      req.Quota,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeamResponse(created))
}

// JoinTeam は招待コードでチームに参加する。
// POST /api/teams/join
func (h *TeamHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req joinTeamRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	joined, err := h.service.Join(r.Context(), openid, req.InviteCode)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(joined))
}

// GetTeam はチームを返す。
// GET /api/teams/{id}
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), openid, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// RenameTeam はチーム名を変更する。
// PATCH /api/teams/{id}/rename
func (h *TeamHandler) RenameTeam(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req renameTeamRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	t, err := h.service.Rename(r.Context(), openid, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// RegenerateInvite は招待コードを再発行する。
// PATCH /api/teams/{id}/regenerate-invite
func (h *TeamHandler) RegenerateInvite(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	t, err := h.service.RegenerateInvite(r.Context(), openid, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// RemoveMember はメンバーをチームから外す。
// PATCH /api/teams/{id}/remove-member
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req removeMemberRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.MemberOpenID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("member_openidは必須です"))
		return
	}

	t, err := h.service.RemoveMember(r.Context(), openid, chi.URLParam(r, "id"), req.MemberOpenID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// LeaveTeam はチームから退出する。
// PATCH /api/teams/{id}/leave
func (h *TeamHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	if err := h.service.Leave(r.Context(), openid, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTeam はチームと所属する物品を削除する。
// DELETE /api/teams/{id}
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), openid, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
