package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/displaydate/internal/item"
	"github.com/hitoshi/displaydate/internal/model"
)

// ItemServiceInterface は物品ハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	CreateOrRestore(ctx context.Context, actor string, in item.CreateInput) (*model.Item, bool, error)
	Get(ctx context.Context, actor, id string) (*model.Item, error)
	List(ctx context.Context, actor, teamID string) ([]*model.Item, error)
	Update(ctx context.Context, actor, id string, fields model.ItemFields) (*model.Item, error)
	Delete(ctx context.Context, actor, id string) error
	Unnotify(ctx context.Context, actor, id string) error
	Notify(ctx context.Context, actor string, ids []string, send bool) (*item.NotifyResult, error)
}

// ItemHandler は物品管理のHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// --- リクエスト/レスポンス型 ---

// itemRequest は物品の作成・更新リクエストのボディ。
// ミニプログラムからはcamelCaseとsnake_caseの両方が送られるため、どちらも受け付ける。
type itemRequest struct {
	Name              *string `json:"name"`
	Category          *string `json:"category"`
	ExpireDate        *string `json:"expireDate"`
	ExpireDateSnake   *string `json:"expire_date"`
	Note              *string `json:"note"`
	Barcode           *string `json:"barcode"`
	ProductImage      *string `json:"productImage"`
	ProductImageSnake *string `json:"product_image"`
	Quantity          *int    `json:"quantity"`
	TeamID            *string `json:"teamId"`
	TeamIDSnake       *string `json:"team_id"`
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// fields はリクエストを部分更新ペイロードに変換する。team_idは含まない。
func (req itemRequest) fields() model.ItemFields {
	return model.ItemFields{
		Name:         req.Name,
		Category:     req.Category,
		ExpireDate:   firstNonNil(req.ExpireDate, req.ExpireDateSnake),
		Note:         req.Note,
		Barcode:      req.Barcode,
		ProductImage: firstNonNil(req.ProductImage, req.ProductImageSnake),
		Quantity:     req.Quantity,
	}
}

type itemResponse struct {
	ID           string     `json:"id"`
	OwnerOpenID  string     `json:"owner_openid"`
	TeamID       *string    `json:"team_id"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	ExpireDate   string     `json:"expire_date"`
	Note         string     `json:"note"`
	Barcode      string     `json:"barcode"`
	ProductImage string     `json:"product_image"`
	Quantity     int        `json:"quantity"`
	NotifiedAt   *time.Time `json:"notified_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type createItemResponse struct {
	itemResponse
	Restored bool `json:"restored"`
}

type itemListResponse struct {
	Items []itemResponse `json:"items"`
}

type notifyRequest struct {
	ItemIDs      []string `json:"item_ids"`
	ItemIDsCamel []string `json:"itemIds"`
	Send         bool     `json:"send"`
}

type notifyResponse struct {
	Notified int `json:"notified"`
	Sent     int `json:"sent"`
}

func toItemResponse(it *model.Item) itemResponse {
	return itemResponse{
		ID:           it.ID,
		OwnerOpenID:  it.OwnerOpenID,
		TeamID:       it.TeamID,
		Name:         it.Name,
		Category:     it.Category,
		ExpireDate:   it.ExpireDate,
		Note:         it.Note,
		Barcode:      it.Barcode,
		ProductImage: it.ProductImage,
		Quantity:     it.Quantity,
		NotifiedAt:   it.NotifiedAt,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

// --- ハンドラー ---

// ListItems は個人物品、またはteamId指定時はチームの物品一覧を返す。
// GET /api/items?teamId=xxx
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	teamID := q.Get("teamId")
	if teamID == "" {
		teamID = q.Get("team_id")
	}

	items, err := h.service.List(r.Context(), openid, teamID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := itemListResponse{Items: make([]itemResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateItem は物品を作成する。同名の削除済み物品があれば復元する。
// 新規作成時は201、復元時は200を返す。
// POST /api/items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	created, restored, err := h.service.CreateOrRestore(r.Context(), openid, item.CreateInput{
		TeamID: firstNonNil(req.TeamID, req.TeamIDSnake),
		Fields: req.fields(),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if restored {
		status = http.StatusOK
	}
	writeJSON(w, status, createItemResponse{itemResponse: toItemResponse(created), Restored: restored})
}

// GetItem は物品を返す。
// GET /api/items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	it, err := h.service.Get(r.Context(), openid, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

// UpdateItem は指定された項目のみを更新する。team_idは無視する。
// PATCH /api/items/{id}
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	updated, err := h.service.Update(r.Context(), openid, chi.URLParam(r, "id"), req.fields())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(updated))
}

// DeleteItem は物品を論理削除する。
// PATCH /api/items/{id}/delete
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
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

// UnnotifyItem は通知済み状態を解除する。
// PATCH /api/items/{id}/unnotify
func (h *ItemHandler) UnnotifyItem(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unnotify(r.Context(), openid, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NotifyItems は自分の物品を通知済みにし、sendがtrueの場合は通知を送信する。
// POST /api/items/notify
func (h *ItemHandler) NotifyItems(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req notifyRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	ids := req.ItemIDs
	if len(ids) == 0 {
		ids = req.ItemIDsCamel
	}

	result, err := h.service.Notify(r.Context(), openid, ids, req.Send)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifyResponse{Notified: result.Notified, Sent: result.Sent})
}
