package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/displaydate/internal/model"
)

// WardrobeServiceInterface はワードローブハンドラーが必要とするサービスインターフェース。
type WardrobeServiceInterface interface {
	ListCategories(ctx context.Context, actor string) ([]*model.WardrobeCategory, error)
	CreateCategory(ctx context.Context, actor string, fields model.CategoryFields) (*model.WardrobeCategory, error)
	UpdateCategory(ctx context.Context, actor, id string, fields model.CategoryFields) (*model.WardrobeCategory, error)
	DeleteCategory(ctx context.Context, actor, id string) error

	ListItems(ctx context.Context, actor, categoryID string) ([]*model.WardrobeItem, error)
	CreateItem(ctx context.Context, actor string, fields model.WardrobeItemFields) (*model.WardrobeItem, error)
	UpdateItem(ctx context.Context, actor, id string, fields model.WardrobeItemFields) (*model.WardrobeItem, error)
	DeleteItem(ctx context.Context, actor, id string) error

	ListOutfits(ctx context.Context, actor string) ([]*model.Outfit, error)
	CreateOutfit(ctx context.Context, actor string, fields model.OutfitFields) (*model.Outfit, error)
	UpdateOutfit(ctx context.Context, actor, id string, fields model.OutfitFields) (*model.Outfit, error)
	DeleteOutfit(ctx context.Context, actor, id string) error
}

// WardrobeHandler は衣類の分類、衣類、コーディネートのHTTPハンドラー。
type WardrobeHandler struct {
	service WardrobeServiceInterface
}

// NewWardrobeHandler はWardrobeHandlerを生成する。
func NewWardrobeHandler(service WardrobeServiceInterface) *WardrobeHandler {
	return &WardrobeHandler{service: service}
}

// --- リクエスト/レスポンス型 ---
// 物品と同じくcamelCaseとsnake_caseの両方を受け付ける。

type categoryRequest struct {
	Name           *string `json:"name"`
	SortOrder      *int    `json:"sort_order"`
	SortOrderCamel *int    `json:"sortOrder"`
}

func (req categoryRequest) fields() model.CategoryFields {
	sortOrder := req.SortOrder
	if sortOrder == nil {
		sortOrder = req.SortOrderCamel
	}
	return model.CategoryFields{Name: req.Name, SortOrder: sortOrder}
}

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}

type categoryListResponse struct {
	Categories []categoryResponse `json:"categories"`
}

func toCategoryResponse(c *model.WardrobeCategory) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		SortOrder: c.SortOrder,
		ItemCount: c.ItemCount,
		CreatedAt: c.CreatedAt,
	}
}

type wardrobeItemRequest struct {
	CategoryID        *string  `json:"category_id"`
	CategoryIDCamel   *string  `json:"categoryId"`
	Name              *string  `json:"name"`
	Color             *string  `json:"color"`
	Size              *string  `json:"size"`
	Season            *string  `json:"season"`
	Brand             *string  `json:"brand"`
	Price             *float64 `json:"price"`
	PurchaseDate      *string  `json:"purchase_date"`
	PurchaseDateCamel *string  `json:"purchaseDate"`
	ImageURL          *string  `json:"image_url"`
	ImageURLCamel     *string  `json:"imageUrl"`
	Note              *string  `json:"note"`
}

func (req wardrobeItemRequest) fields() model.WardrobeItemFields {
	return model.WardrobeItemFields{
		CategoryID:   firstNonNil(req.CategoryID, req.CategoryIDCamel),
		Name:         req.Name,
		Color:        req.Color,
		Size:         req.Size,
		Season:       req.Season,
		Brand:        req.Brand,
		Price:        req.Price,
		PurchaseDate: firstNonNil(req.PurchaseDate, req.PurchaseDateCamel),
		ImageURL:     firstNonNil(req.ImageURL, req.ImageURLCamel),
		Note:         req.Note,
	}
}

type wardrobeItemResponse struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	Size         string    `json:"size"`
	Season       string    `json:"season"`
	Brand        string    `json:"brand"`
	Price        *float64  `json:"price"`
	PurchaseDate string    `json:"purchase_date"`
	ImageURL     string    `json:"image_url"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type wardrobeItemListResponse struct {
	Items []wardrobeItemResponse `json:"items"`
}

func toWardrobeItemResponse(w *model.WardrobeItem) wardrobeItemResponse {
	return wardrobeItemResponse{
		ID:           w.ID,
		CategoryID:   w.CategoryID,
		CategoryName: w.CategoryName,
		Name:         w.Name,
		Color:        w.Color,
		Size:         w.Size,
		Season:       w.Season,
		Brand:        w.Brand,
		Price:        w.Price,
		PurchaseDate: w.PurchaseDate,
		ImageURL:     w.ImageURL,
		Note:         w.Note,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

type outfitRequest struct {
	Name          *string  `json:"name"`
	ItemIDs       []string `json:"item_ids"`
	ItemIDsCamel  []string `json:"itemIds"`
	Occasion      *string  `json:"occasion"`
	Season        *string  `json:"season"`
	ImageURL      *string  `json:"image_url"`
	ImageURLCamel *string  `json:"imageUrl"`
}

func (req outfitRequest) fields() model.OutfitFields {
	ids := req.ItemIDs
	if ids == nil {
		ids = req.ItemIDsCamel
	}
	return model.OutfitFields{
		Name:     req.Name,
		ItemIDs:  ids,
		Occasion: req.Occasion,
		Season:   req.Season,
		ImageURL: firstNonNil(req.ImageURL, req.ImageURLCamel),
	}
}

type outfitResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ItemIDs   []string  `json:"item_ids"`
	Occasion  string    `json:"occasion"`
	Season    string    `json:"season"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type outfitListResponse struct {
	Outfits []outfitResponse `json:"outfits"`
}

func toOutfitResponse(o *model.Outfit) outfitResponse {
	ids := o.ItemIDs
	if ids == nil {
		ids = []string{}
	}
	return outfitResponse{
		ID:        o.ID,
		Name:      o.Name,
		ItemIDs:   ids,
		Occasion:  o.Occasion,
		Season:    o.Season,
		ImageURL:  o.ImageURL,
		CreatedAt: o.CreatedAt,
	}
}

// --- 分類 ---

// ListCategories は分類の一覧を並び順に返す。
// GET /api/wardrobe/categories
func (h *WardrobeHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	categories, err := h.service.ListCategories(r.Context(), openid)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := categoryListResponse{Categories: make([]categoryResponse, 0, len(categories))}
	for _, c := range categories {
		resp.Categories = append(resp.Categories, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCategory は分類を作成する。
// POST /api/wardrobe/categories
func (h *WardrobeHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), openid, req.fields())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// UpdateCategory は分類を部分更新する。
// PATCH /api/wardrobe/categories/{id}
func (h *WardrobeHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	c, err := h.service.UpdateCategory(r.Context(), openid, chi.URLParam(r, "id"), req.fields())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// DeleteCategory は分類と所属する衣類を削除する。
// DELETE /api/wardrobe/categories/{id}
func (h *WardrobeHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), openid, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- 衣類 ---

// ListItems は衣類の一覧を返す。
// GET /api/wardrobe/items?category_id=xxx
func (h *WardrobeHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	categoryID := q.Get("category_id")
	if categoryID == "" {
		categoryID = q.Get("categoryId")
	}

	items, err := h.service.ListItems(r.Context(), openid, categoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := wardrobeItemListResponse{Items: make([]wardrobeItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, toWardrobeItemResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateItem は衣類を作成する。
// POST /api/wardrobe/items
func (h *WardrobeHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req wardrobeItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	it, err := h.service.CreateItem(r.Context(), openid, req.fields())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWardrobeItemResponse(it))
}

// UpdateItem は衣類を部分更新する。
// PATCH /api/wardrobe/items/{id}
func (h *WardrobeHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req wardrobeItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	it, err := h.service.UpdateItem(r.Context(), openid, chi.URLParam(r, "id"), req.fields())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWardrobeItemResponse(it))
}

// DeleteItem は衣類を論理削除する。
// DELETE /api/wardrobe/items/{id}
func (h *WardrobeHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), openid, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- コーディネート ---

// ListOutfits はコーディネートの一覧を返す。
// GET /api/wardrobe/outfits
func (h *WardrobeHandler) ListOutfits(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	outfits, err := h.service.ListOutfits(r.Context(), openid)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := outfitListResponse{Outfits: make([]outfitResponse, 0, len(outfits))}
	for _, o := range outfits {
		resp.Outfits = append(resp.Outfits, toOutfitResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateOutfit はコーディネートを作成する。
// POST /api/wardrobe/outfits
func (h *WardrobeHandler) CreateOutfit(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req outfitRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	o, err := h.service.CreateOutfit(r.Context(), openid, req.fields())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutfitResponse(o))
}

// UpdateOutfit はコーディネートを部分更新する。
// PATCH /api/wardrobe/outfits/{id}
func (h *WardrobeHandler) UpdateOutfit(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req outfitRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	o, err := h.service.UpdateOutfit(r.Context(), openid, chi.URLParam(r, "id"), req.fields())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutfitResponse(o))
}

// DeleteOutfit はコーディネートを削除する。
// DELETE /api/wardrobe/outfits/{id}
func (h *WardrobeHandler) DeleteOutfit(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOutfit(r.Context(), openid, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
