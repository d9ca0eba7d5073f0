package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/displaydate/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック
	HealthChecker HealthChecker

	// 認証
	AuthService AuthServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 物品
	ItemService ItemServiceInterface

	// チーム
	TeamService TeamServiceInterface

	// ワードローブ
	WardrobeService WardrobeServiceInterface

	// 購読メッセージ
	MessageSender     MessageSender
	SubscribeDefaults SubscribeDefaults
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Auth → RateLimit(General)
//
// /health と /api/auth/login は認証グループの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	itemHandler := NewItemHandler(deps.ItemService)
	teamHandler := NewTeamHandler(deps.TeamService)
	wardrobeHandler := NewWardrobeHandler(deps.WardrobeService)
	wechatHandler := NewWeChatHandler(deps.MessageSender, deps.SubscribeDefaults)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	r.Post("/api/auth/login", authHandler.Login)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー
		r.Route("/api/users/me", func(r chi.Router) {
			r.Get("/", userHandler.Me)
			r.Patch("/", userHandler.UpdateProfile)
		})

		// 物品
		r.Route("/api/items", func(r chi.Router) {
			r.Get("/", itemHandler.ListItems)
			r.Post("/", itemHandler.CreateItem)
			r.Post("/notify", itemHandler.NotifyItems)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.GetItem)
				r.Patch("/", itemHandler.UpdateItem)
				r.Patch("/delete", itemHandler.DeleteItem)
				r.Patch("/unnotify", itemHandler.UnnotifyItem)
			})
		})

		// チーム
		r.Route("/api/teams", func(r chi.Router) {
			r.Get("/", teamHandler.ListTeams)
			r.Post("/", teamHandler.CreateTeam)
			r.Post("/join", teamHandler.JoinTeam)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", teamHandler.GetTeam)
				r.Delete("/", teamHandler.DeleteTeam)
				r.Patch("/rename", teamHandler.RenameTeam)
				r.Patch("/regenerate-invite", teamHandler.RegenerateInvite)
				r.Patch("/remove-member", teamHandler.RemoveMember)
				r.Patch("/leave", teamHandler.LeaveTeam)
			})
		})

		// ワードローブ
		r.Route("/api/wardrobe", func(r chi.Router) {
			r.Get("/categories", wardrobeHandler.ListCategories)
			r.Post("/categories", wardrobeHandler.CreateCategory)
			r.Patch("/categories/{id}", wardrobeHandler.UpdateCategory)
			r.Delete("/categories/{id}", wardrobeHandler.DeleteCategory)

			r.Get("/items", wardrobeHandler.ListItems)
			r.Post("/items", wardrobeHandler.CreateItem)
			r.Patch("/items/{id}", wardrobeHandler.UpdateItem)
			r.Delete("/items/{id}", wardrobeHandler.DeleteItem)

			r.Get("/outfits", wardrobeHandler.ListOutfits)
			r.Post("/outfits", wardrobeHandler.CreateOutfit)
			r.Patch("/outfits/{id}", wardrobeHandler.UpdateOutfit)
			r.Delete("/outfits/{id}", wardrobeHandler.DeleteOutfit)
		})

		// 購読メッセージの手動送信（送信専用レート制限を追加）
		r.With(deps.RateLimiter.SendMiddleware()).Post("/api/wechat/subscribe/send", wechatHandler.Send)
	})

	return r
}
