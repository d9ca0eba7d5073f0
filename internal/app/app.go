// Package app はサブコマンドごとの依存関係の組み立てと起動を提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/displaydate/internal/auth"
	"github.com/hitoshi/displaydate/internal/config"
	"github.com/hitoshi/displaydate/internal/database"
	"github.com/hitoshi/displaydate/internal/handler"
	"github.com/hitoshi/displaydate/internal/item"
	"github.com/hitoshi/displaydate/internal/logger"
	"github.com/hitoshi/displaydate/internal/metrics"
	"github.com/hitoshi/displaydate/internal/middleware"
	"github.com/hitoshi/displaydate/internal/repository"
	"github.com/hitoshi/displaydate/internal/security"
	"github.com/hitoshi/displaydate/internal/team"
	"github.com/hitoshi/displaydate/internal/user"
	"github.com/hitoshi/displaydate/internal/wardrobe"
	"github.com/hitoshi/displaydate/internal/wechat"
	"github.com/hitoshi/displaydate/internal/worker/reminder"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// shutdownTimeout はHTTPサーバーのグレースフルシャットダウンの猶予時間。
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// 未知のサブコマンドは初期化前にエラーとする。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("wechat_configured", cfg.WeChatConfigured()),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// signalContext はSIGINTまたはSIGTERMでキャンセルされるコンテキストを返す。
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newWeChatClient は設定からゲートウェイクライアントを生成する。
func newWeChatClient(cfg *config.Config) *wechat.Client {
	return wechat.NewClient(
		&http.Client{Timeout: cfg.WeChatTimeout},
		slog.Default(),
		cfg.WeChatAppID,
		cfg.WeChatSecret,
	).WithBaseURL(cfg.WeChatBaseURL)
}

// messageConfig は購読メッセージの固定値を設定から組み立てる。
func messageConfig(cfg *config.Config) reminder.MessageConfig {
	return reminder.MessageConfig{
		TemplateID:       cfg.WeChatTemplateID,
		Page:             cfg.WeChatPage,
		MiniprogramState: cfg.WeChatMiniprogramState,
		Lang:             cfg.WeChatLang,
	}
}

// newSessionResolver はログインコードの交換方式を選択する。
// 認証情報が未設定の場合は開発用のDevSessionResolverを使用する。
func newSessionResolver(cfg *config.Config, client *wechat.Client) auth.SessionResolver {
	if cfg.WeChatConfigured() {
		return client
	}
	slog.Warn("wechat credentials are not configured; login accepts the code as openid")
	return auth.DevSessionResolver{}
}

// newItemDispatcher は手動通知で使う送信器を返す。
// テンプレートが未設定の場合はnilを返し、手動通知は記録のみ行う。
func newItemDispatcher(cfg *config.Config, client *wechat.Client) item.ReminderDispatcher {
	if cfg.WeChatTemplateID == "" {
		return nil
	}
	return reminder.NewDispatcher(client, messageConfig(cfg))
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	// 1. DB接続
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	itemRepo := repository.NewPostgresItemRepo(db)
	teamRepo := repository.NewPostgresTeamRepo(db)
	wardrobeRepo := repository.NewPostgresWardrobeRepo(db)

	// 3. 外部サービスとセキュリティの初期化
	sanitizer := security.NewTextSanitizer()
	wechatClient := newWeChatClient(cfg)

	// 4. ドメインサービスの初期化
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpires())
	authService := auth.NewService(newSessionResolver(cfg, wechatClient), userRepo, tokens, slog.Default())
	userService := user.NewService(userRepo, sanitizer, slog.Default())
	teamManager := team.NewManager(teamRepo, sanitizer, slog.Default(), team.Config{
		InviteCodeLength: cfg.InviteCodeLength,
		DefaultQuota:     cfg.TeamDefaultQuota,
	})
	itemManager := item.NewManager(itemRepo, teamRepo, sanitizer, newItemDispatcher(cfg, wechatClient), slog.Default())
	wardrobeManager := wardrobe.NewManager(wardrobeRepo, sanitizer, slog.Default())

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSend))
	defer rateLimiter.Stop()

	mc := messageConfig(cfg)
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HealthChecker:     db,
		AuthService:       authService,
		UserService:       userService,
		ItemService:       itemManager,
		TeamService:       teamManager,
		WardrobeService:   wardrobeManager,
		MessageSender:     wechatClient,
		SubscribeDefaults: handler.SubscribeDefaults{
			TemplateID:       mc.TemplateID,
			Page:             mc.Page,
			MiniprogramState: mc.MiniprogramState,
			Lang:             mc.Lang,
		},
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilDone(ctx, server, "API server")
}

// serveUntilDone はctxがキャンセルされるまでサーバーを動かし、その後グレースフルに停止する。
func serveUntilDone(ctx context.Context, server *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("%s listen error: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name + "...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、リマインダーエンジン、削除済み物品の物理削除ジョブ、メトリクスサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	// 1. DB接続
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.SetupMetricsRoute(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsDone := make(chan error, 1)
	go func() {
		metricsDone <- serveUntilDone(ctx, metricsServer, "metrics server")
	}()

	// 3. リマインダーエンジンの起動
	if cfg.WeChatTemplateID == "" {
		slog.Warn("WECHAT_TEMPLATE_ID is not set; reminder engine is disabled")
		<-ctx.Done()
	} else {
		engine := reminder.NewEngine(
			repository.NewPostgresItemRepo(db),
			newWeChatClient(cfg),
			messageConfig(cfg),
			reminder.SystemClock{},
			collector,
			slog.Default(),
		)
		// エンジンをメインgoroutineで実行（ブロッキング）
		engine.Start(ctx)
	}

	stop()
	if err := <-metricsDone; err != nil {
		return err
	}
	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できないURLは全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
