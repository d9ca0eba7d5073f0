package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// runLogged はhandlerをロギングミドルウェアで包んでreqを処理し、出力されたログ1行を返す。
func runLogged(t *testing.T, handler http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewLoggingMiddleware(logger)(handler).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestLoggingMiddleware_StatusAndLevel(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.Handler
		wantCode  int
		wantLevel string
	}{
		{"作成", statusHandler(http.StatusCreated), 201, "INFO"},
		{"WriteHeaderなしのWrite", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"items":[]}`))
		}), 200, "INFO"},
		{"削除", statusHandler(http.StatusNoContent), 204, "INFO"},
		{"権限なし", statusHandler(http.StatusForbidden), 403, "WARN"},
		{"レート制限", statusHandler(http.StatusTooManyRequests), 429, "WARN"},
		{"ゲートウェイ失敗", statusHandler(http.StatusBadGateway), 502, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/items", nil)
			entry := runLogged(t, tt.handler, req)

			if got := int(entry["status"].(float64)); got != tt.wantCode {
				t.Errorf("status = %d, want %d", got, tt.wantCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["msg"] != "http_request" {
				t.Errorf("msg = %v, want http_request", entry["msg"])
			}
			if entry["method"] != "POST" || entry["path"] != "/api/items" {
				t.Errorf("method/path = %v %v", entry["method"], entry["path"])
			}
			if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
				t.Errorf("duration_ms = %v, want non-negative number", entry["duration_ms"])
			}
		})
	}
}

func TestLoggingMiddleware_OpenID(t *testing.T) {
	t.Run("未認証では出力しない", func(t *testing.T) {
		entry := runLogged(t, statusHandler(http.StatusOK), httptest.NewRequest(http.MethodGet, "/health", nil))
		if v, ok := entry["openid"]; ok {
			t.Errorf("openid should be omitted, got %v", v)
		}
	})

	t.Run("外側で設定済みのopenid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req = req.WithContext(ContextWithOpenID(req.Context(), "o-outer"))

		entry := runLogged(t, statusHandler(http.StatusOK), req)
		if entry["openid"] != "o-outer" {
			t.Errorf("openid = %v, want o-outer", entry["openid"])
		}
	})

	t.Run("内側の認証ミドルウェアが解決したopenid", func(t *testing.T) {
		inner := NewAuthMiddleware(staticVerifier("good", "o-777"))(statusHandler(http.StatusOK))
		req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
		req.Header.Set("Authorization", "Bearer good")

		entry := runLogged(t, inner, req)
		if entry["openid"] != "o-777" {
			t.Errorf("openid = %v, want o-777", entry["openid"])
		}
	})
}

func TestLoggingMiddleware_RoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(logger))
	r.Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/abc-123", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	if entry["route"] != "/api/items/{id}" {
		t.Errorf("route = %v, want /api/items/{id}", entry["route"])
	}
	if entry["path"] != "/api/items/abc-123" {
		t.Errorf("path = %v", entry["path"])
	}
}

func TestLoggingMiddleware_NoRouteOutsideChi(t *testing.T) {
	entry := runLogged(t, statusHandler(http.StatusOK), httptest.NewRequest(http.MethodGet, "/x", nil))
	if _, ok := entry["route"]; ok {
		t.Errorf("route should be omitted outside chi, got %v", entry["route"])
	}
}
