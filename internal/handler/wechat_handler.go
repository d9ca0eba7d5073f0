package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/wechat"
)

// MessageSender は購読メッセージの送信インターフェース。
type MessageSender interface {
	Send(ctx context.Context, msg wechat.Message) (*wechat.SendResult, error)
}

// SubscribeDefaults はリクエストで省略された項目に使う既定値。
type SubscribeDefaults struct {
	TemplateID       string
	Page             string
	MiniprogramState string
	Lang             string
}

// WeChatHandler は購読メッセージの手動送信ハンドラー。
type WeChatHandler struct {
	sender   MessageSender
	defaults SubscribeDefaults
}

// NewWeChatHandler はWeChatHandlerを生成する。
func NewWeChatHandler(sender MessageSender, defaults SubscribeDefaults) *WeChatHandler {
	return &WeChatHandler{sender: sender, defaults: defaults}
}

type subscribeSendRequest struct {
	OpenID     string                  `json:"openid"`
	TemplateID string                  `json:"template_id"`
	Data       map[string]wechat.Value `json:"data"`
	Page       string                  `json:"page"`
	State      string                  `json:"state"`
	Lang       string                  `json:"lang"`
}

type subscribeSendResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	MsgID   int64  `json:"msgid,omitempty"`
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Send は購読メッセージを送信する。宛先は認証済みユーザー自身に限る。
// POST /api/wechat/subscribe/send
func (h *WeChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req subscribeSendRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	if req.OpenID != "" && req.OpenID != openid {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError("自分以外には送信できません"))
		return
	}
	templateID := orDefault(req.TemplateID, h.defaults.TemplateID)
	if templateID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("template_idは必須です"))
		return
	}
	data := req.Data
	if data == nil {
		data = map[string]wechat.Value{}
	}

	result, err := h.sender.Send(r.Context(), wechat.Message{
		ToUser:           openid,
		TemplateID:       templateID,
		Page:             orDefault(req.Page, h.defaults.Page),
		Data:             data,
		MiniprogramState: orDefault(req.State, h.defaults.MiniprogramState),
		Lang:             orDefault(req.Lang, h.defaults.Lang),
	})
	if err != nil {
		if wechat.IsConfigError(err) {
			handleServiceError(w, model.NewGatewayNotConfiguredError())
			return
		}
		handleServiceError(w, model.NewGatewayFailedError(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, subscribeSendResponse{
		ErrCode: result.ErrCode,
		ErrMsg:  result.ErrMsg,
		MsgID:   result.MsgID,
	})
}
