package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meeting-negotiator/internal/application"
	"github.com/example/meeting-negotiator/internal/calendar"
)

var (
	errBadRequestBody        = errors.New("無効なリクエスト形式です。")
	errInvalidSessionID      = errors.New("無効なセッション ID です。")
	errInvalidNotificationID = errors.New("無効な通知 ID です。")
	errMissingPrincipal      = errors.New("呼び出し元の利用者 ID を指定してください")
)

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrConnectionInactive):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "CONNECTION_INACTIVE",
			Message:   "コネクションが有効ではないため、この操作は実行できません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrIdempotencyReplay):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "IDEMPOTENCY_REPLAY",
			Message:   "同じリクエストは既に処理されています。",
		})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_SETTLED",
			Message:   "他の参加者が既にこのセッションを確定しています。",
		})
	case errors.Is(err, application.ErrSessionTerminal):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SESSION_TERMINAL",
			Message:   "このセッションは終了済みのため変更できません。",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		var pErr *calendar.ProviderError
		if errors.As(err, &pErr) {
			r.loggerFor(ctx).ErrorContext(ctx, "calendar provider failure", "kind", string(pErr.Kind), "error", err)
			if calendar.IsAuthExpired(err) {
				r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
					ErrorCode: "CALENDAR_RECONNECT_REQUIRED",
					Message:   "カレンダーとの接続が失効しています。再連携してください。",
				})
				return
			}
			if calendar.IsTransient(err) {
				w.Header().Set("Retry-After", "30")
			}
			r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
				ErrorCode: "CALENDAR_UNAVAILABLE",
				Message:   "カレンダーサービスとの通信に失敗しました。",
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}
