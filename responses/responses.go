package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go-cartshop/apperrors"
	"go-cartshop/logger"
)

// Message is the body of every error response and of message-only replies.
type Message struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Message{Message: msg})
}

// WriteError maps err to its status and writes {"message": ...}. Server-side
// failures are logged with their cause; the client gets the generic text.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := apperrors.As(err)
	if typed == nil {
		typed = apperrors.Wrap(apperrors.CodeInternal, err, "unexpected error")
	}
	meta := apperrors.MetadataFor(typed.Code())

	if logg != nil {
		ctx = logg.WithField(ctx, "error_code", string(typed.Code()))
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Debug(logg.WithField(ctx, "reason", typed.Message()), "request.rejected")
		}
	}

	WriteMessage(w, meta.HTTPStatus, typed.PublicMessage())
}
