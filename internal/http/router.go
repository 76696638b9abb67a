package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires handlers into the router.
type RouterConfig struct {
	Sessions      *SessionHandler
	Notifications *NotificationHandler
}

// NewRouter builds the API routing table.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Sessions != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sessions.Start(w, r)
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}

			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSessionID(r.Context(), id))

			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Sessions.Get(w, r)
			case "proposals":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Sessions.Propose(w, r)
			case "confirm":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Sessions.Confirm(w, r)
			case "cancel":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Sessions.Cancel(w, r)
			case "expire":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Sessions.Expire(w, r)
			case "messages":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Sessions.Messages(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Notifications != nil {
		mux.HandleFunc("/notifications/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/notifications/")
			id, action, _ := strings.Cut(rest, "/")
			if id == "" || action != "resolve" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			r = r.WithContext(ContextWithNotificationID(r.Context(), id))
			cfg.Notifications.Resolve(w, r)
		})
	}

	return mux
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
