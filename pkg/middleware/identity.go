package middleware

import (
	"context"
	apperrors "courtbook/pkg/errors"
	httputil "courtbook/pkg/http"
	"courtbook/pkg/logger"
	"courtbook/pkg/model"
	"net/http"
	"strings"
)

const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"

	actorKey contextKey = "actor"
)

// Identity trusts the gateway in front of the service to have authenticated
// the caller and to pass who they are in X-User-ID / X-User-Role. A missing
// role means player.
func Identity(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" || len(userID) > 100 {
				log.Warn("Missing or invalid caller identity",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
				)
				_ = httputil.WriteError(w, apperrors.Unauthorized(UserIDHeader+" header is required"))
				return
			}

			role := model.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(UserRoleHeader))))
			switch role {
			case "":
				role = model.RolePlayer
			case model.RolePlayer, model.RoleAdmin:
			default:
				_ = httputil.WriteError(w, apperrors.InvalidInput("unknown role: "+string(role)))
				return
			}

			ctx := WithActor(r.Context(), model.Actor{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// RequireActor returns the caller set by Identity, or an Unauthorized error
// when the route is served without it.
func RequireActor(ctx context.Context) (model.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return model.Actor{}, apperrors.Unauthorized("caller identity is required")
	}
	return actor, nil
}
