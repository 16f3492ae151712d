package middleware

import "context"

type contextKey string

const (
	ContextKeyActor     contextKey = "actor"
	ContextKeyRole      contextKey = "role"
	ContextKeyUserAgent contextKey = "user_agent"
	ContextKeyRemoteIP  contextKey = "remote_ip"
)

// ActorFromContext returns the authenticated actor identifier (a user id or
// a service principal name).
func ActorFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyActor).(string)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyRole).(string)
	return v, ok
}

func UserAgentFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserAgent).(string)
	return v, ok
}

func RemoteIPFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyRemoteIP).(string)
	return v, ok
}
