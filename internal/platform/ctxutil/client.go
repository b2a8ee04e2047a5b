package ctxutil

import "context"

type clientDataKey struct{}

// ClientData identifies the authenticated API client of a request.
type ClientData struct {
	ClientID int64
}

func WithClientData(ctx context.Context, cd *ClientData) context.Context {
	return context.WithValue(ctx, clientDataKey{}, cd)
}

func GetClientData(ctx context.Context) *ClientData {
	if ctx == nil {
		return nil
	}
	if cd, ok := ctx.Value(clientDataKey{}).(*ClientData); ok {
		return cd
	}
	return nil
}

