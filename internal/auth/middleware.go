package auth

import (
	"context"
	"net/http"
	"strings"

	"Checkout/pkg/kit"
)

type ctxKey string

const shopperKey ctxKey = "shopper_id"

func ShopperFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(shopperKey).(string)
	return v, ok && v != ""
}

func WithShopper(ctx context.Context, shopperID string) context.Context {
	return context.WithValue(ctx, shopperKey, shopperID)
}

func RequireShopper(tm *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}

			claims, err := tm.Parse(strings.TrimPrefix(authz, "Bearer "))
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithShopper(r.Context(), claims.ShopperID)))
		})
	}
}
