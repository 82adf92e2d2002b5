package auth

import (
	"encoding/json"
	"strings"

	xhttp "github.com/nimasrn/lead-crm/pkg/http"
	"github.com/nimasrn/lead-crm/pkg/logger"
)

const (
	ClaimsKey = "auth_claims"

	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
)

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

// RequireRoles rejects requests without a valid bearer token (401) or whose
// role is not one of roles (403). Accepted claims are stored on the request
// under ClaimsKey.
func RequireRoles(v *Verifier, roles ...string) xhttp.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			raw := bearer(string(ctx.Request.Header.Peek("Authorization")))
			if raw == "" {
				deny(ctx, xhttp.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
				return
			}
			claims, err := v.Verify(raw)
			if err != nil {
				logger.Debug("[auth] token rejected", "error", err, "path", string(ctx.Path()))
				deny(ctx, xhttp.StatusUnauthorized, CodeUnauthorized, err.Error())
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				logger.Warn("[auth] role not allowed", "subject", claims.Subject, "role", claims.Role, "path", string(ctx.Path()))
				deny(ctx, xhttp.StatusForbidden, CodeForbidden, "role not allowed")
				return
			}
			ctx.SetUserValue(ClaimsKey, claims)
			next(ctx)
		}
	}
}

// ClaimsFrom returns the claims stored by RequireRoles, or nil.
func ClaimsFrom(ctx *xhttp.RequestCtx) *Claims {
	c, _ := ctx.UserValue(ClaimsKey).(*Claims)
	return c
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func deny(ctx *xhttp.RequestCtx, status int, code, message string) {
	body := errorBody{Message: message}
	body.Error.Code = code
	b, _ := json.Marshal(body)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	if status == xhttp.StatusUnauthorized {
		ctx.Response.Header.Set("WWW-Authenticate", `Bearer realm="crm"`)
	}
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}
