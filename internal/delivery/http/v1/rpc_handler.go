package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"identity-sync-backend/internal/delivery/http/middleware"
	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/metrics"
	"identity-sync-backend/pkg/rpc"
	"identity-sync-backend/pkg/security"
	"identity-sync-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	RPCPrefix = "/trpc"

	msgAdminRequired = "You must be an admin to invoke this request"
	msgNotPermitted  = "You are not permitted to invoke this request"
)

// Procedure is the signature every RPC procedure is registered with.
type Procedure = rpc.Handler[*domain.SessionContext]

type ProcedureMiddleware = rpc.Middleware[*domain.SessionContext]

// RequireUser rejects anonymous callers and callers whose local record could
// not be resolved.
func RequireUser() ProcedureMiddleware {
	return func(next Procedure) Procedure {
		return func(ctx context.Context, sc *domain.SessionContext, input json.RawMessage) (any, error) {
			if !sc.Authenticated() {
				return nil, rpc.Unauthorized("")
			}
			return next(ctx, sc, input)
		}
	}
}

// deniedCapability carries the capability an authenticated caller lacked.
type deniedCapability struct {
	capability domain.Capability
	err        error
}

func (d *deniedCapability) Error() string { return string(d.capability) + ": " + d.err.Error() }
func (d *deniedCapability) Unwrap() error { return d.err }

// RequireCapability admits callers the authorizer grants capability to.
// Denials surface as UNAUTHORIZED with the admin message.
func RequireCapability(authz domain.Authorizer, capability domain.Capability) ProcedureMiddleware {
	return func(next Procedure) Procedure {
		return func(ctx context.Context, sc *domain.SessionContext, input json.RawMessage) (any, error) {
			if !sc.Authenticated() {
				return nil, rpc.Unauthorized("")
			}
			if err := authz.Authorize(ctx, sc.User, capability); err != nil {
				msg := msgNotPermitted
				if capability == domain.CapabilityAdminister {
					msg = msgAdminRequired
				}
				return nil, &rpc.Error{
					Code:    rpc.CodeUnauthorized,
					Message: msg,
					Cause:   &deniedCapability{capability: capability, err: err},
				}
			}
			return next(ctx, sc, input)
		}
	}
}

type ListUsersInput struct {
	Limit  int `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `json:"offset" validate:"omitempty,min=0"`
}

type procedures struct {
	userUC   domain.UserUsecase
	validate *validator.Validate
}

type RPCHandler struct {
	router      *rpc.Router[*domain.SessionContext]
	securityLog *security.SecurityLogger
}

// NewRPCProcedures registers every procedure on a fresh router. The same
// router serves HTTP and in-process calls from page handlers.
func NewRPCProcedures(userUC domain.UserUsecase, authz domain.Authorizer, validate *validator.Validate) *rpc.Router[*domain.SessionContext] {
	h := &procedures{userUC: userUC, validate: validate}

	router := rpc.NewRouter[*domain.SessionContext]()
	router.Query("health", h.health)
	router.Query("user.me", h.me, RequireUser(), RequireCapability(authz, domain.CapabilityReadSelf))
	router.Query("admin.users.list", h.listUsers, RequireCapability(authz, domain.CapabilityAdminister))
	return router
}

func NewRPCHandler(r gin.IRoutes, router *rpc.Router[*domain.SessionContext], securityLog *security.SecurityLogger) {
	h := &RPCHandler{router: router, securityLog: securityLog}
	r.Any(RPCPrefix+"/*procedures", h.Serve)
}

// Serve godoc
// @Summary      RPC queries
// @Description  Serves health, user.me and admin.users.list. Batches join procedure names with commas and set batch=1.
// @Tags         rpc
// @Produce      json
// @Param        procedures  path   string  true   "Procedure name(s), e.g. user.me or health,user.me"
// @Param        batch       query  string  false  "Set to 1 for a batched call"
// @Param        input       query  string  false  "JSON-encoded input payload"
// @Success      200  {object}  map[string]interface{}
// @Success      207  {array}   map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /trpc/{procedures} [get]
func (h *RPCHandler) Serve(c *gin.Context) {
	sc := middleware.SessionContextFrom(c)
	meta := middleware.RequestMeta(c)

	h.router.Handler(rpc.HandlerOptions[*domain.SessionContext]{
		Prefix:   RPCPrefix,
		Context:  func(*http.Request) *domain.SessionContext { return sc },
		OnResult: h.onResult(sc, meta),
	}).ServeHTTP(c.Writer, c.Request)
}

func (h *RPCHandler) onResult(sc *domain.SessionContext, meta security.RequestMeta) rpc.ResultHandler {
	return func(r *http.Request, path string, err *rpc.Error) {
		if err == nil {
			metrics.RPCCalls.WithLabelValues(path, "OK").Inc()
			return
		}
		metrics.RPCCalls.WithLabelValues(path, string(err.Code)).Inc()
		if err.Code != rpc.CodeUnauthorized {
			return
		}

		var denied *deniedCapability
		if errors.As(err, &denied) && sc.Authenticated() {
			h.securityLog.LogForbiddenAccess(r.Context(), meta, sc.User.AuthID, path, string(denied.capability))
			return
		}
		h.securityLog.LogUnauthorizedAccess(r.Context(), meta, path)
	}
}

func (h *procedures) health(context.Context, *domain.SessionContext, json.RawMessage) (any, error) {
	return "ok", nil
}

func (h *procedures) me(ctx context.Context, sc *domain.SessionContext, _ json.RawMessage) (any, error) {
	return h.userUC.Me(ctx, sc)
}

func (h *procedures) listUsers(ctx context.Context, _ *domain.SessionContext, input json.RawMessage) (any, error) {
	var in ListUsersInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, rpc.NewError(rpc.CodeBadRequest, "Invalid input")
		}
	}
	if err := h.validate.Struct(in); err != nil {
		msgs := validation.FormatValidationErrors(err)
		return nil, &rpc.Error{Code: rpc.CodeBadRequest, Message: msgs[0], Cause: err}
	}
	return h.userUC.List(ctx, in.Limit, in.Offset)
}
