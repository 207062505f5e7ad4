package domain

type CtxKey string

const (
	KeyUserID        CtxKey = "UserID"
	KeyAuthID        CtxKey = "AuthID"
	KeyUserRole      CtxKey = "Role"
	KeySessionClaims CtxKey = "SessionClaims"
	KeySessionCtx    CtxKey = "SessionContext"
	KeyRequestID     CtxKey = "RequestID"
)
