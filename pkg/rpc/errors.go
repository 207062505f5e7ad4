package rpc

import (
	"errors"
	"net/http"

	"identity-sync-backend/pkg/apperror"
)

type Code string

const (
	CodeParseError          Code = "PARSE_ERROR"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeMethodNotSupported  Code = "METHOD_NOT_SUPPORTED"
	CodeTooManyRequests     Code = "TOO_MANY_REQUESTS"
	CodeInternalServerError Code = "INTERNAL_SERVER_ERROR"
)

type codeInfo struct {
	httpStatus int
	jsonRPC    int
}

var codes = map[Code]codeInfo{
	CodeParseError:          {http.StatusBadRequest, -32700},
	CodeBadRequest:          {http.StatusBadRequest, -32600},
	CodeUnauthorized:        {http.StatusUnauthorized, -32001},
	CodeForbidden:           {http.StatusForbidden, -32003},
	CodeNotFound:            {http.StatusNotFound, -32004},
	CodeMethodNotSupported:  {http.StatusMethodNotAllowed, -32005},
	CodeTooManyRequests:     {http.StatusTooManyRequests, -32029},
	CodeInternalServerError: {http.StatusInternalServerError, -32603},
}

func (c Code) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.httpStatus
	}
	return http.StatusInternalServerError
}

// JSONRPC returns the JSON-RPC 2.0 error number sent in the "code" field.
func (c Code) JSONRPC() int {
	if info, ok := codes[c]; ok {
		return info.jsonRPC
	}
	return -32603
}

func codeFromJSONRPC(n int) Code {
	for c, info := range codes {
		if info.jsonRPC == n {
			return c
		}
	}
	return CodeInternalServerError
}

// Error is a typed procedure failure.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = string(CodeUnauthorized)
	}
	return NewError(CodeUnauthorized, message)
}

// AsError converts any error returned by a procedure into an *Error. AppErrors
// keep their message; anything else becomes an opaque internal error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return &Error{Code: codeFromStatus(appErr.Code), Message: appErr.Message, Cause: err}
	}
	return &Error{Code: CodeInternalServerError, Message: "Internal server error", Cause: err}
}

func codeFromStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	default:
		return CodeInternalServerError
	}
}
