// Package mcp exposes the corpus retriever over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
	"github.com/Aman-CERP/corpusrag/pkg/searcher"
)

// Custom MCP error codes.
const (
	// ErrCodeIndexNotFound indicates no index has been built yet.
	ErrCodeIndexNotFound = -32001

	// ErrCodeEmbeddingFailed indicates the query could not be embedded.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeCorruptIndex indicates the index file failed to parse.
	ErrCodeCorruptIndex = -32004

	// ErrCodeDimensionMismatch indicates the query embedding does not match the index.
	ErrCodeDimensionMismatch = -32005

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrIndexNotFound indicates the index file does not exist.
var ErrIndexNotFound = searcher.ErrIndexNotFound

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error to an MCPError. Nil maps to nil.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *MCPError
	if errors.As(err, &me) {
		return me
	}

	var dm searcher.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &MCPError{
			Code:    ErrCodeDimensionMismatch,
			Message: dm.Error() + ". Rebuild the index with the current embedding model.",
		}
	}

	if ce, ok := cerrors.As(err); ok {
		return mapCorpusError(ce)
	}

	switch {
	case errors.Is(err, ErrIndexNotFound):
		return &MCPError{
			Code:    ErrCodeIndexNotFound,
			Message: "No index found. Run 'corpusrag index' first.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Request cancelled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapCorpusError(ce *cerrors.CorpusError) *MCPError {
	message := ce.Message
	if ce.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ce.Message, ce.Suggestion)
	}

	switch ce.Code {
	case cerrors.ErrCodeFileNotFound:
		return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
	case cerrors.ErrCodeCorruptIndex:
		return &MCPError{Code: ErrCodeCorruptIndex, Message: message}
	case cerrors.ErrCodeDimensionMismatch:
		return &MCPError{Code: ErrCodeDimensionMismatch, Message: message}
	case cerrors.ErrCodeEmbeddingFailed, cerrors.ErrCodeMissingCredentials:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	}

	switch ce.Category {
	case cerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case cerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
