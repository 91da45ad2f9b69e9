package handler

import (
	"context"
	"errors"

	"github.com/UltraSive/payload-store/internal/store"
	"github.com/UltraSive/payload-store/pkg/logger"
)

const (
	OpPut = "put"
	OpGet = "get"
)

// Stable error codes sent to clients. Backend detail never leaves the process.
const (
	CodeNotFound       = "not_found"
	CodeStorageFailure = "storage_failure"
	CodeBadRequest     = "bad_request"
)

type Request struct {
	Op      string `json:"op"`
	ID      string `json:"id,omitempty"`
	Payload string `json:"payload,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	ID      string `json:"id,omitempty"`
	Payload string `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Store is the part of the expiring store the transports drive.
type Store interface {
	Put(ctx context.Context, payload string) (string, error)
	Get(ctx context.Context, id string) (string, error)
}

type Handler struct {
	Store Store
	Log   logger.Logger
}

func New(s Store, log logger.Logger) *Handler {
	return &Handler{Store: s, Log: log}
}

func (h *Handler) Serve(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpPut:
		id, err := h.Store.Put(ctx, req.Payload)
		if err != nil {
			return Response{Error: h.Code(err, "op", OpPut)}
		}
		return Response{OK: true, ID: id}

	case OpGet:
		payload, err := h.Store.Get(ctx, req.ID)
		if err != nil {
			return Response{Error: h.Code(err, "op", OpGet, "id", req.ID)}
		}
		return Response{OK: true, Payload: payload}

	default:
		return Response{Error: CodeBadRequest}
	}
}

// Code maps err to its stable client-facing code, logging storage failures
// with their full cause.
func (h *Handler) Code(err error, args ...any) string {
	if errors.Is(err, store.ErrNotFound) {
		return CodeNotFound
	}
	h.Log.Error("storage failure", err, args...)
	return CodeStorageFailure
}
