package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/drinkhub/internal/domain/fault"
)

const maxBodyBytes = 1 << 20

var (
	ErrBadRequest       = fault.New(fault.Validation, "bad_request", "malformed request body")
	ErrInvalidIdentity  = fault.New(fault.Validation, "invalid_identity", "missing or invalid caller identity")
	ErrInvalidID        = fault.New(fault.Validation, "invalid_id", "invalid identifier")
	ErrInvalidTimestamp = fault.New(fault.Validation, "invalid_timestamp", "timestamps must be RFC 3339")
)

var kindStatus = map[fault.Kind]int{
	fault.Validation:   http.StatusBadRequest,
	fault.NotFound:     http.StatusNotFound,
	fault.BusinessRule: http.StatusUnprocessableEntity,
	fault.Conflict:     http.StatusConflict,
	fault.Internal:     http.StatusInternalServerError,
}

// writeOK writes {"success":true,"message":msg} plus the fields added by body.
func writeOK(w http.ResponseWriter, status int, msg string, body func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
	e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	if body != nil {
		body(e)
	}
	e.ObjEnd()
	write(w, status, e.Bytes())
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := fault.KindOf(err)
	status := kindStatus[kind]
	if kind == fault.Internal {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
	e.Field("message", func(e *jx.Encoder) { e.Str(fault.Message(err)) })
	e.Field("code", func(e *jx.Encoder) { e.Str(fault.Code(err)) })
	e.ObjEnd()
	write(w, status, e.Bytes())
}

func write(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// decodeBody parses the request body with fn. An empty body is an error.
func decodeBody(r *http.Request, w http.ResponseWriter, fn func(d *jx.Decoder) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || len(data) == 0 {
		return ErrBadRequest
	}
	if err := fn(jx.DecodeBytes(data)); err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) {
			return fe
		}
		return ErrBadRequest
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// headerID parses an optional positive id header. Absent headers yield 0.
func headerID(r *http.Request, name string) (int64, error) {
	v := r.Header.Get(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidIdentity
	}
	return id, nil
}
