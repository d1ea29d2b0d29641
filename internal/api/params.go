package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adminkit/adminkit/internal/record"
)

// PathUUID parses a uuid route parameter; on failure it writes the error
// response and reports false.
func PathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		ErrorResponse(w, r, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// ReadOptions translates the shared query parameters (include_deleted,
// fields) into record read options.
func ReadOptions(r *http.Request) []record.ReadOption {
	var opts []record.ReadOption
	q := r.URL.Query()
	if q.Get("include_deleted") == "true" {
		opts = append(opts, record.IncludeDeleted())
	}
	if fields, ok := q["fields"]; ok {
		opts = append(opts, record.WithFields(fields...))
	}
	return opts
}

// BulkIDsRequest is the common body of id-driven bulk endpoints.
type BulkIDsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// BulkResultResponse is the wire shape of a partial bulk outcome.
type BulkResultResponse struct {
	Succeeded []uuid.UUID      `json:"succeeded"`
	Errors    []map[string]any `json:"errors"`
}

// BulkResponse flattens a bulk result for the wire, stringifying the
// per-item errors.
func BulkResponse(res *record.BulkResult) BulkResultResponse {
	out := BulkResultResponse{Succeeded: res.Succeeded, Errors: []map[string]any{}}
	if out.Succeeded == nil {
		out.Succeeded = []uuid.UUID{}
	}
	for _, e := range res.Errors {
		item := map[string]any{"index": e.Index, "error": e.Err.Error()}
		if e.ID != uuid.Nil {
			item["id"] = e.ID
		}
		out.Errors = append(out.Errors, item)
	}
	return out
}
