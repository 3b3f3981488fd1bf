// Package http provides HTTP server and handler implementations.
//
// This file implements request body decoding against the request schemas of
// the core package, and path identifier parsing.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"ledger/internal/core"
)

const maxBodyBytes = 64 << 10

// DecodeBody reads a JSON object from the request and checks it against
// schema. Numbers are kept as json.Number so amounts never pass through a
// float. Malformed bodies are reported as a *core.SchemaError on the "body"
// field; an empty body is decoded as {} so the schema reports the missing
// fields.
func DecodeBody(w http.ResponseWriter, r *http.Request, schema core.Schema) (core.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, core.NewSchemaError("body", fmt.Sprintf("request body exceeds %d bytes.", tooLarge.Limit))
		}
		return nil, core.NewSchemaError("body", "JSON parse error: "+err.Error())
	}
	if dec.More() {
		return nil, core.NewSchemaError("body", "request body must contain a single JSON object.")
	}

	return schema.Decode(body)
}

// PathID parses the {id} path segment. A segment that is not a positive
// integer cannot name any entity, so it is reported as a ReferenceError.
func PathID(r *http.Request, entity string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewReferenceError(entity, "", id)
	}
	return id, nil
}
