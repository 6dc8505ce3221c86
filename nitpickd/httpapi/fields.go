package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/xerrors"
)

// ParseFields reads the optional "fields" query parameter, a comma
// separated list of output field names. ok is false when the parameter is
// absent, meaning no projection should be applied.
func ParseFields(r *http.Request) (fields []string, ok bool) {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return nil, false
	}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field != "" {
			fields = append(fields, field)
		}
	}
	return fields, true
}

// ProjectFields narrows a JSON-marshalable record to exactly the requested
// field names. Unknown names are silently ignored. The result marshals as
// an object containing only the requested subset.
func ProjectFields(record interface{}, fields []string) (map[string]json.RawMessage, error) {
	buf, err := json.Marshal(record)
	if err != nil {
		return nil, xerrors.Errorf("marshal record: %w", err)
	}
	var full map[string]json.RawMessage
	if err := json.Unmarshal(buf, &full); err != nil {
		return nil, xerrors.Errorf("unmarshal record: %w", err)
	}
	projected := make(map[string]json.RawMessage, len(fields))
	for _, field := range fields {
		if value, found := full[field]; found {
			projected[field] = value
		}
	}
	return projected, nil
}
