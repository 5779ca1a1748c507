package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Fields are the scalar body values of a JSON, multipart or urlencoded request.
type Fields map[string]string

func (f Fields) Get(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

func (f Fields) String(name string) string {
	return f[name]
}

// Ptr returns nil when the field is absent.
func (f Fields) Ptr(name string) *string {
	v, ok := f[name]
	if !ok {
		return nil
	}
	return &v
}

func (f Fields) Bool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(f[name])) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// BindFields reads the request body into Fields. Multipart bodies are parsed
// with maxBytes as the in-memory limit so FormImage can be called afterwards.
func BindFields(r *http.Request, maxBytes int64) (Fields, error) {
	out := Fields{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if r.Body == nil || r.ContentLength == 0 {
			return out, nil
		}
		var raw map[string]interface{}
		if err := DecodeJSON(r, &raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			switch val := v.(type) {
			case nil:
			case string:
				out[k] = val
			case json.Number:
				out[k] = val.String()
			default:
				out[k] = fmt.Sprint(val)
			}
		}
		return out, nil
	}

	if err := ParseForm(r, maxBytes); err != nil {
		return nil, err
	}
	if r.MultipartForm != nil {
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				out[k] = vs[0]
			}
		}
		return out, nil
	}
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out, nil
}
