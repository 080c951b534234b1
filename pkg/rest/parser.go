package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/devmock/devmock/internal/mimetype"
)

// DefaultMaxBodyBytes caps request bodies read into memory.
const DefaultMaxBodyBytes = 10 << 20

// ParsedBody is the product of a custom parser. A nil Query keeps the
// request's original query values.
type ParsedBody struct {
	Body  any
	Files []File
	Query *QueryValues
}

// ParserFunc replaces the built-in body parser for a handler or globally.
// raw holds the full request body.
type ParserFunc func(req *Request, raw []byte) (*ParsedBody, error)

// ParserConfig controls body parsing.
type ParserConfig struct {
	// Disabled skips parsing entirely; the body is kept as raw bytes.
	Disabled bool
	// Custom replaces the built-in parser when set.
	Custom ParserFunc
	// MaxBodyBytes caps the body size; zero applies DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// ParseBody reads and decodes the request body per the Content-Type,
// mutating req in place. Decode selection: JSON (including the patch
// variants), urlencoded, multipart, text, then a JSON-attempt fallback.
func ParseBody(req *Request, cfg *ParserConfig) error {
	if cfg == nil {
		cfg = &ParserConfig{}
	}

	raw, err := readBody(req, cfg.MaxBodyBytes)
	if err != nil {
		return err
	}
	req.RawBody = raw

	if cfg.Disabled {
		if len(raw) > 0 {
			req.Body = raw
		}
		return nil
	}

	if cfg.Custom != nil {
		parsed, err := cfg.Custom(req, raw)
		if err != nil {
			return BadRequest("Failed to parse request body: %v", err)
		}
		if parsed != nil {
			req.Body = parsed.Body
			req.Files = parsed.Files
			if parsed.Query != nil {
				req.Query = parsed.Query
			}
		}
		return nil
	}

	if len(raw) == 0 {
		return nil
	}

	mediaType, params, _ := mime.ParseMediaType(req.ContentType())
	switch {
	case mimetype.IsJSONType(mediaType):
		value, err := decodeJSON(raw)
		if err != nil {
			return BadRequest("Failed to parse request body: %v", err)
		}
		req.Body = value

	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return BadRequest("Failed to parse request body: %v", err)
		}
		req.Body = formToBody(values)

	case strings.HasPrefix(mediaType, "multipart/"):
		if err := parseMultipart(req, raw, params["boundary"]); err != nil {
			return err
		}

	case strings.HasPrefix(mediaType, "text/"):
		req.Body = string(raw)

	default:
		// Unknown content type: attempt JSON, else keep the string form.
		if value, err := decodeJSON(raw); err == nil {
			req.Body = value
		} else {
			req.Body = string(raw)
		}
	}
	return nil
}

// readBody drains the request body up to the configured cap.
func readBody(req *Request, maxBytes int64) ([]byte, error) {
	if req.Raw == nil || req.Raw.Body == nil {
		return nil, nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	raw, err := io.ReadAll(io.LimitReader(req.Raw.Body, maxBytes+1))
	if err != nil {
		return nil, BadRequest("Failed to read request body: %v", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, ClientError(http.StatusRequestEntityTooLarge, "Request body larger than %d bytes", maxBytes)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// decodeJSON decodes a single JSON value keeping full number fidelity, and
// rejects trailing garbage.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected trailing data after JSON value")
	}
	return value, nil
}

// formToBody flattens url.Values into the body map: single values become
// strings, repeated keys become arrays.
func formToBody(values url.Values) map[string]any {
	body := make(map[string]any, len(values))
	for key, vs := range values {
		if len(vs) == 1 {
			body[key] = vs[0]
			continue
		}
		arr := make([]any, len(vs))
		for i, v := range vs {
			arr[i] = v
		}
		body[key] = arr
	}
	return body
}

// parseMultipart enumerates parts: parts with a filename become files,
// everything else becomes a body field. Repeated field names accumulate
// into arrays.
func parseMultipart(req *Request, raw []byte, boundary string) error {
	if boundary == "" {
		return BadRequest("Failed to parse request body: missing multipart boundary")
	}

	body := make(map[string]any)
	reader := multipart.NewReader(bytes.NewReader(raw), boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return BadRequest("Failed to parse request body: %v", err)
		}

		content, err := io.ReadAll(part)
		if err != nil {
			return BadRequest("Failed to parse request body: %v", err)
		}

		if part.FileName() != "" {
			contentType := part.Header.Get("Content-Type")
			if contentType == "" {
				contentType = mimetype.OctetStream
			}
			req.Files = append(req.Files, File{
				FieldName:   part.FormName(),
				Filename:    part.FileName(),
				ContentType: contentType,
				Content:     content,
			})
			continue
		}

		name := part.FormName()
		value := string(content)
		switch existing := body[name].(type) {
		case nil:
			body[name] = value
		case []any:
			body[name] = append(existing, value)
		default:
			body[name] = []any{existing, value}
		}
	}

	if len(body) > 0 {
		req.Body = body
	}
	return nil
}
