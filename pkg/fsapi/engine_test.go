package fsapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmock/devmock/pkg/listing"
	"github.com/devmock/devmock/pkg/rest"
)

const usersDoc = `[
  {
    "id": 1,
    "name": "Alice"
  },
  {
    "id": 2,
    "name": "Bob"
  }
]`

const accountsDoc = `[
  {"id": 1, "status": "active"},
  {"id": 2, "status": "inactive"},
  {"id": 3, "status": "active"},
  {"id": 4, "status": "inactive"}
]`

func newRequest(t *testing.T, method, target, contentType, body string) *rest.Request {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	httpReq := httptest.NewRequest(method, "http://mock.local"+target, rd)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	req := rest.NewRequest(httpReq)
	require.NoError(t, rest.ParseBody(req, nil))
	return req
}

func serve(t *testing.T, root string, req *rest.Request, opts *Options) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	res := rest.NewResponseWriter(rec, req.Path)
	if err := New(root).Handle(req, res, opts); err != nil {
		res.WriteError(err)
	}
	return rec
}

func parseEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func idFilter() *listing.Filters {
	return &listing.Filters{
		Source: listing.SourceQuery,
		Rules: []listing.Rule{
			{Key: "id", Type: listing.TypeNumber, Comparison: listing.CmpEq},
		},
	}
}

func TestGetArrayServesFileVerbatim(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	rec := serve(t, root, newRequest(t, http.MethodGet, "/users", "", ""), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get(HeaderTotalElements))
	assert.Equal(t, usersDoc, rec.Body.String())
}

func TestGetWithFilterNarrowsArray(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	req := newRequest(t, http.MethodGet, "/users?id=1", "", "")
	rec := serve(t, root, req, &Options{Filters: idFilter()})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderTotalElements))
	assert.JSONEq(t, `[{"id": 1, "name": "Alice"}]`, rec.Body.String())
}

func TestGetFilterConfiguredButInactive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	// no id parameter: the rule stays inactive and the file passes through
	rec := serve(t, root, newRequest(t, http.MethodGet, "/users", "", ""), &Options{Filters: idFilter()})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get(HeaderTotalElements))
	assert.Equal(t, usersDoc, rec.Body.String())
}

func TestGetPagination(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"accounts.json": accountsDoc})

	page := &listing.Pagination{
		Source: listing.SourceQuery,
		Limit:  "limit",
		Skip:   "skip",
		Sort:   "sort",
		Order:  "order",
	}
	req := newRequest(t, http.MethodGet, "/accounts?limit=2&skip=1&sort=id&order=DESC", "", "")
	rec := serve(t, root, req, &Options{Pagination: page})

	assert.Equal(t, http.StatusOK, rec.Code)
	// total counts the filtered set before windowing
	assert.Equal(t, "4", rec.Header().Get(HeaderTotalElements))

	var window []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &window))
	require.Len(t, window, 2)
	assert.EqualValues(t, 3, window[0]["id"])
	assert.EqualValues(t, 2, window[1]["id"])
}

func TestGetInvalidOrderToken(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"accounts.json": accountsDoc})

	page := &listing.Pagination{Source: listing.SourceQuery, Sort: "sort", Order: "order"}
	req := newRequest(t, http.MethodGet, "/accounts?sort=id&order=UPWARDS", "", "")
	rec := serve(t, root, req, &Options{Pagination: page})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetObjectPassesThroughWhole(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"profile.json": `{"id": 7, "name": "Ada"}`})

	req := newRequest(t, http.MethodGet, "/profile?id=7", "", "")
	rec := serve(t, root, req, &Options{Filters: idFilter()})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderTotalElements))
	assert.JSONEq(t, `{"id": 7, "name": "Ada"}`, rec.Body.String())
}

func TestGetNonJSONStreams(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"readme.txt": "plain text content"})

	rec := serve(t, root, newRequest(t, http.MethodGet, "/readme.txt", "", ""), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get(HeaderTotalElements))
	assert.Equal(t, "plain text content", rec.Body.String())
}

func TestGetWithBodyRejected(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	tests := []struct {
		name      string
		delegated bool
		message   string
	}{
		{"pure", false, "GET request cannot have a body in File System API mode"},
		{"delegated", true, "GET request cannot have a body in REST File System API mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, http.MethodGet, "/users", "application/json", `{"x":1}`)
			rec := serve(t, root, req, &Options{Delegated: tt.delegated})

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, parseEnvelope(t, rec)["message"])
		})
	}
}

func TestGetMissPureFallsThrough(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodGet, "/nope", "", "")
	err := New(root).Handle(req, rest.NewResponseWriter(httptest.NewRecorder(), req.Path), nil)

	var engineErr *rest.Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, rest.KindNoHandler, engineErr.Kind)
}

func TestGetMissDelegatedIs404(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodGet, "/nope", "", "")
	rec := serve(t, root, req, &Options{Delegated: true})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "File at /nope not found", parseEnvelope(t, rec)["message"])
}

func TestGetBrokenJSONFileIs500(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"broken.json": `{"unterminated": `})

	rec := serve(t, root, newRequest(t, http.MethodGet, "/broken", "", ""), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHeadJSON(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	rec := serve(t, root, newRequest(t, http.MethodHead, "/users", "", ""), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2", rec.Header().Get(HeaderTotalElements))
	// length of the body a GET would return, without the body itself
	assert.Equal(t, strconv.Itoa(len(usersDoc)), rec.Header().Get("Content-Length"))
	assert.Zero(t, rec.Body.Len())
}

func TestHeadNonJSON(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"logo.png": "\x89PNG fake"})

	rec := serve(t, root, newRequest(t, http.MethodHead, "/logo.png", "", ""), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "9", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Header().Get(HeaderTotalElements))
	assert.Zero(t, rec.Body.Len())
}

func TestPostCreatesPrettyJSON(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPost, "/user2", "application/json", `{"name": "Bob", "age": 30}`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)

	written, err := os.ReadFile(filepath.Join(root, "user2.json"))
	require.NoError(t, err)
	// two-space indent, original key order preserved
	assert.Equal(t, "{\n  \"name\": \"Bob\",\n  \"age\": 30\n}", string(written))
	assert.Equal(t, string(written), rec.Body.String())
}

func TestPostKeepsURLExtension(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPost, "/notes/today.txt", "text/plain", "remember the milk")
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	written, err := os.ReadFile(filepath.Join(root, "notes", "today.txt"))
	require.NoError(t, err)
	assert.Equal(t, "remember the milk", string(written))
}

func TestPostExtensionFromContentType(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPost, "/notes/today", "text/plain", "remember the milk")
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	_, err := os.Stat(filepath.Join(root, "notes", "today.txt"))
	assert.NoError(t, err)
}

func TestPostFromUploadedFile(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPost, "/avatar", "", "")
	req.Files = []rest.File{{
		FieldName:   "file",
		Filename:    "pic.png",
		ContentType: "image/png",
		Content:     []byte("\x89PNG data"),
	}}
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	written, err := os.ReadFile(filepath.Join(root, "avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG data"), written)
}

func TestPostMultipleFilesRejected(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPost, "/upload", "", "")
	req.Files = []rest.File{
		{FieldName: "a", Filename: "a.txt", Content: []byte("a")},
		{FieldName: "b", Filename: "b.txt", Content: []byte("b")},
	}
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostBodyAndFileRejected(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPost, "/upload", "application/json", `{"x":1}`)
	req.Files = []rest.File{{FieldName: "a", Filename: "a.txt", Content: []byte("a")}}
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "POST request cannot have both a body and a file", parseEnvelope(t, rec)["message"])
}

func TestPostExistingJSONConflicts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	req := newRequest(t, http.MethodPost, "/users", "application/json", `{"id": 3}`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "File at /users already exists", parseEnvelope(t, rec)["message"])
}

func TestPostExistingNonJSONRejected(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"readme.txt": "text"})

	req := newRequest(t, http.MethodPost, "/readme.txt", "text/plain", "more text")
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t,
		"POST request for not json file is not allowed. File at /readme.txt already exists",
		parseEnvelope(t, rec)["message"])
}

func TestPostWithConfigsReadsExisting(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	req := newRequest(t, http.MethodPost, "/users?id=2", "", "")
	rec := serve(t, root, req, &Options{Filters: idFilter()})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderTotalElements))
	assert.JSONEq(t, `[{"id": 2, "name": "Bob"}]`, rec.Body.String())
}

func TestPostAbsentNoPayload(t *testing.T) {
	root := t.TempDir()

	rec := serve(t, root, newRequest(t, http.MethodPost, "/users", "", ""), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data provided", parseEnvelope(t, rec)["message"])
}

func TestPostAbsentWithConfigs(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPost, "/users?id=1", "application/json", `{"id": 1}`)
	rec := serve(t, root, req, &Options{Filters: idFilter()})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data to filter or to paginate", parseEnvelope(t, rec)["message"])
}

func TestPutCreatesAndReplaces(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPut, "/config", "application/json", `{"debug": true}`)
	rec := serve(t, root, req, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	req = newRequest(t, http.MethodPut, "/config", "application/json", `{"debug": false}`)
	rec = serve(t, root, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	written, err := os.ReadFile(filepath.Join(root, "config.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"debug": false}`, string(written))
}

func TestPutReplacesResolvedFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users/index.json": usersDoc})

	req := newRequest(t, http.MethodPut, "/users", "application/json", `[]`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	written, err := os.ReadFile(filepath.Join(root, "users", "index.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(written))
}

func TestPutNoPayload(t *testing.T) {
	root := t.TempDir()

	rec := serve(t, root, newRequest(t, http.MethodPut, "/config", "", ""), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data provided", parseEnvelope(t, rec)["message"])
}

func TestPatchOperations(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"item.json": `{"name": "old", "tags": ["a"]}`})

	patch := `[{"op": "replace", "path": "/name", "value": "new"}, {"op": "add", "path": "/tags/-", "value": "b"}]`
	req := newRequest(t, http.MethodPatch, "/item", "application/json-patch+json", patch)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name": "new", "tags": ["a", "b"]}`, rec.Body.String())

	written, err := os.ReadFile(filepath.Join(root, "item.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "new", "tags": ["a", "b"]}`, string(written))
	// the rewrite is re-indented like every other JSON write
	assert.True(t, strings.HasPrefix(string(written), "{\n  "), "file should be pretty-printed: %q", written)
}

func TestPatchMerge(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"item.json": `{"name": "old", "count": 1}`})

	req := newRequest(t, http.MethodPatch, "/item", "application/merge-patch+json", `{"name": "new", "count": null}`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name": "new"}`, rec.Body.String())
}

func TestPatchPlainJSONContentTypeMeansMerge(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"item.json": `{"a": 1}`})

	req := newRequest(t, http.MethodPatch, "/item", "application/json", `{"b": 2}`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"a": 1, "b": 2}`, rec.Body.String())
}

func TestPatchUnsupportedContentType(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"item.json": `{}`})

	req := newRequest(t, http.MethodPatch, "/item", "text/plain", "nope")
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestPatchMissingFile(t *testing.T) {
	root := t.TempDir()

	req := newRequest(t, http.MethodPatch, "/item", "application/json", `{"a": 1}`)
	rec := serve(t, root, req, &Options{Delegated: true})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchNonJSONFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"readme.txt": "text"})

	req := newRequest(t, http.MethodPatch, "/readme.txt", "application/json", `{"a": 1}`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PATCH request for not json file is not allowed", parseEnvelope(t, rec)["message"])
}

func TestPatchUnsupportedOperation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"item.json": `{"a": 1}`})

	req := newRequest(t, http.MethodPatch, "/item", "application/json-patch+json",
		`[{"op": "test", "path": "/a", "value": 1}]`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PATCH operation not supported: test", parseEnvelope(t, rec)["message"])
}

func TestPatchMalformedBody(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"item.json": `{"a": 1}`})

	req := newRequest(t, http.MethodPatch, "/item", "application/merge-patch+json", `{`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PATCH body request malformed", parseEnvelope(t, rec)["message"])
}

func TestDeleteWholeFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	rec := serve(t, root, newRequest(t, http.MethodDelete, "/users", "", ""), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderDeletedElements))
	_, err := os.Stat(filepath.Join(root, "users.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteFilteredElements(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"accounts.json": accountsDoc})

	filters := &listing.Filters{
		Source: listing.SourceQuery,
		Rules: []listing.Rule{
			{Key: "status", Type: listing.TypeString, Comparison: listing.CmpEq},
		},
	}
	req := newRequest(t, http.MethodDelete, "/accounts?status=inactive", "", "")
	rec := serve(t, root, req, &Options{Filters: filters})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get(HeaderDeletedElements))

	written, err := os.ReadFile(filepath.Join(root, "accounts.json"))
	require.NoError(t, err)
	var remaining []map[string]any
	require.NoError(t, json.Unmarshal(written, &remaining))
	require.Len(t, remaining, 2)
	for _, item := range remaining {
		assert.Equal(t, "active", item["status"])
	}
}

func TestDeleteFilteredNoMatch(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"accounts.json": accountsDoc})

	filters := &listing.Filters{
		Source: listing.SourceQuery,
		Rules: []listing.Rule{
			{Key: "status", Type: listing.TypeString, Comparison: listing.CmpEq},
		},
	}
	req := newRequest(t, http.MethodDelete, "/accounts?status=archived", "", "")
	rec := serve(t, root, req, &Options{Filters: filters})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Partial resource to delete not found", parseEnvelope(t, rec)["message"])

	// nothing was removed
	written, err := os.ReadFile(filepath.Join(root, "accounts.json"))
	require.NoError(t, err)
	assert.Equal(t, accountsDoc, string(written))
}

func TestDeleteAllElementsRemovesFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"accounts.json": `[{"status": "inactive"}, {"status": "inactive"}]`})

	filters := &listing.Filters{
		Source: listing.SourceQuery,
		Rules: []listing.Rule{
			{Key: "status", Type: listing.TypeString, Comparison: listing.CmpEq},
		},
	}
	req := newRequest(t, http.MethodDelete, "/accounts?status=inactive", "", "")
	rec := serve(t, root, req, &Options{Filters: filters})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get(HeaderDeletedElements))
	_, err := os.Stat(filepath.Join(root, "accounts.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteObjectDocumentFilters(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"profile.json": `{"status": "inactive"}`})

	filters := &listing.Filters{
		Source: listing.SourceQuery,
		Rules: []listing.Rule{
			{Key: "status", Type: listing.TypeString, Comparison: listing.CmpEq},
		},
	}
	req := newRequest(t, http.MethodDelete, "/profile?status=inactive", "", "")
	rec := serve(t, root, req, &Options{Filters: filters})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderDeletedElements))
	_, err := os.Stat(filepath.Join(root, "profile.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteWithBodyRejected(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	req := newRequest(t, http.MethodDelete, "/users", "application/json", `{"x": 1}`)
	rec := serve(t, root, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DELETE request cannot have a body in File System API mode", parseEnvelope(t, rec)["message"])
}

func TestOptionsNotAllowed(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	rec := serve(t, root, newRequest(t, http.MethodOptions, "/users", "", ""), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPreTransformRewritesLookup(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	transform := &rest.FilesystemHandle{
		PreReplace: []rest.Replacement{{Search: "/v1", Replace: ""}},
	}
	req := newRequest(t, http.MethodGet, "/v1/users", "", "")
	rec := serve(t, root, req, &Options{Transform: transform, Delegated: true})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usersDoc, rec.Body.String())
}

func TestPostTransformOwnsResponse(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	var received []byte
	transform := &rest.FilesystemHandle{
		Post: func(req *rest.Request, res *rest.ResponseWriter, file []byte) error {
			received = file
			return res.WriteRaw(http.StatusTeapot, "text/plain", []byte("custom"))
		},
	}
	req := newRequest(t, http.MethodGet, "/users", "", "")
	rec := serve(t, root, req, &Options{Transform: transform, Delegated: true})

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "custom", rec.Body.String())
	assert.Equal(t, usersDoc, string(received))
}

func TestPostTransformMissingFileGetsNil(t *testing.T) {
	root := t.TempDir()

	transform := &rest.FilesystemHandle{
		Post: func(req *rest.Request, res *rest.ResponseWriter, file []byte) error {
			require.Nil(t, file)
			return res.WriteJSON(http.StatusOK, map[string]any{"fallback": true})
		},
	}
	req := newRequest(t, http.MethodGet, "/nope", "", "")
	rec := serve(t, root, req, &Options{Transform: transform, Delegated: true})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostTransformMustRespond(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	transform := &rest.FilesystemHandle{
		Post: func(req *rest.Request, res *rest.ResponseWriter, file []byte) error {
			return nil
		},
	}
	req := newRequest(t, http.MethodGet, "/users", "", "")
	rec := serve(t, root, req, &Options{Transform: transform, Delegated: true})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "FS REST Handle request not send any response", parseEnvelope(t, rec)["message"])
}

func TestPostTransformSkipsListing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"users.json": usersDoc})

	transform := &rest.FilesystemHandle{
		Post: func(req *rest.Request, res *rest.ResponseWriter, file []byte) error {
			// the hook receives the raw file, not a filtered view
			return res.WriteRaw(http.StatusOK, "application/json", file)
		},
	}
	req := newRequest(t, http.MethodGet, "/users?id=1", "", "")
	rec := serve(t, root, req, &Options{Transform: transform, Filters: idFilter(), Delegated: true})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usersDoc, rec.Body.String())
	assert.Empty(t, rec.Header().Get(HeaderTotalElements))
}

func TestPostTransformErrorPropagates(t *testing.T) {
	root := t.TempDir()

	transform := &rest.FilesystemHandle{
		Post: func(req *rest.Request, res *rest.ResponseWriter, file []byte) error {
			return errors.New("hook exploded")
		},
	}
	req := newRequest(t, http.MethodGet, "/nope", "", "")
	err := New(root).Handle(req, rest.NewResponseWriter(httptest.NewRecorder(), req.Path), &Options{Transform: transform})

	assert.EqualError(t, err, "hook exploded")
}

