package fsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/internal/mimetype"
	"github.com/devmock/devmock/pkg/jsonpatch"
	"github.com/devmock/devmock/pkg/listing"
	"github.com/devmock/devmock/pkg/rest"
)

// Response headers reporting element counts on reads and deletes.
const (
	HeaderTotalElements   = "X-Total-Elements"
	HeaderDeletedElements = "X-Deleted-Elements"
)

// Options carries the per-request configuration picked by the dispatcher.
type Options struct {
	// Pagination and Filters are already resolved against the engine-wide
	// defaults for the request method.
	Pagination *listing.Pagination
	Filters    *listing.Filters

	// Transform holds a matched handler's path rewrite and post hook.
	Transform *rest.FilesystemHandle

	// Delegated marks requests routed through a matched handler rather than
	// the bare filesystem surface. It changes miss handling (an envelope
	// instead of falling through to the unmatched-request action) and the
	// mode name quoted in error messages.
	Delegated bool
}

// Engine answers REST requests from a directory tree.
type Engine struct {
	resolver *Resolver
}

// New creates an engine over the given root directory.
func New(root string) *Engine {
	return &Engine{resolver: NewResolver(root)}
}

// Resolver exposes the engine's path resolver.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Handle serves one request from the tree. The body has already been parsed
// and the response writer carries the original request path for envelopes.
func (e *Engine) Handle(req *rest.Request, res *rest.ResponseWriter, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	lookup := req.Path
	if opts.Transform != nil {
		lookup = opts.Transform.TransformPath(lookup)
	}
	if opts.Transform != nil && opts.Transform.Post != nil {
		return e.delegatePost(req, res, opts, lookup)
	}

	switch req.Method {
	case http.MethodHead:
		return e.read(req, res, opts, lookup, false)
	case http.MethodGet:
		return e.read(req, res, opts, lookup, true)
	case http.MethodPost:
		return e.create(req, res, opts, lookup)
	case http.MethodPut:
		return e.replace(req, res, lookup)
	case http.MethodPatch:
		return e.patch(req, res, opts, lookup)
	case http.MethodDelete:
		return e.remove(req, res, opts, lookup)
	default:
		return rest.ClientError(http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

// delegatePost resolves the file and hands the bytes (nil on a miss) to the
// handler's post hook, which owns the response. Automatic pagination and
// filtering are skipped entirely.
func (e *Engine) delegatePost(req *rest.Request, res *rest.ResponseWriter, opts *Options, lookup string) error {
	ref, ok, err := e.resolver.Resolve(lookup)
	if err != nil {
		return rest.Internal(err)
	}
	var file []byte
	if ok {
		file, err = os.ReadFile(ref.Path)
		if err != nil {
			return rest.Internal(err)
		}
	}
	if err := opts.Transform.Post(req, res, file); err != nil {
		return err
	}
	if !res.Committed() && !res.Ended() {
		return rest.ManuallyHandled("FS REST Handle request not send any response")
	}
	res.End()
	return nil
}

func (e *Engine) read(req *rest.Request, res *rest.ResponseWriter, opts *Options, lookup string, withBody bool) error {
	if req.HasBody() {
		return rest.BadRequest("GET request cannot have a body in %s", modeName(opts))
	}
	ref, ok, err := e.resolver.Resolve(lookup)
	if err != nil {
		return rest.Internal(err)
	}
	if !ok {
		return missError(opts, lookup)
	}
	return e.respondRead(req, res, opts, ref, withBody)
}

// respondRead writes a resolved file. JSON arrays get the configured
// pagination and filters applied; every JSON resource reports its element
// total. Non-JSON files are streamed verbatim.
func (e *Engine) respondRead(req *rest.Request, res *rest.ResponseWriter, opts *Options, ref *FileRef, withBody bool) error {
	preds, page, err := extract(req, opts)
	if err != nil {
		return err
	}

	if !ref.IsJSON() {
		if !withBody {
			res.Header().Set("Content-Type", ref.MediaType)
			res.Header().Set("Content-Length", strconv.FormatInt(ref.Size, 10))
			res.WriteNoContent(http.StatusOK)
			return nil
		}
		f, err := os.Open(ref.Path)
		if err != nil {
			return rest.Internal(err)
		}
		defer f.Close()
		return res.Stream(http.StatusOK, ref.MediaType, ref.Size, f)
	}

	doc, raw, err := readJSONFile(ref.Path)
	if err != nil {
		return rest.Internal(err)
	}

	body := raw
	total := elementTotal(doc)
	if arr, isArray := doc.([]any); isArray && (len(preds) > 0 || page != nil) {
		window, filteredTotal := listing.Apply(arr, preds, page)
		total = filteredTotal
		body, err = json.Marshal(window)
		if err != nil {
			return rest.Internal(err)
		}
	}

	res.Header().Set(HeaderTotalElements, strconv.Itoa(total))
	if !withBody {
		res.Header().Set("Content-Type", mimetype.JSON)
		res.Header().Set("Content-Length", strconv.Itoa(len(body)))
		res.WriteNoContent(http.StatusOK)
		return nil
	}
	return res.WriteRaw(http.StatusOK, mimetype.JSON, body)
}

// create implements POST. With listing configs bound the method reads an
// existing JSON resource instead; without them an existing file is a
// conflict and a missing one is created from the payload.
func (e *Engine) create(req *rest.Request, res *rest.ResponseWriter, opts *Options, lookup string) error {
	if len(req.Files) > 1 {
		return rest.BadRequest("POST request cannot have more than one file")
	}
	if req.HasBody() && len(req.Files) == 1 {
		return rest.BadRequest("POST request cannot have both a body and a file")
	}

	ref, ok, err := e.resolver.Resolve(lookup)
	if err != nil {
		return rest.Internal(err)
	}
	hasConfigs := opts.Pagination != nil || opts.Filters != nil

	if ok {
		if !ref.IsJSON() {
			return rest.BadRequest("POST request for not json file is not allowed. File at %s already exists", lookup)
		}
		if hasConfigs {
			return e.respondRead(req, res, opts, ref, true)
		}
		return rest.ClientError(http.StatusConflict, "File at %s already exists", lookup)
	}

	if !req.HasBody() && len(req.Files) == 0 {
		return rest.BadRequest("No data provided")
	}
	if hasConfigs {
		return rest.BadRequest("No data to filter or to paginate")
	}
	return e.writeResource(req, res, lookup, nil, http.StatusCreated)
}

// replace implements PUT: write the payload, 201 when the file is new and
// 200 when it replaced an existing one.
func (e *Engine) replace(req *rest.Request, res *rest.ResponseWriter, lookup string) error {
	if len(req.Files) > 1 {
		return rest.BadRequest("PUT request cannot have more than one file")
	}
	if !req.HasBody() && len(req.Files) == 0 {
		return rest.BadRequest("No data provided")
	}

	ref, ok, err := e.resolver.Resolve(lookup)
	if err != nil {
		return rest.Internal(err)
	}
	status := http.StatusCreated
	if ok {
		status = http.StatusOK
	} else {
		ref = nil
	}
	return e.writeResource(req, res, lookup, ref, status)
}

func (e *Engine) patch(req *rest.Request, res *rest.ResponseWriter, opts *Options, lookup string) error {
	ct := mediaType(req.ContentType())
	switch ct {
	case mimetype.JSON, "application/merge-patch+json", "application/json-patch+json":
	default:
		return rest.ClientError(http.StatusUnsupportedMediaType,
			"Content type %s is not supported for PATCH", ct)
	}

	ref, ok, err := e.resolver.Resolve(lookup)
	if err != nil {
		return rest.Internal(err)
	}
	if !ok {
		return missError(opts, lookup)
	}
	if !ref.IsJSON() {
		return rest.BadRequest("PATCH request for not json file is not allowed")
	}

	raw, err := os.ReadFile(ref.Path)
	if err != nil {
		return rest.Internal(err)
	}

	var patched []byte
	if ct == "application/json-patch+json" {
		patched, err = jsonpatch.Operations(raw, req.RawBody)
	} else {
		patched, err = jsonpatch.Merge(raw, req.RawBody)
	}
	if err != nil {
		return patchError(err)
	}

	if err := writeJSONBytes(ref.Path, patched); err != nil {
		return rest.Internal(err)
	}
	logger.DebugCtx(req.Raw.Context(), "patched file", logger.KeyFile, ref.Path)
	return res.WriteRaw(http.StatusOK, mimetype.JSON, patched)
}

// remove implements DELETE. Without listing directives (or on non-JSON
// files) the whole file goes; with directives on a JSON resource the
// matching elements are removed and the file is rewritten, or deleted when
// nothing remains.
func (e *Engine) remove(req *rest.Request, res *rest.ResponseWriter, opts *Options, lookup string) error {
	if req.HasBody() {
		return rest.BadRequest("DELETE request cannot have a body in %s", modeName(opts))
	}
	ref, ok, err := e.resolver.Resolve(lookup)
	if err != nil {
		return rest.Internal(err)
	}
	if !ok {
		return missError(opts, lookup)
	}
	preds, page, err := extract(req, opts)
	if err != nil {
		return err
	}

	if (len(preds) == 0 && page == nil) || !ref.IsJSON() {
		if err := os.Remove(ref.Path); err != nil {
			return rest.Internal(err)
		}
		logger.DebugCtx(req.Raw.Context(), "deleted file", logger.KeyFile, ref.Path)
		res.Header().Set(HeaderDeletedElements, "1")
		res.WriteNoContent(http.StatusNoContent)
		return nil
	}

	doc, _, err := readJSONFile(ref.Path)
	if err != nil {
		return rest.Internal(err)
	}
	arr, isArray := doc.([]any)
	if !isArray {
		// single documents filter as a one-element sequence
		arr = []any{doc}
	}

	matched := listing.MatchIndexes(arr, preds, page)
	if len(matched) == 0 {
		return rest.NotFound("Partial resource to delete not found")
	}

	remaining := removeIndexes(arr, matched)
	if len(remaining) == 0 {
		if err := os.Remove(ref.Path); err != nil {
			return rest.Internal(err)
		}
		logger.DebugCtx(req.Raw.Context(), "deleted file", logger.KeyFile, ref.Path)
	} else {
		if err := writeJSONValue(ref.Path, remaining); err != nil {
			return rest.Internal(err)
		}
		logger.DebugCtx(req.Raw.Context(), "deleted elements", logger.KeyFile, ref.Path, "count", len(matched))
	}

	res.Header().Set(HeaderDeletedElements, strconv.Itoa(len(matched)))
	res.WriteNoContent(http.StatusNoContent)
	return nil
}

// writeResource writes the request payload to disk and echoes it back. When
// existing is non-nil the resolved file is overwritten in place; otherwise
// the target derives from the lookup path, with an extension appended from
// the payload when the path has none.
func (e *Engine) writeResource(req *rest.Request, res *rest.ResponseWriter, lookup string, existing *FileRef, status int) error {
	target := ""
	if existing != nil {
		target = existing.Path
	} else {
		withExt := lookup
		if path.Ext(path.Base(lookup)) == "" {
			withExt += payloadExtension(req)
		}
		target = e.resolver.DiskPath(withExt)
	}

	payload, pretty, err := payloadBytes(req)
	if err != nil {
		return rest.Internal(err)
	}

	if pretty {
		err = writeJSONBytes(target, payload)
	} else {
		err = writeFile(target, payload)
	}
	if err != nil {
		return rest.Internal(err)
	}
	logger.DebugCtx(req.Raw.Context(), "wrote file", logger.KeyFile, target, logger.KeyStatus, status)

	written, err := os.ReadFile(target)
	if err != nil {
		return rest.Internal(err)
	}
	return res.WriteRaw(status, mimetype.ByExtension(target), written)
}

// payloadBytes picks the bytes to persist and whether they should be
// re-indented as JSON. Raw client bytes are preferred for JSON bodies so the
// original key order survives the round trip.
func payloadBytes(req *rest.Request) ([]byte, bool, error) {
	if len(req.Files) == 1 {
		return req.Files[0].Content, false, nil
	}
	switch body := req.Body.(type) {
	case []byte:
		return body, false, nil
	case string:
		return []byte(body), false, nil
	default:
		if mimetype.IsJSONType(req.ContentType()) && len(req.RawBody) > 0 {
			return req.RawBody, true, nil
		}
		data, err := json.MarshalIndent(body, "", indentStep)
		if err != nil {
			return nil, false, err
		}
		return data, false, nil
	}
}

// payloadExtension picks an extension for a lookup path that has none: the
// request content type first, then the uploaded file's type or name, then a
// default by payload shape.
func payloadExtension(req *rest.Request) string {
	if ext := mimetype.ExtensionByType(req.ContentType()); ext != "" {
		return ext
	}
	if len(req.Files) == 1 {
		if ext := mimetype.ExtensionByType(req.Files[0].ContentType); ext != "" {
			return ext
		}
		if ext := path.Ext(req.Files[0].Filename); ext != "" {
			return ext
		}
		return ".bin"
	}
	switch req.Body.(type) {
	case []byte:
		return ".bin"
	case string:
		return ".txt"
	default:
		return ".json"
	}
}

// extract compiles the request's filter predicates and page directives from
// the configured sources. Violations surface as 400s.
func extract(req *rest.Request, opts *Options) ([]listing.Predicate, *listing.PageRequest, error) {
	var preds []listing.Predicate
	var page *listing.PageRequest

	if opts.Filters != nil {
		src := req.FieldSource(opts.Filters.Source, opts.Filters.Root)
		compiled, err := opts.Filters.Compile(src)
		if err != nil {
			return nil, nil, listingError(err)
		}
		preds = compiled
	}
	if opts.Pagination != nil {
		src := req.FieldSource(opts.Pagination.Source, opts.Pagination.Root)
		extracted, err := opts.Pagination.Extract(src)
		if err != nil {
			return nil, nil, listingError(err)
		}
		page = extracted
	}
	return preds, page, nil
}

func listingError(err error) error {
	msg := strings.TrimPrefix(err.Error(), listing.ErrBadRequest.Error()+": ")
	return rest.BadRequest("%s", msg)
}

func patchError(err error) error {
	var unsupported *jsonpatch.UnsupportedOpError
	if errors.As(err, &unsupported) {
		return rest.BadRequest("%s", unsupported.Error())
	}
	if errors.Is(err, jsonpatch.ErrMalformed) {
		return rest.BadRequest("PATCH body request malformed")
	}
	return rest.Internal(err)
}

func missError(opts *Options, lookup string) error {
	if opts.Delegated {
		return rest.NotFound(fmt.Sprintf("File at %s not found", lookup))
	}
	return rest.NoHandler()
}

func modeName(opts *Options) string {
	if opts.Delegated {
		return "REST File System API mode"
	}
	return "File System API mode"
}

// mediaType strips parameters from a Content-Type header value.
func mediaType(ct string) string {
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func removeIndexes(items []any, indexes []int) []any {
	drop := make(map[int]struct{}, len(indexes))
	for _, i := range indexes {
		drop[i] = struct{}{}
	}
	remaining := make([]any, 0, len(items)-len(indexes))
	for i, item := range items {
		if _, gone := drop[i]; gone {
			continue
		}
		remaining = append(remaining, item)
	}
	return remaining
}
