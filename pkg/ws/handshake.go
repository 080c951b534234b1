package ws

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// acceptGUID is the fixed value concatenated to the client key before
// hashing (RFC 6455 section 4.2.2).
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// AcceptKey computes the Sec-WebSocket-Accept value:
// base64(SHA-1(key + GUID)).
func AcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(acceptGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// HandshakeError aborts an upgrade with an HTTP status before the
// connection switches protocols.
type HandshakeError struct {
	Status  int
	Message string
}

func (e *HandshakeError) Error() string {
	return e.Message
}

// DeflatePolicy is a handler's position on permessage-deflate.
type DeflatePolicy struct {
	// Enabled allows negotiation at all. A disabled policy ignores client
	// offers entirely.
	Enabled bool
	// Strict aborts the handshake when the client's offer cannot be
	// accepted (or the client made none).
	Strict bool
	// ServerNoContextTakeover resets the server compressor between
	// messages even when the client did not ask for it.
	ServerNoContextTakeover bool
	// ClientNoContextTakeover requires the client to reset its compressor
	// between messages.
	ClientNoContextTakeover bool
}

// DeflateParams is the effective permessage-deflate negotiation.
type DeflateParams struct {
	ServerNoContextTakeover bool
	ClientNoContextTakeover bool
	// ClientMaxWindowBits is echoed back when the client declared one;
	// zero means the default 15-bit window.
	ClientMaxWindowBits int
}

// ResponseHeader renders the Sec-WebSocket-Extensions value echoing the
// negotiation.
func (p *DeflateParams) ResponseHeader() string {
	parts := []string{"permessage-deflate"}
	if p.ServerNoContextTakeover {
		parts = append(parts, "server_no_context_takeover")
	}
	if p.ClientNoContextTakeover {
		parts = append(parts, "client_no_context_takeover")
	}
	if p.ClientMaxWindowBits != 0 {
		parts = append(parts, fmt.Sprintf("client_max_window_bits=%d", p.ClientMaxWindowBits))
	}
	return strings.Join(parts, "; ")
}

// Negotiation carries everything the 101 response needs.
type Negotiation struct {
	Accept      string
	Subprotocol string
	// Deflate is nil when permessage-deflate was not negotiated.
	Deflate *DeflateParams
}

// Negotiate validates an upgrade request against a handler and works out
// the accept key, subprotocol and extension parameters.
func Negotiate(r *http.Request, h *Handler) (*Negotiation, *HandshakeError) {
	if !headerContainsToken(r.Header, "Upgrade", "websocket") {
		return nil, &HandshakeError{http.StatusBadRequest, "Upgrade header must be websocket"}
	}
	key := r.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, &HandshakeError{http.StatusBadRequest, "Missing Sec-WebSocket-Key header"}
	}

	if h.Authenticate != nil {
		ok, err := h.Authenticate(r)
		if err != nil {
			return nil, &HandshakeError{http.StatusInternalServerError, err.Error()}
		}
		if !ok {
			return nil, &HandshakeError{http.StatusUnauthorized, "Unauthorized"}
		}
	}

	n := &Negotiation{
		Accept:      AcceptKey(key),
		Subprotocol: pickSubprotocol(r.Header, h.Subprotocols),
	}

	deflate, herr := negotiateDeflate(r.Header, h.Deflate)
	if herr != nil {
		return nil, herr
	}
	n.Deflate = deflate
	return n, nil
}

// pickSubprotocol returns the first protocol in client order that the
// handler supports, or "" when there is no intersection.
func pickSubprotocol(header http.Header, supported []string) string {
	if len(supported) == 0 {
		return ""
	}
	for _, value := range header.Values("Sec-WebSocket-Protocol") {
		for _, offered := range strings.Split(value, ",") {
			offered = strings.TrimSpace(offered)
			for _, s := range supported {
				if offered == s {
					return offered
				}
			}
		}
	}
	return ""
}

// negotiateDeflate inspects the client's permessage-deflate offers under
// the handler policy. Offers with invalid parameters are rejected
// individually; with a strict policy a failed negotiation aborts the
// handshake.
func negotiateDeflate(header http.Header, policy *DeflatePolicy) (*DeflateParams, *HandshakeError) {
	if policy == nil || !policy.Enabled {
		return nil, nil
	}

	for _, offer := range parseExtensions(header) {
		if offer.Name != "permessage-deflate" {
			continue
		}
		params, ok := acceptOffer(offer, policy)
		if ok {
			return params, nil
		}
	}

	if policy.Strict {
		return nil, &HandshakeError{http.StatusBadRequest, "permessage-deflate negotiation failed"}
	}
	return nil, nil
}

// acceptOffer validates one permessage-deflate offer. Unknown parameters
// and window bits outside [8,15] reject the offer.
func acceptOffer(offer extension, policy *DeflatePolicy) (*DeflateParams, bool) {
	params := &DeflateParams{
		ServerNoContextTakeover: policy.ServerNoContextTakeover,
		ClientNoContextTakeover: policy.ClientNoContextTakeover,
	}
	for _, p := range offer.Params {
		switch p.Key {
		case "server_no_context_takeover":
			params.ServerNoContextTakeover = true
		case "client_no_context_takeover":
			params.ClientNoContextTakeover = true
		case "server_max_window_bits":
			// the stdlib compressor always uses the full 15-bit window,
			// so a smaller server window cannot be honoured
			bits, err := strconv.Atoi(p.Value)
			if err != nil || bits != 15 {
				return nil, false
			}
		case "client_max_window_bits":
			if p.Value == "" {
				// a bare declaration; the default window applies
				continue
			}
			bits, err := strconv.Atoi(p.Value)
			if err != nil || bits < 8 || bits > 15 {
				return nil, false
			}
			params.ClientMaxWindowBits = bits
		default:
			return nil, false
		}
	}
	return params, true
}

// extension is one parsed Sec-WebSocket-Extensions offer.
type extension struct {
	Name   string
	Params []extensionParam
}

type extensionParam struct {
	Key   string
	Value string
}

// parseExtensions decodes every Sec-WebSocket-Extensions header. Offers
// are comma separated, their parameters semicolon separated; values may be
// quoted.
func parseExtensions(header http.Header) []extension {
	var offers []extension
	for _, value := range header.Values("Sec-WebSocket-Extensions") {
		for _, item := range strings.Split(value, ",") {
			parts := strings.Split(item, ";")
			name := strings.TrimSpace(parts[0])
			if name == "" {
				continue
			}
			offer := extension{Name: strings.ToLower(name)}
			for _, raw := range parts[1:] {
				key, val, _ := strings.Cut(raw, "=")
				offer.Params = append(offer.Params, extensionParam{
					Key:   strings.ToLower(strings.TrimSpace(key)),
					Value: strings.Trim(strings.TrimSpace(val), `"`),
				})
			}
			offers = append(offers, offer)
		}
	}
	return offers
}

// headerContainsToken reports whether a comma separated header contains
// token, case-insensitively.
func headerContainsToken(header http.Header, name, token string) bool {
	for _, value := range header.Values(name) {
		for _, part := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
