package ws

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/devmock/devmock/internal/logger"
)

// Upgrade completes the WebSocket handshake on a hijacked connection and
// starts the session. initial carries bytes the client sent past the
// request head; they are fed to the frame parser before the socket is
// read. On a handshake failure the error response is written to the socket
// and the socket closed.
func Upgrade(r *http.Request, netConn net.Conn, initial []byte, h *Handler, params map[string]string, m *Manager) (*Conn, error) {
	negotiation, herr := Negotiate(r, h)
	if herr != nil {
		WriteHandshakeError(netConn, herr.Status, herr.Message)
		_ = netConn.Close()
		return nil, herr
	}

	var deflate *Deflate
	if negotiation.Deflate != nil {
		deflate = NewDeflate(
			negotiation.Deflate.ServerNoContextTakeover,
			negotiation.Deflate.ClientNoContextTakeover,
		)
	}

	if err := writeUpgradeResponse(netConn, negotiation); err != nil {
		_ = netConn.Close()
		return nil, err
	}

	c := newConn(netConn, h, deflate, negotiation.Subprotocol, params, r)
	m.Add(c)
	c.start()
	logger.Debug("websocket connection established",
		logger.KeyConnID, c.ID(),
		logger.KeyPath, r.URL.Path,
		logger.KeyRemoteAddr, c.RemoteAddr().String())

	if h.OnConnect != nil {
		h.OnConnect(c)
	}

	go newSession(c, m).serve(initial)
	return c, nil
}

func writeUpgradeResponse(w io.Writer, n *Negotiation) error {
	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Accept: ")
	b.WriteString(n.Accept)
	b.WriteString("\r\n")
	if n.Subprotocol != "" {
		b.WriteString("Sec-WebSocket-Protocol: ")
		b.WriteString(n.Subprotocol)
		b.WriteString("\r\n")
	}
	if n.Deflate != nil {
		b.WriteString("Sec-WebSocket-Extensions: ")
		b.WriteString(n.Deflate.ResponseHeader())
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteHandshakeError writes a plain HTTP error response on a socket that
// never switched protocols.
func WriteHandshakeError(w io.Writer, status int, message string) {
	fmt.Fprintf(w,
		"HTTP/1.1 %d %s\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, http.StatusText(status), len(message), message)
}
