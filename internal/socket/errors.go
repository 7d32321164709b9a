package socket

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/gorilla/websocket"

	nberrors "github.com/gezibash/netbridge/pkg/errors"
)

var (
	// ErrConnectionClosed is returned once when the close handshake
	// completes or the peer goes away.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrAlreadyClosed is returned by reads after ErrConnectionClosed has
	// been reported.
	ErrAlreadyClosed = errors.New("already closed")
	// ErrWouldBlock means no frame is queued right now.
	ErrWouldBlock = nberrors.ErrWouldBlock
)

// ErrorKind classifies terminal transport failures.
type ErrorKind int

const (
	KindIO ErrorKind = iota
	KindTLS
	KindProtocol
	KindCapacity
	KindUTF8
	KindURL
	KindHTTP
)

var kindPrefixes = [...]string{
	KindIO:       "IO error",
	KindTLS:      "TLS error",
	KindProtocol: "protocol error",
	KindCapacity: "capacity error",
	KindUTF8:     "Utf8 error",
	KindURL:      "url error",
	KindHTTP:     "http format error",
}

// TransportError is a terminal failure of the underlying connection.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", kindPrefixes[e.Kind], e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// classify maps an error from the websocket library onto the terminal
// taxonomy. Normal and going-away closes become ErrConnectionClosed.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseProtocolError, websocket.CloseUnsupportedData:
			return &TransportError{Kind: KindProtocol, Err: err}
		case websocket.CloseInvalidFramePayloadData:
			return &TransportError{Kind: KindUTF8, Err: err}
		case websocket.CloseMessageTooBig:
			return &TransportError{Kind: KindCapacity, Err: err}
		default:
			return ErrConnectionClosed
		}
	}

	var (
		recordErr tls.RecordHeaderError
		certErr   *tls.CertificateVerificationError
		unknownCA x509.UnknownAuthorityError
		urlErr    *url.Error
	)
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		return &TransportError{Kind: KindCapacity, Err: err}
	case errors.Is(err, websocket.ErrBadHandshake):
		return &TransportError{Kind: KindHTTP, Err: err}
	case errors.As(err, &recordErr), errors.As(err, &certErr), errors.As(err, &unknownCA):
		return &TransportError{Kind: KindTLS, Err: err}
	case errors.As(err, &urlErr):
		return &TransportError{Kind: KindURL, Err: err}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return &TransportError{Kind: KindIO, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransportError{Kind: KindIO, Err: err}
	}
	return &TransportError{Kind: KindProtocol, Err: err}
}
