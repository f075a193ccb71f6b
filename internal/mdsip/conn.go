// Package mdsip implements the thin-client wire protocol spoken by MDSplus
// data servers (mdsip). A Conn holds one TCP connection with a completed
// login handshake; expressions are shipped as text and replies come back as
// typed descriptors decoded into Result values.
package mdsip

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// defaultPort is the standard mdsip listener port.
	defaultPort = "8000"

	// headerSize is the fixed wire size of a message header.
	headerSize = 44

	// maxDims is the dimension slots carried in every header.
	maxDims = 7

	// clientTypeLE marks the client as little-endian IEEE on login; the
	// server byte-swaps replies to match.
	clientTypeLE = 2

	// maxMessage caps reply payloads at 256 MiB to bound allocation on a
	// corrupt or hostile length field.
	maxMessage = 256 << 20
)

// header is the fixed preamble of every mdsip message, in wire order.
type header struct {
	MsgLen        int32
	Status        int32
	Length        int16
	NArgs         uint8
	DescriptorIdx uint8
	MessageID     uint8
	DType         uint8
	ClientType    uint8
	NDims         uint8
	Dims          [maxDims]int32
}

// Conn is a live session with one mdsip server. Methods are not safe for
// concurrent use; callers serialize access (the connection pool does).
type Conn struct {
	addr  string
	sock  net.Conn
	msgID uint8
	log   zerolog.Logger
}

// Dial connects to an mdsip server and performs the login handshake. The
// address may omit the port, in which case the standard mdsip port is used.
// The login username is taken from the environment.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	hostport := addr
	if !strings.Contains(addr, ":") {
		hostport = net.JoinHostPort(addr, defaultPort)
	}

	var d net.Dialer
	sock, err := d.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", hostport, err)
	}

	c := &Conn{
		addr: addr,
		sock: sock,
		log:  zerolog.Ctx(ctx).With().Str("component", "mdsip").Str("server", addr).Logger(),
	}

	if err := c.login(); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("mdsip login to %s: %w", addr, err)
	}

	c.log.Debug().Msg("session established")
	return c, nil
}

// login sends the username message and waits for the server's accept reply.
func (c *Conn) login() error {
	user := os.Getenv("USER")
	if user == "" {
		user = "sigfetch"
	}

	if err := c.send(user, 0); err != nil {
		return err
	}

	hdr, _, err := c.recv()
	if err != nil {
		return err
	}
	if hdr.Status&1 == 0 {
		return fmt.Errorf("server refused login (status %#x)", hdr.Status)
	}
	return nil
}

// Addr returns the server address this connection was dialed with.
func (c *Conn) Addr() string {
	return c.addr
}

// OpenTree opens the named tree for the given shot on the server side.
func (c *Conn) OpenTree(tree string, shotNum int64) error {
	expr := "TreeOpen(" + quote(tree) + "," + strconv.FormatInt(shotNum, 10) + ")"
	res, err := c.Get(expr)
	if err != nil {
		return fmt.Errorf("opening tree %s shot %d on %s: %w", tree, shotNum, c.addr, err)
	}
	status, err := res.Int64()
	if err == nil && status&1 == 0 {
		return fmt.Errorf("opening tree %s shot %d on %s: status %#x", tree, shotNum, c.addr, status)
	}
	return nil
}

// CloseAllTrees closes every open tree on the server side. The server
// reports an error status when nothing is open.
func (c *Conn) CloseAllTrees() error {
	res, err := c.Get("TreeClose()")
	if err != nil {
		return err
	}
	status, err := res.Int64()
	if err == nil && status&1 == 0 {
		return fmt.Errorf("closing trees on %s: status %#x", c.addr, status)
	}
	return nil
}

// Get evaluates an expression server-side and returns the typed reply.
// Blocks until the server answers; cancellation is not supported mid-call.
func (c *Conn) Get(expr string) (*Result, error) {
	c.msgID++
	if err := c.send(expr, c.msgID); err != nil {
		return nil, fmt.Errorf("sending expression to %s: %w", c.addr, err)
	}

	hdr, body, err := c.recv()
	if err != nil {
		return nil, fmt.Errorf("reading reply from %s: %w", c.addr, err)
	}
	if hdr.Status&1 == 0 {
		return nil, fmt.Errorf("server %s: evaluation failed (status %#x)", c.addr, hdr.Status)
	}

	res := &Result{
		DType: DType(hdr.DType),
		Data:  body,
	}
	if hdr.NDims > 0 {
		res.Dims = make([]int32, hdr.NDims)
		copy(res.Dims, hdr.Dims[:hdr.NDims])
	}
	return res, nil
}

// Close shuts the TCP connection down.
func (c *Conn) Close() error {
	c.log.Debug().Msg("closing session")
	return c.sock.Close()
}

// send writes one CSTRING message carrying the expression text.
func (c *Conn) send(text string, id uint8) error {
	hdr := header{
		MsgLen:     int32(headerSize + len(text)),
		Length:     int16(len(text)),
		NArgs:      1,
		MessageID:  id,
		DType:      uint8(DTypeCString),
		ClientType: clientTypeLE,
	}

	buf := make([]byte, 0, headerSize+len(text))
	buf = appendHeader(buf, &hdr)
	buf = append(buf, text...)

	_, err := c.sock.Write(buf)
	return err
}

// recv reads one message off the wire.
func (c *Conn) recv() (*header, []byte, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(c.sock, raw); err != nil {
		return nil, nil, err
	}

	hdr, err := parseHeader(raw)
	if err != nil {
		return nil, nil, err
	}

	bodyLen := int(hdr.MsgLen) - headerSize
	if bodyLen < 0 || bodyLen > maxMessage {
		return nil, nil, fmt.Errorf("invalid message length %d", hdr.MsgLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(c.sock, body); err != nil {
		return nil, nil, err
	}
	return hdr, body, nil
}

// appendHeader serializes a header in little-endian wire order.
func appendHeader(buf []byte, h *header) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.MsgLen))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.Status))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Length))
	buf = append(buf, h.NArgs, h.DescriptorIdx, h.MessageID, h.DType, h.ClientType, h.NDims)
	for _, d := range h.Dims {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d))
	}
	return buf
}

// parseHeader decodes a wire header.
func parseHeader(raw []byte) (*header, error) {
	if len(raw) != headerSize {
		return nil, fmt.Errorf("header is %d bytes, want %d", len(raw), headerSize)
	}
	h := &header{
		MsgLen:        int32(binary.LittleEndian.Uint32(raw[0:])),
		Status:        int32(binary.LittleEndian.Uint32(raw[4:])),
		Length:        int16(binary.LittleEndian.Uint16(raw[8:])),
		NArgs:         raw[10],
		DescriptorIdx: raw[11],
		MessageID:     raw[12],
		DType:         raw[13],
		ClientType:    raw[14],
		NDims:         raw[15],
	}
	if h.NDims > maxDims {
		return nil, fmt.Errorf("header declares %d dims, max is %d", h.NDims, maxDims)
	}
	for i := 0; i < maxDims; i++ {
		h.Dims[i] = int32(binary.LittleEndian.Uint32(raw[16+4*i:]))
	}
	return h, nil
}

// quote wraps a string literal for the server's expression language.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
