package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// JSONRPCVersion is the JSON-RPC version used by LSP.
const JSONRPCVersion = "2.0"

// Message is a decoded JSON-RPC message. Requests carry ID and Method;
// notifications carry Method only; responses carry ID with Result or Error.
// IDs stay raw because clients may use numbers or strings and the server
// only ever echoes them back.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// IsRequest reports whether the message expects a response.
func (m *Message) IsRequest() bool { return len(m.ID) > 0 && m.Method != "" }

// IsNotification reports whether the message is a fire-and-forget call.
func (m *Message) IsNotification() bool { return len(m.ID) == 0 && m.Method != "" }

// ResponseError is the error member of a failed response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Conn frames JSON-RPC messages over a duplex byte stream using the LSP base
// protocol (Content-Length headers). Reads are driven by a single loop;
// writes are serialized so handlers and notifications can interleave.
type Conn struct {
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex
}

// NewConn creates a connection reading client messages from r and writing
// server messages to w.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{reader: bufio.NewReader(r), writer: w}
}

// Read blocks until the next complete message arrives. It returns io.EOF
// when the client closes the channel.
func (c *Conn) Read() (*Message, error) {
	length := -1
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("malformed header %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			length, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("malformed Content-Length: %w", err)
			}
		}
	}
	if length < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.reader, payload); err != nil {
		return nil, fmt.Errorf("read message body: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

func (c *Conn) write(msg Message) error {
	msg.JSONRPC = JSONRPCVersion
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := fmt.Fprintf(c.writer, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := c.writer.Write(payload); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// Reply sends a successful response. A nil result encodes as JSON null,
// which the protocol requires for empty results.
func (c *Conn) Reply(id json.RawMessage, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return c.write(Message{ID: id, Result: raw})
}

// ReplyError sends an error response.
func (c *Conn) ReplyError(id json.RawMessage, code int, message string) error {
	return c.write(Message{ID: id, Error: &ResponseError{Code: code, Message: message}})
}

// Notify sends a notification to the client.
func (c *Conn) Notify(method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	return c.write(Message{Method: method, Params: raw})
}

// Request sends a server-to-client request. The session does not wait for
// or correlate the response; the client's answer is drained by the read
// loop.
func (c *Conn) Request(id int64, method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	rawID, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode id: %w", err)
	}
	return c.write(Message{ID: rawID, Method: method, Params: raw})
}
