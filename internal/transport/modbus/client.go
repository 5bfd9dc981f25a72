// internal/transport/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/caparoc/internal/fault"
)

// Client is a single Modbus TCP connection to one device.
// It serializes requests: the device lock registers are global state and
// the underlying handler is not safe for concurrent transactions.
type Client struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration

	// FrameLog receives raw frame dumps from the Modbus handler (optional).
	FrameLog *log.Logger
}

// FrameLogger adapts l for Config.FrameLog. Frame dumps are verbose, so it
// returns nil unless l has debug enabled.
func FrameLogger(l *slog.Logger) *log.Logger {
	if l == nil || !l.Enabled(context.Background(), slog.LevelDebug) {
		return nil
	}
	return slog.NewLogLogger(l.Handler(), slog.LevelDebug)
}

func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("transport modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID
	h.Logger = cfg.FrameLog

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("transport modbus: connect %s: %w", cfg.Endpoint, err)
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ---- transport.Conn ----

func (c *Client) ReadRegister(addr uint16) (uint16, error) {
	regs, err := c.ReadRegisters(addr, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

func (c *Client) ReadRegisters(addr, count uint16) ([]uint16, error) {
	if count == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadHoldingRegisters(addr, count)
	if err != nil {
		return nil, &fault.TransportError{Op: "read", Addr: addr, Err: err}
	}
	// payload = registers big-endian
	if len(raw)%2 != 0 {
		return nil, &fault.TransportError{Op: "read", Addr: addr, Err: errors.New("byte count not even")}
	}
	if len(raw) < 2*int(count) {
		return nil, &fault.TransportError{
			Op:   "read",
			Addr: addr,
			Err:  fmt.Errorf("short payload: got=%d bytes want=%d", len(raw), 2*int(count)),
		}
	}
	return unpackRegisters(raw[:2*int(count)]), nil
}

func (c *Client) WriteRegister(addr, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.client.WriteSingleRegister(addr, value); err != nil {
		return &fault.TransportError{Op: "write", Addr: addr, Err: err}
	}
	return nil
}

func (c *Client) WriteRegisters(addr uint16, values []uint16) error {
	if len(values) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	qty := uint16(len(values))
	payload := packRegisters(values)

	if _, err := c.client.WriteMultipleRegisters(addr, qty, payload); err != nil {
		return &fault.TransportError{Op: "write", Addr: addr, Err: err}
	}
	return nil
}

// ---- helpers (pure geometry) ----

// Modbus register memory order (BIG-ENDIAN)
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
