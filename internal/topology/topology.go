// internal/topology/topology.go
package topology

import (
	"sync"

	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/register"
	"github.com/tamzrod/caparoc/internal/transport"
)

// Provider reports the device chain as currently connected.
type Provider interface {
	ModuleCount() (int, error)
	ChannelCount(module int) (int, error)
}

// Live queries the device on every call. No caching.
type Live struct {
	conn transport.Conn
}

func NewLive(conn transport.Conn) *Live {
	return &Live{conn: conn}
}

func (l *Live) ModuleCount() (int, error) {
	v, err := register.ReadUint16(l.conn, register.ConnectedModules)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// ChannelCount reads the channel count of module. Modules outside the
// device's hard limit are rejected without touching the wire.
func (l *Live) ChannelCount(module int) (int, error) {
	if module < 1 || module > register.MaxModules {
		return 0, &fault.ValidationError{Field: "module", Value: module, Min: 1, Max: register.MaxModules}
	}
	v, err := register.ReadUint16(l.conn, register.ChannelCount(module))
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Cache memoizes another Provider until Invalidate is called.
// Opt-in: callers using it accept that hot-swapped modules go unnoticed.
type Cache struct {
	src Provider

	mu       sync.Mutex
	modules  *int
	channels map[int]int
}

func NewCache(src Provider) *Cache {
	return &Cache{src: src, channels: make(map[int]int)}
}

func (c *Cache) ModuleCount() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.modules != nil {
		return *c.modules, nil
	}
	n, err := c.src.ModuleCount()
	if err != nil {
		return 0, err
	}
	c.modules = &n
	return n, nil
}

func (c *Cache) ChannelCount(module int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.channels[module]; ok {
		return n, nil
	}
	n, err := c.src.ChannelCount(module)
	if err != nil {
		return 0, err
	}
	c.channels[module] = n
	return n, nil
}

// Invalidate drops all cached counts.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modules = nil
	c.channels = make(map[int]int)
}
