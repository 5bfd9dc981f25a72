// internal/sim/server.go
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/simonvetter/modbus"
)

// Server exposes a Device over Modbus TCP.
// Holding and input registers both map onto the device register space.
type Server struct {
	srv *modbus.ModbusServer
	log *slog.Logger
}

type ServerConfig struct {
	Listen     string // host:port
	UnitID     uint8  // 0 accepts every unit id
	Timeout    time.Duration
	MaxClients uint
	Logger     *slog.Logger
}

// NewServer builds (but does not start) a Modbus TCP server for dev.
func NewServer(cfg ServerConfig, dev *Device) (*Server, error) {
	if cfg.Listen == "" {
		return nil, errors.New("sim: listen address required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{dev: dev, unitID: cfg.UnitID, log: logger}

	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + cfg.Listen,
		Timeout:    cfg.Timeout,
		MaxClients: cfg.MaxClients,
	}, h)
	if err != nil {
		return nil, fmt.Errorf("sim: new server: %w", err)
	}

	return &Server{srv: srv, log: logger}, nil
}

func (s *Server) Start() error {
	if err := s.srv.Start(); err != nil {
		return fmt.Errorf("sim: start: %w", err)
	}
	return nil
}

func (s *Server) Stop() error {
	return s.srv.Stop()
}

// ---- modbus.RequestHandler ----

type handler struct {
	dev    *Device
	unitID uint8
	log    *slog.Logger
}

func (h *handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if h.unitID != 0 && req.UnitId != h.unitID {
		return nil, modbus.ErrIllegalFunction
	}

	if req.IsWrite {
		if err := h.dev.WriteRegisters(req.Addr, req.Args); err != nil {
			h.log.Debug("sim write rejected", "client", req.ClientAddr, "addr", req.Addr, "err", err)
			return nil, exception(err)
		}
		h.log.Debug("sim write", "client", req.ClientAddr, "addr", req.Addr, "values", req.Args)
		// the library echoes the request for write function codes
		return nil, nil
	}

	regs, err := h.dev.ReadRegisters(req.Addr, req.Quantity)
	if err != nil {
		h.log.Debug("sim read rejected", "client", req.ClientAddr, "addr", req.Addr, "err", err)
		return nil, exception(err)
	}
	return regs, nil
}

func (h *handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	if h.unitID != 0 && req.UnitId != h.unitID {
		return nil, modbus.ErrIllegalFunction
	}

	regs, err := h.dev.ReadRegisters(req.Addr, req.Quantity)
	if err != nil {
		return nil, exception(err)
	}
	return regs, nil
}

// exception maps device errors onto Modbus exception codes.
func exception(err error) error {
	switch {
	case errors.Is(err, ErrIllegalAddress), errors.Is(err, ErrWriteOnly), errors.Is(err, ErrReadOnly):
		return modbus.ErrIllegalDataAddress
	case errors.Is(err, ErrLocked):
		return modbus.ErrIllegalDataValue
	default:
		return modbus.ErrServerDeviceFailure
	}
}
