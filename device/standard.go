package device

import (
	"encoding/binary"

	"github.com/ardnew/picoreset/pkg"
)

// MaxDescriptorResponseSize is the maximum size for descriptor responses.
const MaxDescriptorResponseSize = 512

// StandardRequestHandler handles standard USB device requests.
type StandardRequestHandler struct {
	device *Device

	// Pre-allocated response buffer to avoid allocations on hot path.
	// The returned slice from HandleSetup references this buffer.
	responseBuf [MaxDescriptorResponseSize]byte
}

// NewStandardRequestHandler creates a new standard request handler.
func NewStandardRequestHandler(dev *Device) *StandardRequestHandler {
	return &StandardRequestHandler{device: dev}
}

// HandleSetup processes a standard SETUP request.
// Returns the response data (may be nil) and an error. Requests the handler
// does not recognize fail with [pkg.ErrInvalidRequest] so the stack can
// offer them to the class drivers.
func (h *StandardRequestHandler) HandleSetup(setup *SetupPacket) ([]byte, error) {
	if setup.Kind() != KindStandard {
		return nil, pkg.ErrInvalidRequest
	}

	switch setup.Recipient() {
	case RecipientDevice:
		return h.handleDeviceRequest(setup)
	case RecipientInterface:
		return h.handleInterfaceRequest(setup)
	case RecipientEndpoint:
		return h.handleEndpointRequest(setup)
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// handleDeviceRequest handles device-level standard requests.
func (h *StandardRequestHandler) handleDeviceRequest(setup *SetupPacket) ([]byte, error) {
	switch setup.Request {
	case RequestGetStatus:
		status := h.device.GetStatus()
		binary.LittleEndian.PutUint16(h.responseBuf[:2], uint16(status))
		return h.responseBuf[:2], nil
	case RequestClearFeature, RequestSetFeature:
		if setup.Value != FeatureDeviceRemoteWakeup {
			return nil, pkg.ErrNotSupported
		}
		h.device.EnableRemoteWakeup(setup.Request == RequestSetFeature)
		return nil, nil
	case RequestSetAddress:
		// The new address takes effect after the status stage; the stack
		// applies it once the transfer completes.
		if setup.Value > 0x7F {
			return nil, pkg.ErrInvalidRequest
		}
		return nil, nil
	case RequestGetDescriptor:
		return h.getDescriptor(setup)
	case RequestGetConfiguration:
		h.responseBuf[0] = h.device.Configuration()
		return h.responseBuf[:1], nil
	case RequestSetConfiguration:
		return nil, h.device.SetConfiguration(uint8(setup.Value & 0xFF))
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// getDescriptor handles GET_DESCRIPTOR request.
func (h *StandardRequestHandler) getDescriptor(setup *SetupPacket) ([]byte, error) {
	var n int

	switch setup.DescriptorType() {
	case DescriptorTypeDevice:
		n = h.device.Descriptor.MarshalTo(h.responseBuf[:])

	case DescriptorTypeConfiguration:
		if setup.DescriptorIndex() != 0 {
			return nil, pkg.ErrInvalidRequest
		}
		var err error
		n, err = h.device.ConfigurationDescriptorTo(h.responseBuf[:])
		if err != nil {
			return nil, err
		}

	case DescriptorTypeString:
		data := h.device.GetString(setup.DescriptorIndex())
		if data == nil {
			return nil, pkg.ErrInvalidRequest
		}
		n = copy(h.responseBuf[:], data)

	default:
		// Device qualifier, other-speed and BOS are for high-speed or
		// USB 3 capable devices; a full-speed device stalls them.
		return nil, pkg.ErrNotSupported
	}

	if n == 0 {
		return nil, pkg.ErrBufferTooSmall
	}
	if n > int(setup.Length) {
		n = int(setup.Length)
	}
	return h.responseBuf[:n], nil
}

// handleInterfaceRequest handles interface-level standard requests.
// Interfaces only exist while the device is configured.
func (h *StandardRequestHandler) handleInterfaceRequest(setup *SetupPacket) ([]byte, error) {
	if !h.device.IsConfigured() || setup.InterfaceNumber() >= h.device.numInterfaces {
		return nil, pkg.ErrInvalidRequest
	}

	switch setup.Request {
	case RequestGetStatus:
		h.responseBuf[0], h.responseBuf[1] = 0, 0
		return h.responseBuf[:2], nil
	case RequestGetInterface:
		h.responseBuf[0] = 0
		return h.responseBuf[:1], nil
	case RequestSetInterface:
		// Only alternate setting 0 exists.
		if setup.Value != 0 {
			return nil, pkg.ErrInvalidRequest
		}
		return nil, nil
	default:
		return nil, pkg.ErrInvalidRequest
	}
}

// handleEndpointRequest handles endpoint-level standard requests. Only the
// control endpoint exists.
func (h *StandardRequestHandler) handleEndpointRequest(setup *SetupPacket) ([]byte, error) {
	if addr := uint8(setup.Index & 0xFF); addr != 0x00 && addr != 0x80 {
		return nil, pkg.ErrInvalidRequest
	}

	switch setup.Request {
	case RequestGetStatus:
		h.responseBuf[0], h.responseBuf[1] = 0, 0
		return h.responseBuf[:2], nil
	case RequestClearFeature:
		if setup.Value != FeatureEndpointHalt {
			return nil, pkg.ErrInvalidRequest
		}
		return nil, nil
	default:
		return nil, pkg.ErrInvalidRequest
	}
}
