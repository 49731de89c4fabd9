package device

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ardnew/picoreset/pkg"
)

// configuredDevice returns a device in the Configured state.
func configuredDevice(t *testing.T) *Device {
	t.Helper()
	dev, _ := buildTestDevice(t)
	if err := dev.SetAddress(5); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetConfiguration(ConfigurationValue); err != nil {
		t.Fatal(err)
	}
	return dev
}

func TestHandleSetup_Device(t *testing.T) {
	tests := []struct {
		name  string
		setup SetupPacket
		want  []byte
	}{
		{"GET_STATUS", SetupPacket{RequestType: 0x80, Request: RequestGetStatus, Length: 2}, []byte{0, 0}},
		{"GET_CONFIGURATION", SetupPacket{RequestType: 0x80, Request: RequestGetConfiguration, Length: 1}, []byte{1}},
		{"GET_DESCRIPTOR language", SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: 0x0300, Length: 255}, []byte{4, 3, 0x09, 0x04}},
		{"GET_DESCRIPTOR device truncated", SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: 0x0100, Length: 8}, []byte{18, 1, 0x00, 0x02, 0, 0, 0, 64}},
		{"GET_DESCRIPTOR configuration header", SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: 0x0200, Length: 4}, []byte{9, 2, 27, 0}},
		{"SET_FEATURE remote wakeup", SetupPacket{RequestType: 0x00, Request: RequestSetFeature, Value: FeatureDeviceRemoteWakeup}, nil},
		{"SET_ADDRESS", SetupPacket{RequestType: 0x00, Request: RequestSetAddress, Value: 0x7F}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStandardRequestHandler(configuredDevice(t))
			got, err := h.HandleSetup(&tt.setup)
			if err != nil {
				t.Fatalf("HandleSetup() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("HandleSetup() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestHandleSetup_SetAddressDeferred(t *testing.T) {
	dev := configuredDevice(t)
	h := NewStandardRequestHandler(dev)

	// The handler only validates; the stack applies the address later.
	var setup SetupPacket
	GetSetAddressSetup(&setup, 42)
	if _, err := h.HandleSetup(&setup); err != nil {
		t.Fatalf("HandleSetup() error = %v", err)
	}
	if dev.Address() != 5 {
		t.Errorf("Address() = %d, want 5", dev.Address())
	}
}

func TestHandleSetup_RemoteWakeup(t *testing.T) {
	dev := configuredDevice(t)
	h := NewStandardRequestHandler(dev)

	enable := SetupPacket{RequestType: 0x00, Request: RequestSetFeature, Value: FeatureDeviceRemoteWakeup}
	disable := SetupPacket{RequestType: 0x00, Request: RequestClearFeature, Value: FeatureDeviceRemoteWakeup}

	if _, err := h.HandleSetup(&enable); err != nil {
		t.Fatal(err)
	}
	if dev.GetStatus()&DeviceStatusRemoteWakeup == 0 {
		t.Error("remote wakeup not enabled")
	}
	if _, err := h.HandleSetup(&disable); err != nil {
		t.Fatal(err)
	}
	if dev.GetStatus()&DeviceStatusRemoteWakeup != 0 {
		t.Error("remote wakeup not cleared")
	}
}

func TestHandleSetup_SetConfiguration(t *testing.T) {
	dev := configuredDevice(t)
	h := NewStandardRequestHandler(dev)

	var setup SetupPacket
	GetSetConfigurationSetup(&setup, 0)
	if _, err := h.HandleSetup(&setup); err != nil {
		t.Fatal(err)
	}
	if dev.State() != StateAddress {
		t.Errorf("State() = %v, want Address", dev.State())
	}

	GetSetConfigurationSetup(&setup, 7)
	if _, err := h.HandleSetup(&setup); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("SET_CONFIGURATION(7) error = %v, want ErrInvalidRequest", err)
	}
}

func TestHandleSetup_Interface(t *testing.T) {
	tests := []struct {
		setup SetupPacket
		want  []byte
		err   error
	}{
		{SetupPacket{RequestType: 0x81, Request: RequestGetStatus, Index: 1, Length: 2}, []byte{0, 0}, nil},
		{SetupPacket{RequestType: 0x81, Request: RequestGetInterface, Index: 0, Length: 1}, []byte{0}, nil},
		{SetupPacket{RequestType: 0x01, Request: RequestSetInterface, Index: 0, Value: 0}, nil, nil},
		{SetupPacket{RequestType: 0x01, Request: RequestSetInterface, Index: 0, Value: 1}, nil, pkg.ErrInvalidRequest},
		{SetupPacket{RequestType: 0x81, Request: RequestGetStatus, Index: 2, Length: 2}, nil, pkg.ErrInvalidRequest},
		{SetupPacket{RequestType: 0x81, Request: RequestGetDescriptor, Index: 0, Length: 9}, nil, pkg.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.setup.String(), func(t *testing.T) {
			h := NewStandardRequestHandler(configuredDevice(t))
			got, err := h.HandleSetup(&tt.setup)
			if !errors.Is(err, tt.err) {
				t.Fatalf("HandleSetup() error = %v, want %v", err, tt.err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("HandleSetup() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestHandleSetup_InterfaceUnconfigured(t *testing.T) {
	dev, _ := buildTestDevice(t)
	h := NewStandardRequestHandler(dev)

	setup := SetupPacket{RequestType: 0x81, Request: RequestGetStatus, Index: 0, Length: 2}
	if _, err := h.HandleSetup(&setup); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("HandleSetup() error = %v, want ErrInvalidRequest", err)
	}
}

func TestHandleSetup_Endpoint(t *testing.T) {
	h := NewStandardRequestHandler(configuredDevice(t))

	for _, index := range []uint16{0x00, 0x80} {
		setup := SetupPacket{RequestType: 0x82, Request: RequestGetStatus, Index: index, Length: 2}
		if got, err := h.HandleSetup(&setup); err != nil || !bytes.Equal(got, []byte{0, 0}) {
			t.Errorf("GET_STATUS(ep 0x%02X) = % X, %v", index, got, err)
		}
	}

	clearHalt := SetupPacket{RequestType: 0x02, Request: RequestClearFeature, Value: FeatureEndpointHalt}
	if _, err := h.HandleSetup(&clearHalt); err != nil {
		t.Errorf("CLEAR_FEATURE(halt) error = %v", err)
	}

	other := SetupPacket{RequestType: 0x82, Request: RequestGetStatus, Index: 0x81, Length: 2}
	if _, err := h.HandleSetup(&other); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("GET_STATUS(ep 0x81) error = %v, want ErrInvalidRequest", err)
	}
}

func TestHandleSetup_Unsupported(t *testing.T) {
	tests := []struct {
		setup SetupPacket
		want  error
	}{
		{SetupPacket{RequestType: 0x21, Request: 0x01}, pkg.ErrInvalidRequest},                                           // class
		{SetupPacket{RequestType: 0xC0, Request: RequestGetStatus}, pkg.ErrInvalidRequest},                               // vendor
		{SetupPacket{RequestType: 0x83, Request: RequestGetStatus}, pkg.ErrInvalidRequest},                               // other recipient
		{SetupPacket{RequestType: 0x00, Request: RequestSynchFrame}, pkg.ErrInvalidRequest},                              // unknown
		{SetupPacket{RequestType: 0x00, Request: RequestSetAddress, Value: 0x80}, pkg.ErrInvalidRequest},                 // address range
		{SetupPacket{RequestType: 0x00, Request: RequestSetFeature, Value: FeatureTestMode}, pkg.ErrNotSupported},        // test mode
		{SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: 0x0600, Length: 10}, pkg.ErrNotSupported},  // qualifier
		{SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: 0x0F00, Length: 5}, pkg.ErrNotSupported},   // BOS
		{SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: 0x0201, Length: 9}, pkg.ErrInvalidRequest}, // config index
		{SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: 0x0305, Length: 9}, pkg.ErrInvalidRequest}, // string index
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%02X-%02X-%04X", tt.setup.RequestType, tt.setup.Request, tt.setup.Value), func(t *testing.T) {
			h := NewStandardRequestHandler(configuredDevice(t))
			if _, err := h.HandleSetup(&tt.setup); !errors.Is(err, tt.want) {
				t.Errorf("HandleSetup() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func BenchmarkHandleGetDescriptor(b *testing.B) {
	alloc := NewBusAllocator(nil)
	dev, _ := NewDeviceBuilder(alloc, 0x2E8A, 0x000A).Strings("Raspberry Pi", "Pico", "").Build()
	h := NewStandardRequestHandler(dev)

	var setup SetupPacket
	GetDescriptorSetup(&setup, DescriptorTypeConfiguration, 0, 255)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.HandleSetup(&setup)
	}
}
