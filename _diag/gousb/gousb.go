// Package gousb: TEMPORARY type-check scaffold for build validation in a
// sandbox without cgo/libusb. Mirrors the google/gousb API subset used by
// this module, signatures copied from gousb v2.1.0. Never shipped: the
// replace directive pointing here is removed after validation.
package gousb

type (
	ID                uint16
	Class             uint8
	Protocol          uint8
	Speed             int
	BCD               uint16
	EndpointAddress   uint8
	EndpointDirection bool
	TransferType      uint8
	IsoSyncType       uint8
	UsageType         uint8
)

const (
	EndpointDirectionIn  EndpointDirection = true
	EndpointDirectionOut EndpointDirection = false

	TransferTypeBulk TransferType = 2
)

type DeviceDesc struct {
	Bus                  int
	Address              int
	Speed                Speed
	Port                 int
	Spec                 BCD
	Device               BCD
	Vendor               ID
	Product              ID
	Class                Class
	SubClass             Class
	Protocol             Protocol
	MaxControlPacketSize int
}

type Context struct{}

func NewContext() *Context { panic("gousb diagnostic stub") }

func (c *Context) Debug(level int) { panic("gousb diagnostic stub") }

func (c *Context) Close() error { panic("gousb diagnostic stub") }

func (c *Context) OpenDevices(opener func(desc *DeviceDesc) bool) ([]*Device, error) {
	panic("gousb diagnostic stub")
}

type Device struct {
	Desc *DeviceDesc
}

func (d *Device) Close() error { panic("gousb diagnostic stub") }

func (d *Device) SetAutoDetach(autodetach bool) error { panic("gousb diagnostic stub") }

func (d *Device) DefaultInterface() (intf *Interface, done func(), err error) {
	panic("gousb diagnostic stub")
}

func (d *Device) SerialNumber() (string, error) { panic("gousb diagnostic stub") }

type InterfaceSetting struct {
	Number    int
	Alternate int
	Class     Class
	SubClass  Class
	Protocol  Protocol
	Endpoints map[EndpointAddress]EndpointDesc
}

type Interface struct {
	Setting InterfaceSetting
}

func (i *Interface) Close() { panic("gousb diagnostic stub") }

func (i *Interface) InEndpoint(epNum int) (*InEndpoint, error) { panic("gousb diagnostic stub") }

func (i *Interface) OutEndpoint(epNum int) (*OutEndpoint, error) { panic("gousb diagnostic stub") }

type EndpointDesc struct {
	Address       EndpointAddress
	Number        int
	Direction     EndpointDirection
	MaxPacketSize int
	TransferType  TransferType
	IsoSyncType   IsoSyncType
	UsageType     UsageType
}

type InEndpoint struct {
	Desc EndpointDesc
}

func (e *InEndpoint) Read(buf []byte) (int, error) { panic("gousb diagnostic stub") }

type OutEndpoint struct {
	Desc EndpointDesc
}

func (e *OutEndpoint) Write(buf []byte) (int, error) { panic("gousb diagnostic stub") }
