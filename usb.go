// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package goswjdap

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/google/gousb"
)

// Known debug probes speaking the frame protocol over a bulk pipe.
var (
	probeVids = []gousb.ID{0x0d28, 0x2e8a, 0x1366, 0x0483}
	probePids = []gousb.ID{0x0204, 0x000c, 0x0101, 0x374b}
)

var usb_ctx *gousb.Context = nil

func InitializeUSB() error {
	if usb_ctx == nil {
		usb_ctx = gousb.NewContext()
		usb_ctx.Debug(2)

		if usb_ctx != nil {
			log.Debug("Initialized libsusb...")
			return nil
		} else {
			return errors.New("Could not initialize libusb!")
		}
	} else {
		log.Warn("USB already initialized!")
		return nil
	}
}

func CloseUSB() {
	if usb_ctx != nil {
		usb_ctx.Close()
		usb_ctx = nil
	} else {
		log.Warn("Could not close uninitialized usb context")
	}
}

func usb_find_devices(vids []gousb.ID, pids []gousb.ID) ([]*gousb.Device, error) {
	devices, err := usb_ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if idExists(vids, desc.Vendor) && idExists(pids, desc.Product) {
			log.Infof("Found USB device [%04x:%04x] on bus %03d:%03d", uint16(desc.Vendor), uint16(desc.Product), desc.Bus, desc.Address)

			return true
		} else {
			return false
		}
	})

	if err == nil {
		log.Infof("Found %d matching devices based on vendor and product id list", len(devices))
		return devices, nil
	} else {
		log.Error("Got error during usb device scan", err)
		return nil, err
	}
}

func usb_write(endpoint *gousb.OutEndpoint, buffer []byte) (int, error) {
	b_written, err := endpoint.Write(buffer)

	if err != nil {
		return -1, err
	} else {
		log.Tracef("Wrote %d bytes to endpoint", b_written)
		return b_written, nil
	}
}

func usb_read(endpoint *gousb.InEndpoint, buffer []byte) (int, error) {
	b_read, err := endpoint.Read(buffer)

	if err != nil {
		return -1, err
	} else {
		log.Tracef("Read %d byte from in endpoint", b_read)
		return b_read, nil
	}
}

// UsbLink is a byte pipe to a probe over its bulk endpoints, ready for
// a FrameClient.
type UsbLink struct {
	dev     *gousb.Device
	intf    *gousb.Interface
	release func()
	in      *gousb.InEndpoint
	out     *gousb.OutEndpoint
}

// OpenUsbLink claims the first known probe on the bus. InitializeUSB
// must have been called before.
func OpenUsbLink() (*UsbLink, error) {
	if usb_ctx == nil {
		return nil, errors.New("usb context not initialized")
	}

	devices, err := usb_find_devices(probeVids, probePids)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, errors.New("no known debug probe found")
	}

	for _, spare := range devices[1:] {
		spare.Close()
	}

	dev := devices[0]
	dev.SetAutoDetach(true)

	intf, release, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("could not claim probe interface: %v", err)
	}

	link := &UsbLink{dev: dev, intf: intf, release: release}

	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}

		if ep.Direction == gousb.EndpointDirectionIn && link.in == nil {
			link.in, err = intf.InEndpoint(ep.Number)
		} else if ep.Direction == gousb.EndpointDirectionOut && link.out == nil {
			link.out, err = intf.OutEndpoint(ep.Number)
		}

		if err != nil {
			link.Close()
			return nil, err
		}
	}

	if link.in == nil || link.out == nil {
		link.Close()
		return nil, errors.New("probe exposes no bulk endpoint pair")
	}

	serialNo, _ := dev.SerialNumber()
	log.Infof("Opened probe link [%s]", serialNo)

	return link, nil
}

func (l *UsbLink) Read(buffer []byte) (int, error) {
	return usb_read(l.in, buffer)
}

func (l *UsbLink) Write(buffer []byte) (int, error) {
	return usb_write(l.out, buffer)
}

func (l *UsbLink) Close() error {
	if l.release != nil {
		l.release()
		l.release = nil
	}
	if l.dev != nil {
		err := l.dev.Close()
		l.dev = nil
		return err
	}

	return nil
}
