// Package usbdev finds a USB optical drive and claims its bulk-only mass
// storage interface, bypassing the kernel's block device driver.
package usbdev

import (
	"io"
	"sort"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/rabidaudio/usbcdrip/bot"
	"github.com/sirupsen/logrus"
)

var (
	ErrDeviceNotFound = errors.New("usbdev: no USB CD drive found")
	ErrNoInterface    = errors.New("usbdev: no suitable interface found")
	ErrNoEndpoints    = errors.New("usbdev: could not find bulk endpoints")
)

// Known is a drive that has been seen working.
type Known struct {
	Vendor  gousb.ID
	Product gousb.ID
	Name    string
}

// KnownDevices are tried in order when no ID is given.
var KnownDevices = []Known{
	{0x0e8d, 0x1887, "Hitachi-LG/MediaTek Slim Portable DVD Writer"},
	{0x152d, 0x2339, "JMicron USB CD/DVD"},
	{0x13fd, 0x0840, "Initio USB CD/DVD"},
	{0x1c6b, 0xa223, "Philips USB CD/DVD"},
}

// Lookup returns the known drive with the given IDs.
func Lookup(vid, pid gousb.ID) (Known, bool) {
	for _, k := range KnownDevices {
		if k.Vendor == vid && k.Product == pid {
			return k, true
		}
	}
	return Known{}, false
}

// Device is an opened drive with its bulk endpoints claimed.
type Device struct {
	Name string
	ID   string // vvvv:pppp

	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint
}

// Open finds and claims a drive. With both IDs zero it tries the known
// drives first and then any device exposing a mass storage interface.
// A nil logger discards all output.
func Open(vid, pid gousb.ID, logger logrus.FieldLogger) (*Device, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	log := logger.WithField("component", "usbdev")

	d := &Device{ctx: gousb.NewContext()}
	if err := d.find(vid, pid); err != nil {
		d.Close()
		return nil, err
	}
	log = log.WithFields(logrus.Fields{"device": d.ID, "name": d.Name})

	if err := d.dev.SetAutoDetach(true); err != nil {
		// not supported on every platform
		log.WithError(err).Debug("kernel driver auto-detach unavailable")
	}

	if err := d.claim(); err != nil {
		d.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"out": d.out.Desc.Address.String(),
		"in":  d.in.Desc.Address.String(),
	}).Info("drive opened")
	return d, nil
}

func (d *Device) find(vid, pid gousb.ID) error {
	if vid != 0 || pid != 0 {
		dev, err := d.ctx.OpenDeviceWithVIDPID(vid, pid)
		if err != nil {
			return errors.Wrap(err, "usbdev: open device")
		}
		if dev == nil {
			return ErrDeviceNotFound
		}
		d.dev = dev
		d.ID = vid.String() + ":" + pid.String()
		d.Name = d.ID
		if k, ok := Lookup(vid, pid); ok {
			d.Name = k.Name
		}
		return nil
	}

	for _, k := range KnownDevices {
		dev, err := d.ctx.OpenDeviceWithVIDPID(k.Vendor, k.Product)
		if err == nil && dev != nil {
			d.dev = dev
			d.Name = k.Name
			d.ID = k.Vendor.String() + ":" + k.Product.String()
			return nil
		}
	}

	devs, err := d.ctx.OpenDevices(IsMassStorage)
	if len(devs) == 0 {
		if err != nil {
			return errors.Wrap(err, "usbdev: enumerate devices")
		}
		return ErrDeviceNotFound
	}
	for _, extra := range devs[1:] {
		extra.Close()
	}
	d.dev = devs[0]
	d.ID = d.dev.Desc.Vendor.String() + ":" + d.dev.Desc.Product.String()
	d.Name = d.ID
	return nil
}

func (d *Device) claim() error {
	cfg, err := d.dev.Config(1)
	if err != nil {
		return errors.Wrap(err, "usbdev: get config")
	}
	d.cfg = cfg

	num, alt, ok := SelectInterface(cfg.Desc.Interfaces)
	if !ok {
		return ErrNoInterface
	}
	intf, err := cfg.Interface(num, alt)
	if err != nil {
		return errors.Wrapf(err, "usbdev: claim interface %d", num)
	}
	d.intf = intf

	inNum, outNum, ok := BulkEndpoints(intf.Setting)
	if !ok {
		return ErrNoEndpoints
	}
	if d.in, err = intf.InEndpoint(inNum); err != nil {
		return errors.Wrap(err, "usbdev: IN endpoint")
	}
	if d.out, err = intf.OutEndpoint(outNum); err != nil {
		return errors.Wrap(err, "usbdev: OUT endpoint")
	}
	return nil
}

// IsMassStorage reports whether any interface of the device is of the
// mass storage class.
func IsMassStorage(desc *gousb.DeviceDesc) bool {
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassMassStorage {
					return true
				}
			}
		}
	}
	return false
}

// SelectInterface picks the interface to claim: the first mass storage
// setting with bulk endpoints in both directions, otherwise the first
// setting of any class that has them, since some drives report a vendor
// specific class.
func SelectInterface(ifaces []gousb.InterfaceDesc) (num, alt int, ok bool) {
	for _, iface := range ifaces {
		for _, s := range iface.AltSettings {
			if s.Class != gousb.ClassMassStorage {
				continue
			}
			if _, _, bulk := BulkEndpoints(s); bulk {
				return iface.Number, s.Alternate, true
			}
		}
	}
	for _, iface := range ifaces {
		for _, s := range iface.AltSettings {
			if _, _, bulk := BulkEndpoints(s); bulk {
				return iface.Number, s.Alternate, true
			}
		}
	}
	return 0, 0, false
}

// BulkEndpoints returns the lowest-numbered bulk IN and OUT endpoints of
// a setting.
func BulkEndpoints(s gousb.InterfaceSetting) (in, out int, ok bool) {
	addrs := make([]int, 0, len(s.Endpoints))
	for addr := range s.Endpoints {
		addrs = append(addrs, int(addr))
	}
	sort.Ints(addrs)

	in, out = -1, -1
	for _, a := range addrs {
		ep := s.Endpoints[gousb.EndpointAddress(a)]
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn {
			if in < 0 {
				in = ep.Number
			}
		} else if out < 0 {
			out = ep.Number
		}
	}
	if in < 0 || out < 0 {
		return 0, 0, false
	}
	return in, out, true
}

var (
	_ bot.BulkOut = (*gousb.OutEndpoint)(nil)
	_ bot.BulkIn  = (*gousb.InEndpoint)(nil)
)

// Endpoints returns the claimed bulk pipes in the order bot.NewTransport
// takes them.
func (d *Device) Endpoints() (bot.BulkOut, bot.BulkIn) {
	return d.out, d.in
}

// Close releases the interface, configuration, device and context. It is
// safe to call on a partially opened device.
func (d *Device) Close() error {
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	var err error
	if d.cfg != nil {
		err = d.cfg.Close()
		d.cfg = nil
	}
	if d.dev != nil {
		if cerr := d.dev.Close(); err == nil {
			err = cerr
		}
		d.dev = nil
	}
	if d.ctx != nil {
		if cerr := d.ctx.Close(); err == nil {
			err = cerr
		}
		d.ctx = nil
	}
	return err
}
