// Command cdrip reads audio CDs from a USB optical drive by talking SCSI
// to it directly over the bulk-only transport.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/rabidaudio/usbcdrip/audiocd"
	"github.com/rabidaudio/usbcdrip/bot"
	"github.com/rabidaudio/usbcdrip/config"
	"github.com/rabidaudio/usbcdrip/scsi"
	"github.com/rabidaudio/usbcdrip/usbdev"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

type options struct {
	configPath string
	vendorID   string
	productID  string
	verbose    bool

	cfg config.Config
	log *logrus.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cdrip:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&options{})
}

func newRootCommandWith(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "cdrip",
		Short:         "Rip audio CDs from a USB drive without a kernel driver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.vendorID, "vendor-id", "", "USB vendor ID in hex, auto-detect if unset")
	flags.StringVar(&opts.productID, "product-id", "", "USB product ID in hex")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every SCSI command")

	root.AddCommand(newInfoCommand(opts), newTOCCommand(opts), newRipCommand(opts))
	return root
}

// load reads the configuration and applies the global flags over it.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("vendor-id") {
		cfg.VendorID = o.vendorID
	}
	if cmd.Flags().Changed("product-id") {
		cfg.ProductID = o.productID
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	lvl, _ := cfg.Level()
	o.log = logrus.New()
	o.log.SetOutput(os.Stderr)
	o.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	o.log.SetLevel(lvl)
	return nil
}

// openDrive claims the USB device and wraps it in a SCSI drive. The
// returned device must be closed.
func (o *options) openDrive() (*scsi.Drive, *usbdev.Device, error) {
	vid, pid, err := o.cfg.DeviceIDs()
	if err != nil {
		return nil, nil, err
	}
	dev, err := usbdev.Open(vid, pid, o.log)
	if err != nil {
		return nil, nil, err
	}
	out, in := dev.Endpoints()
	drive := &scsi.Drive{
		Transport:      bot.NewTransport(out, in, o.log),
		CommandTimeout: o.cfg.CommandTimeout,
		TOCTimeout:     o.cfg.TOCTimeout,
		ReadTimeout:    o.cfg.ReadTimeout,
	}
	return drive, dev, nil
}

// readTOC checks a disc is loaded and reads its table of contents.
func readTOC(ctx context.Context, drive *scsi.Drive) (*audiocd.TOC, error) {
	if err := drive.TestUnitReady(ctx); err != nil {
		var cerr *scsi.CommandError
		if errors.As(err, &cerr) && cerr.Status != bot.StatusTransportFailure {
			return nil, audiocd.ErrNoMediumPresent
		}
		return nil, err
	}
	return drive.ReadTOC(ctx)
}

func newInfoCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Identify the drive and report whether a disc is loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drive, dev, err := opts.openDrive()
			if err != nil {
				return err
			}
			defer dev.Close()

			ctx := cmd.Context()
			info, err := drive.Inquiry(ctx)
			if err != nil {
				return err
			}
			kind := "CD/DVD"
			if !info.IsOptical() {
				kind = fmt.Sprintf("type %d (not optical)", info.DeviceType)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Drive:  %s (%s)\n", dev.Name, dev.ID)
			fmt.Fprintf(out, "Device: %s %s (rev %s)\n", info.Vendor, info.Product, info.Revision)
			fmt.Fprintf(out, "Type:   %s\n", kind)

			ready := "yes"
			if err := drive.TestUnitReady(ctx); err != nil {
				ready = "no"
				opts.log.WithError(err).Debug("TEST UNIT READY")
			}
			fmt.Fprintf(out, "Ready:  %s\n", ready)
			return nil
		},
	}
}

func newTOCCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "toc",
		Short: "Print the disc's table of contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drive, dev, err := opts.openDrive()
			if err != nil {
				return err
			}
			defer dev.Close()

			toc, err := readTOC(cmd.Context(), drive)
			if err != nil {
				return err
			}
			if asJSON {
				raw, err := toc.MarshalJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			}
			printTOC(cmd.OutOrStdout(), toc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
