// gcnasm assembles GCN assembly source into an AMD GPU container binary.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/radeontools/gcnasm"
)

type logSink struct{}

func (logSink) Report(d gcnasm.Diagnostic) {
	entry := logrus.WithFields(logrus.Fields{
		"path": d.Path,
		"line": d.Line,
		"col":  d.Col,
		"kind": d.Category.String(),
	})
	if d.Severity == gcnasm.SevWarning {
		entry.Warn(d.Message)
	} else {
		entry.Error(d.Message)
	}
}

func main() {
	var (
		outPath    string
		deviceName string
		formatName string
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:   "gcnasm [flags] FILE",
		Short: "Assemble GCN assembly into an AMD GPU container binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)

			device, ok := gcnasm.DeviceByName(deviceName)
			if !ok {
				return fmt.Errorf("unknown device %q", deviceName)
			}
			format, err := parseFormat(formatName)
			if err != nil {
				return err
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			binary, err := gcnasm.Assemble(source, gcnasm.Config{
				Path:   args[0],
				Device: device,
				Format: format,
				Sink:   logSink{},
			})
			if err != nil {
				return err
			}
			return os.WriteFile(outPath, binary, 0o644)
		},
		SilenceUsage: true,
	}
	flags := cmd.Flags()
	flags.StringVarP(&outPath, "output", "o", "a.out", "output binary path")
	flags.StringVarP(&deviceName, "device", "d", "CapeVerde", "GPU device type")
	flags.StringVarP(&formatName, "format", "f", "rocm", "output format (rocm|gallium|rawcode)")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (trace|debug|info|warn|error)")

	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func parseFormat(name string) (gcnasm.Format, error) {
	switch strings.ToLower(name) {
	case "rocm":
		return gcnasm.FormatROCm, nil
	case "gallium":
		return gcnasm.FormatGallium, nil
	case "rawcode", "raw":
		return gcnasm.FormatRawCode, nil
	case "amd":
		return gcnasm.FormatAmd, nil
	case "amdcl2":
		return gcnasm.FormatAmdCL2, nil
	}
	return 0, fmt.Errorf("unknown output format %q", name)
}
