// gcndisasm disassembles an AMD GPU container binary into assembly text.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/radeontools/gcnasm"
)

func main() {
	var (
		outPath    string
		deviceName string
		floatLits  bool
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:   "gcndisasm [flags] FILE",
		Short: "Disassemble an AMD GPU container binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)

			var device gcnasm.Device
			if deviceName != "" {
				var ok bool
				if device, ok = gcnasm.DeviceByName(deviceName); !ok {
					return fmt.Errorf("unknown device %q", deviceName)
				}
			}
			binary, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := gcnasm.Disassemble(binary, gcnasm.DisasmConfig{
				Device:        device,
				FloatLiterals: floatLits,
			})
			if err != nil {
				return err
			}
			if outPath == "-" {
				_, err = os.Stdout.WriteString(text)
				return err
			}
			return os.WriteFile(outPath, []byte(text), 0o644)
		},
		SilenceUsage: true,
	}
	flags := cmd.Flags()
	flags.StringVarP(&outPath, "output", "o", "-", "output path ('-' for stdout)")
	flags.StringVarP(&deviceName, "device", "d", "", "GPU device assumed for raw code")
	flags.BoolVar(&floatLits, "float-literals", false, "comment float literal values")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (trace|debug|info|warn|error)")

	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
