package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	Long: `List every audio endpoint the host reports. A device with both inputs
and outputs is listed once per direction. The default input is marked
with '*'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		devices, err := p.reg.ListDevices()
		if err != nil {
			return err
		}
		def, defErr := p.reg.DefaultInputDevice()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tDIRECTION\tCHANNELS\tNAME")
		for _, d := range devices {
			mark := ""
			if defErr == nil && d == def {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", mark, d.ID, d.Direction, d.MaxChannels, d.Name)
		}
		return w.Flush()
	},
}
