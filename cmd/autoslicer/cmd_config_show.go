/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Output current config",
	Long: `
Is something not working for you?  Have a look whether your config is as you expect.
`,
	Run: func(cmd *cobra.Command, args []string) {
		// Note, you can only talk about persistent flags here.  Command-specific ones won't be
		// visible.
		fmt.Printf("Dump current config state:\n\n")

		fmt.Printf("  Config file: %s\n", Config)
		fmt.Printf("  Debug: %v\n", Debug)
		fmt.Println()
		fmt.Printf("  Parsed YAML:\n%#v\n", ParsedConfig)
		fmt.Println()
		fmt.Printf("  Slicer: %s\n", SlicerBin)
		fmt.Printf("  TweakerCmd: %v\n", TweakerCmd)
		fmt.Printf("  Profile: %s\n", ProfilePath)
		fmt.Printf("  Output: %s\n", OutputDir)
		fmt.Printf("  Workers: %d\n", Workers)
		fmt.Printf("  ExtraArgs: %v\n", ExtraArgs)
		fmt.Printf("  OctoPrintURL: %s\n", OctoPrintURL)
		fmt.Printf("  OctoPrintKeyCmd: %v\n", OctoPrintKeyCmd)
	},
}

func init() {
	configCmd.AddCommand(showCmd)
}
