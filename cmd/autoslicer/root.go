/*
Copyright © 2024 vinja <vinja@fastmail.com>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	// Store the result of binding cobra flags
	Config       string
	ConfigActual string
	Debug        bool

	// Paths of the two external tools and the printer profile
	SlicerBin   string
	TweakerCmd  []string
	ProfilePath string

	OutputDir string
	Workers   int
	KeepTemp  bool
	ExtraArgs []string

	WatchDir       string
	RescanInterval string
	DeleteInput    bool

	OctoPrintURL    string
	OctoPrintKeyCmd []string

	ParsedConfig YamlConfig
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "autoslicer",
	Short: "Turn mesh files into ready-to-print G-code",
	Long: `
Point autoslicer at an STL or 3MF file and it does the boring prep for you: finds a decent
print orientation (via the external Tweaker-3 optimizer), drops the model onto the bed,
decides on supports and brim from the model's unprintability score, and runs the slicing
engine.  It can also babysit a drop folder, and push the finished G-code at OctoPrint.
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// You can bind cobra and viper in a few locations, but PersistentPreRunE on the root command works well
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("autoslicer: failed to initialise config: %w", err)
		}

		InitLogger(Debug)
		return nil
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: ~/.config/autoslicer.yaml, respects AUTOSLICER_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")
	rootCmd.PersistentFlags().StringVar(&SlicerBin, "slicer", "", "location of the slicing engine executable")
	rootCmd.PersistentFlags().StringSliceVar(&TweakerCmd, "tweaker-cmd", []string{}, "command to invoke the orientation optimizer, e.g. python3,/opt/Tweaker-3/Tweaker.py")
	rootCmd.PersistentFlags().StringVar(&ProfilePath, "profile", "", "printer profile (INI) exported from the slicing engine")
	rootCmd.PersistentFlags().StringVar(&OutputDir, "output", ".", "folder to write G-code into")
	rootCmd.PersistentFlags().IntVar(&Workers, "workers", 2, "how many models to slice in parallel")
	rootCmd.PersistentFlags().BoolVar(&KeepTemp, "keep-temp", false, "keep intermediate meshes around for debugging")
	rootCmd.PersistentFlags().StringSliceVar(&ExtraArgs, "extra-arg", []string{}, "extra engine flags, passed through verbatim")
	rootCmd.PersistentFlags().StringVar(&OctoPrintURL, "octoprint-url", "", "base URL of your OctoPrint instance")
	rootCmd.PersistentFlags().StringSliceVar(&OctoPrintKeyCmd, "octoprint-key-cmd", []string{}, "shell command to retrieve the OctoPrint API key")
}

func initializeConfig(cmd *cobra.Command) error {
	explicit := Config != ""
	if Config == "" {
		// Did the user provide an ENV?
		envConfig := os.Getenv("AUTOSLICER_CONFIG")
		if envConfig != "" {
			Config = envConfig
			explicit = true
		} else {
			// As fallback, search for config in home XDG-ish directory
			Config = "~/.config/autoslicer.yaml"
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("autoslicer: unable to expand homedir: %w", err)
	}
	ConfigActual = config

	if _, err := os.Stat(ConfigActual); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return fmt.Errorf("autoslicer: specified config file does not exist: %w", err)
		}
		// no config file is fine, flags will have to do
		return nil
	}

	yamlFile, err := os.ReadFile(ConfigActual)
	if err != nil {
		return fmt.Errorf("autoslicer: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a key we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("autoslicer: issue parsing config file: %w", err)
	}

	// Bind the current command's flags to the parsed YAML
	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("autoslicer: failed to bind flags: %w", err)
	}

	return nil
}

type YamlConfig struct {
	KeepTemp    *bool `yaml:"keep-temp"`
	DeleteInput *bool `yaml:"delete-input"`

	Slicer         string   `yaml:"slicer"`
	TweakerCmd     []string `yaml:"tweaker-cmd"`
	Profile        string   `yaml:"profile"`
	Output         string   `yaml:"output"`
	Workers        int      `yaml:"workers"`
	ExtraArgs      []string `yaml:"extra-arg"`
	WatchDir       string   `yaml:"watch-dir"`
	RescanInterval string   `yaml:"rescan-interval"`

	OctoPrintURL    string   `yaml:"octoprint-url"`
	OctoPrintKeyCmd []string `yaml:"octoprint-key-cmd"`
}

// Bind each cobra flag to its associated YAML key, unless the flag was given
// on the command line (flags beat the file).
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("autoslicer: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// hmm... the flag is unknown.  but that can legitimately happen if you're running
			// e.g. `config show` which has no `delete-input` flag but your YAML file does
			// define that key...
			continue
		}
		if !cmd.Flags().Changed(key) {
			switch field.Kind() {
			case reflect.Ptr:
				// err, this is crappy, but i know YamlConfig only uses pointers for bools.....
				b, ok := field.Value().(*bool)
				if !ok {
					return fmt.Errorf("autoslicer: found unrecognised field: %+v", field)
				}
				if b != nil {
					cmd.Flags().Set(key, fmt.Sprintf("%v", *b))
				}

			case reflect.String:
				s, ok := field.Value().(string)
				if !ok {
					return fmt.Errorf("autoslicer: found unrecognised field: %+v", field)
				}
				if s != "" {
					cmd.Flags().Set(key, s)
				}

			case reflect.Int:
				n, ok := field.Value().(int)
				if !ok {
					return fmt.Errorf("autoslicer: found unrecognised field: %+v", field)
				}
				if n != 0 {
					cmd.Flags().Set(key, fmt.Sprintf("%d", n))
				}

			case reflect.Slice:
				ss, ok := field.Value().([]string)
				if !ok {
					return fmt.Errorf("autoslicer: found unrecognised field: %+v", field)
				}
				for _, s := range ss {
					// yes, repeatedly calling Set() appends to the slice...
					cmd.Flags().Set(key, s)
				}

			default:
				return fmt.Errorf("autoslicer: found unrecognised field: %+v", field)
			}
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("autoslicer: execution error: %w", err)
	}

	return nil
}
