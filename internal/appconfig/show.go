package appconfig

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ShowConfig prints the effective configuration as YAML.
func ShowConfig(out io.Writer, file string, cfg *Config, fallback Config) error {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	effective := fallback
	if cfg != nil {
		effective = *cfg
	}

	fmt.Fprintln(out, "Current configuration:")
	data, err := yaml.Marshal(effective)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = out.Write(data)
	return err
}
