package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch monitors the configuration file and invokes onChange whenever it
// is rewritten. The new contents go through the full Load pipeline, so
// onChange receives a validated configuration with defaults applied, or
// the error that made the new contents unusable. The previous
// configuration stays in effect when onChange reports an error.
//
// The watcher runs for the remaining lifetime of the process; there is no
// way to stop it short of exiting.
//
// Watch requires an existing configuration file. A server started purely
// from defaults has nothing to watch.
func Watch(configPath string, onChange func(*Config, error)) error {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no configuration file to watch")
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		// Editors often replace the file rather than write in place, so
		// the event payload is unreliable. Re-read from the path instead.
		cfg, err := Load(configPath)
		onChange(cfg, err)
	})
	v.WatchConfig()

	return nil
}
