package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInstance(); err != nil {
		return err
	}
	if err := c.validateXfconf(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateAutostart(); err != nil {
		return err
	}
	if err := c.validateClipboard(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateInstance() error {
	if err := validateBusName("instance.bus_name", c.Instance.BusName); err != nil {
		return err
	}
	if c.Instance.HandoffTimeout <= 0 || c.Instance.HandoffTimeout > maxHandoffTimeoutSeconds {
		return fmt.Errorf("instance.handoff_timeout must be between 1 and %d seconds", maxHandoffTimeoutSeconds)
	}
	return nil
}

func (c *Config) validateXfconf() error {
	if err := validateBusName("xfconf.service", c.Xfconf.Service); err != nil {
		return err
	}
	if !dbus.ObjectPath(c.Xfconf.Path).IsValid() {
		return fmt.Errorf("xfconf.path %q is not a valid object path", c.Xfconf.Path)
	}
	if c.Xfconf.Interface == "" {
		return errors.New("xfconf.interface must be set")
	}
	return nil
}

func (c *Config) validateSession() error {
	if err := validateBusName("session.manager_service", c.Session.ManagerService); err != nil {
		return err
	}
	if !dbus.ObjectPath(c.Session.ManagerPath).IsValid() {
		return fmt.Errorf("session.manager_path %q is not a valid object path", c.Session.ManagerPath)
	}
	if c.Session.ManagerInterface == "" || c.Session.ClientInterface == "" {
		return errors.New("session.manager_interface and session.client_interface must be set")
	}
	if c.Session.AppID == "" {
		return errors.New("session.app_id must be set")
	}
	return nil
}

func (c *Config) validateAutostart() error {
	name := c.Autostart.FileName
	if name == ".desktop" || name == "" {
		return errors.New("autostart.file_name must be set")
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("autostart.file_name %q must not contain a directory", name)
	}
	return nil
}

func (c *Config) validateClipboard() error {
	if c.Clipboard.PollIntervalMillis < minClipboardPollMillis {
		return fmt.Errorf("clipboard.poll_interval_ms must be at least %d", minClipboardPollMillis)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateBusName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s must be set", field)
	}
	if strings.HasPrefix(name, ":") || !strings.Contains(name, ".") {
		return fmt.Errorf("%s %q is not a well-known bus name", field, name)
	}
	for _, element := range strings.Split(name, ".") {
		if element == "" {
			return fmt.Errorf("%s %q has an empty element", field, name)
		}
		if element[0] >= '0' && element[0] <= '9' {
			return fmt.Errorf("%s %q has an element starting with a digit", field, name)
		}
	}
	return nil
}
