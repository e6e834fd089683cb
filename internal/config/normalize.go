package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.Instance.BusName = strings.TrimSpace(c.Instance.BusName)
	c.Xfconf.Service = strings.TrimSpace(c.Xfconf.Service)
	c.Xfconf.Path = strings.TrimSpace(c.Xfconf.Path)
	c.Xfconf.Interface = strings.TrimSpace(c.Xfconf.Interface)
	c.Session.ManagerService = strings.TrimSpace(c.Session.ManagerService)
	c.Session.ManagerPath = strings.TrimSpace(c.Session.ManagerPath)
	c.Session.ManagerInterface = strings.TrimSpace(c.Session.ManagerInterface)
	c.Session.ClientInterface = strings.TrimSpace(c.Session.ClientInterface)
	c.Session.AppID = strings.TrimSpace(c.Session.AppID)
	c.Autostart.FileName = strings.TrimSpace(c.Autostart.FileName)
	if c.Autostart.FileName != "" && !strings.HasSuffix(c.Autostart.FileName, ".desktop") {
		c.Autostart.FileName += ".desktop"
	}
	c.normalizeLogging()
	if c.Logging.File != "" {
		expanded, err := expandPath(c.Logging.File)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
}
