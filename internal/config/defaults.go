package config

const (
	defaultBusName             = "org.xfce.SettingsHelper"
	defaultHandoffTimeout      = 10
	defaultXfconfService       = "org.xfce.Xfconf"
	defaultXfconfPath          = "/org/xfce/Xfconf"
	defaultXfconfInterface     = "org.xfce.Xfconf"
	defaultSessionService      = "org.gnome.SessionManager"
	defaultSessionPath         = "/org/gnome/SessionManager"
	defaultSessionInterface    = "org.gnome.SessionManager"
	defaultSessionClientIface  = "org.gnome.SessionManager.ClientPrivate"
	defaultSessionAppID        = "xfce4-settings-helper"
	defaultAutostartFileName   = "xfce4-settings-helper-autostart.desktop"
	defaultClipboardPollMillis = 500
	defaultLogFormat           = LogFormatConsole
	defaultLogLevel            = LogLevelInfo
	defaultLogFile             = "~/.local/state/settingsd/settingsd.log"
	minClipboardPollMillis     = 50
	maxHandoffTimeoutSeconds   = 300
)

// Recognised logging formats and levels.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
	LogLevelDebug    = "debug"
	LogLevelInfo     = "info"
	LogLevelWarn     = "warn"
	LogLevelError    = "error"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Instance: Instance{
			BusName:        defaultBusName,
			HandoffTimeout: defaultHandoffTimeout,
		},
		Xfconf: Xfconf{
			Service:   defaultXfconfService,
			Path:      defaultXfconfPath,
			Interface: defaultXfconfInterface,
		},
		Session: Session{
			ManagerService:   defaultSessionService,
			ManagerPath:      defaultSessionPath,
			ManagerInterface: defaultSessionInterface,
			ClientInterface:  defaultSessionClientIface,
			AppID:            defaultSessionAppID,
		},
		Autostart: Autostart{
			FileName: defaultAutostartFileName,
		},
		Subsystems: Subsystems{
			Displays: true,
			Hotplug:  true,
		},
		Clipboard: Clipboard{
			PollIntervalMillis: defaultClipboardPollMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			File:   defaultLogFile,
		},
	}
}
