package config

const (
	systemConfigPath  = "/etc/cfgd/cfgd.toml"
	projectConfigName = "cfgd.toml"

	// RunningDBEnv overrides the running-config database endpoint.
	RunningDBEnv = "CFGD_DATABASE"

	defaultConfigDB               = "unix:/var/local/openvswitch/config.db"
	defaultRunningDB              = "unix:/var/run/openvswitch/ovsdb.db"
	defaultRunDir                 = "/var/run/cfgd"
	defaultSocketName             = "cfgd.ctl"
	defaultDiscoveryAttempts      = 30
	defaultDiscoveryIntervalMS    = 100
	defaultHardwarePollIntervalMS = 200
	defaultTickIntervalMS         = 50
	defaultSyncTimeoutSeconds     = 0
	defaultLogFormat              = "auto"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Databases: Databases{
			ConfigDB:  defaultConfigDB,
			RunningDB: defaultRunningDB,
		},
		Daemon: Daemon{
			RunDir:                 defaultRunDir,
			DiscoveryAttempts:      defaultDiscoveryAttempts,
			DiscoveryIntervalMS:    defaultDiscoveryIntervalMS,
			HardwarePollIntervalMS: defaultHardwarePollIntervalMS,
			TickIntervalMS:         defaultTickIntervalMS,
			SyncTimeoutSeconds:     defaultSyncTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
