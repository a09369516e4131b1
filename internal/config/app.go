package config

type AppConfig struct {
	Server  ServerConfig
	Monitor MonitorConfig
	Log     LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	monitorCfg, err := LoadMonitor()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:  serverCfg,
		Monitor: monitorCfg,
		Log:     logCfg,
	}, nil
}
