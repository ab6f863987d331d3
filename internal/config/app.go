package config

type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
	Tables TablesConfig
	Push   PushConfig
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
	tablesCfg, err := LoadTables(serverCfg.TablesConfigPath)
	if err != nil {
		return AppConfig{}, err
	}
	pushCfg, err := LoadPush()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Log:    logCfg,
		Tables: tablesCfg,
		Push:   pushCfg,
	}, nil
}
