package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8484
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Store.DatabasePath == "" {
		cfg.Store.DatabasePath = ".kioku/records.db"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 128
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Search.PerVectorLimit == 0 {
		cfg.Search.PerVectorLimit = 5
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 10
	}
	if cfg.Ask.APIKeyEnv == "" {
		cfg.Ask.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Ask.TopK == 0 {
		cfg.Ask.TopK = 5
	}
	if cfg.Ask.Language == "" {
		cfg.Ask.Language = "en"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".md", ".pdf"}
	}
}
