package structures

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type AnalyzerConfig struct {
	ExportDir     string `yaml:"exportDir" validate:"required"`
	UserID        string `yaml:"userID" validate:"required"`
	TargetYear    int    `yaml:"targetYear" validate:"min:2015"`
	Workers       int    `yaml:"workers"`
	StoreMessages bool   `yaml:"storeMessages"`
}

type StoreConfig struct {
	Path        string `yaml:"path" validate:"required|unixPath"`
	KeepHistory bool   `yaml:"keepHistory"`
	BatchSize   int    `yaml:"batchSize"`
}

type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ReportTopN struct {
	Servers   int `yaml:"servers"`
	DMs       int `yaml:"dms"`
	GroupDMs  int `yaml:"groupDMs"`
	Emotes    int `yaml:"emotes"`
	FileTypes int `yaml:"fileTypes"`
}

type ReportConfig struct {
	Path string     `yaml:"path" validate:"required|unixPath"`
	TopN ReportTopN `yaml:"topN"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	Size       int  `yaml:"size"`
	TTLSeconds int  `yaml:"ttlSeconds"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	Analyzer  AnalyzerConfig `yaml:"analyzer"`
	Store     StoreConfig    `yaml:"store"`
	Snapshot  SnapshotConfig `yaml:"snapshot"`
	Report    ReportConfig   `yaml:"report"`
	WebServer Server         `yaml:"webServer"`
	Logger    LoggerConfig   `yaml:"logger"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}
