package structures

// CliFlags carries command-line overrides into the config provider.
type CliFlags struct {
	ConfigPath string
	Mode       string
	UserID     string
	Year       int
	DBPath     string
	ReportPath string
	ExportDir  string
	DebugMode  bool
}
