package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir   string
	DataJSON  string
	ViewsFile string
	Layout    string

	XLSXOut          string
	PackageXLSXOut   string
	PackageSpecFiles map[string]string
	GRPSDir          string
	GRPSXLSXOut      string

	ServerAddr       string
	StaticDir        string // empty serves DataDir
	ExportCommand    string
	ExportTimeoutSec int

	LogLevel  string
	LogFormat string

	Policy Policy
}

// Policy holds the fallback labels used when a lookup or classification
// has nothing better to offer.
type Policy struct {
	DefaultCategory        string
	DefaultDrawingCategory string
	DefaultSpecDivision    string
	DefaultStatus          string
	NoSpecLabel            string
	UngroupedLabel         string
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultCategory:        "Others",
		DefaultDrawingCategory: "General",
		DefaultSpecDivision:    "Div 26 - Electrical",
		DefaultStatus:          "Pending",
		NoSpecLabel:            "No Specification",
		UngroupedLabel:         "Uncategorized",
	}
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	defaults := DefaultPolicy()
	cfg := Config{
		DataDir:   getEnv("DATA_DIR", cwd),
		DataJSON:  getEnv("DATA_JSON", "data.json"),
		ViewsFile: getEnv("VIEWS_FILE", ""),
		Layout:    getEnv("LAYOUT", LayoutCSV),

		XLSXOut:          getEnv("XLSX_OUT", "Bid_Items_By_Category.xlsx"),
		PackageXLSXOut:   getEnv("PACKAGE_XLSX_OUT", "Package_Group_to_Spec_Mapping.xlsx"),
		PackageSpecFiles: getEnvMap("PACKAGE_SPEC_FILES", defaultPackageSpecFiles()),
		GRPSDir:          getEnv("GRPS_DIR", "Data"),
		GRPSXLSXOut:      getEnv("GRPS_XLSX_OUT", "Data/GRPS_Scope_Items_Mapping.xlsx"),

		ServerAddr:       getEnv("SERVER_ADDR", ":8000"),
		StaticDir:        getEnv("STATIC_DIR", ""),
		ExportCommand:    getEnv("EXPORT_COMMAND", "mepbid export:grps"),
		ExportTimeoutSec: getEnvInt("EXPORT_TIMEOUT_SEC", 120),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		Policy: Policy{
			DefaultCategory:        getEnv("DEFAULT_CATEGORY", defaults.DefaultCategory),
			DefaultDrawingCategory: getEnv("DEFAULT_DRAWING_CATEGORY", defaults.DefaultDrawingCategory),
			DefaultSpecDivision:    getEnv("DEFAULT_SPEC_DIVISION", defaults.DefaultSpecDivision),
			DefaultStatus:          getEnv("DEFAULT_STATUS", defaults.DefaultStatus),
			NoSpecLabel:            getEnv("NO_SPEC_LABEL", defaults.NoSpecLabel),
			UngroupedLabel:         getEnv("UNGROUPED_LABEL", defaults.UngroupedLabel),
		},
	}

	if cfg.Layout != LayoutCSV && cfg.Layout != LayoutJSON {
		return Config{}, fmt.Errorf("unsupported LAYOUT: %s", cfg.Layout)
	}
	return cfg, nil
}

// Resolve anchors a relative path at DataDir.
func (c Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.DataDir == "" {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

func defaultPackageSpecFiles() map[string]string {
	return map[string]string{
		"electrical": "Data/elec_package.txt",
		"mechanical": "Data/mech_package.txt",
		"plumbing":   "Data/plumbing_package.txt",
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvMap parses "k1=v1,k2=v2".
func getEnvMap(key string, fallback map[string]string) map[string]string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	out := map[string]string{}
	for _, pair := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
