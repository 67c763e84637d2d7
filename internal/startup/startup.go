package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"image-indexer/internal/logging"
	"image-indexer/internal/mediatypes"
	"image-indexer/internal/memory"
	"image-indexer/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Search engine selectors accepted by SEARCH_ENGINE.
const (
	EngineBleve         = "bleve"
	EngineElasticsearch = "elasticsearch"
)

// Config holds all application configuration
type Config struct {
	ScanDir          string
	CacheDir         string
	Port             string
	SearchEngine     string
	ElasticsearchURL string
	AllowedExts      map[string]bool
	Workers          int
	Incremental      bool
	LogHealthChecks  bool
	MetricsEnabled   bool

	// Derived paths
	IndexDir     string
	ThumbnailDir string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	// Apply the configured level before anything below logs.
	logging.SetLevel(getEnv("LOG_LEVEL", ""))

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	scanDir := getEnv("SCAN_DIR", "/images")
	cacheDir := getEnv("CACHE_DIR", "/cache")
	port := getEnv("PORT", "8080")
	searchEngine := strings.ToLower(getEnv("SEARCH_ENGINE", EngineBleve))
	elasticURL := getEnv("ELASTICSEARCH_URL", "http://localhost:9200")
	indexDir := getEnv("INDEX_DIR", "")
	thumbnailDir := getEnv("THUMBNAIL_DIR", "")
	extensionsStr := getEnv("ALLOWED_EXTENSIONS", "")
	workersStr := getEnv("WORKERS", "0")
	incremental := getEnvBool("INCREMENTAL", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  SCAN_DIR:            %s", scanDir)
	logging.Info("  CACHE_DIR:           %s", cacheDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  SEARCH_ENGINE:       %s", searchEngine)
	if searchEngine == EngineElasticsearch {
		logging.Info("  ELASTICSEARCH_URL:   %s", elasticURL)
	}
	logging.Info("  ALLOWED_EXTENSIONS:  %s", displayExtensions(extensionsStr))
	logging.Info("  WORKERS:             %s", workersStr)
	logging.Info("  INCREMENTAL:         %v", incremental)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	switch searchEngine {
	case EngineBleve, EngineElasticsearch:
	default:
		return nil, fmt.Errorf("unsupported SEARCH_ENGINE %q (expected %q or %q)",
			searchEngine, EngineBleve, EngineElasticsearch)
	}

	numWorkers, err := strconv.Atoi(workersStr)
	if err != nil || numWorkers < 0 {
		logging.Warn("  Invalid WORKERS value %q, using automatic sizing", workersStr)
		numWorkers = 0
	}
	if numWorkers == 0 {
		numWorkers = workers.ForMixed(32)
		logging.Info("  Workers (auto):      %d", numWorkers)
	}

	allowedExts := parseExtensions(extensionsStr)

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	scanDir, err = filepath.Abs(scanDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan directory path: %w", err)
	}
	logging.Info("  Scan directory (absolute):  %s", scanDir)

	cacheDir, err = filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	if err := ensureDirectory(scanDir, "scan"); err != nil {
		logging.Warn("  Scan directory issue: %v", err)
	}

	// INDEX_DIR and THUMBNAIL_DIR override the cache-derived defaults.
	if indexDir == "" {
		indexDir = filepath.Join(cacheDir, "index")
	}
	if thumbnailDir == "" {
		thumbnailDir = filepath.Join(cacheDir, "thumbnails")
	}

	config := &Config{
		ScanDir:          scanDir,
		CacheDir:         cacheDir,
		Port:             port,
		SearchEngine:     searchEngine,
		ElasticsearchURL: elasticURL,
		AllowedExts:      allowedExts,
		Workers:          numWorkers,
		Incremental:      incremental,
		LogHealthChecks:  logHealthChecks,
		MetricsEnabled:   metricsEnabled,
		IndexDir:         indexDir,
		ThumbnailDir:     thumbnailDir,
	}

	// Cache directory holds the embedded index and thumbnails; both
	// need write access.
	if err := ensureDirectory(cacheDir, "cache"); err != nil {
		return nil, fmt.Errorf("cache directory error: %w", err)
	}

	logging.Debug("  Testing cache directory write access...")
	if err := testWriteAccess(cacheDir); err != nil {
		return nil, fmt.Errorf("cache directory is not writable: %w", err)
	}
	logging.Info("  [OK] Cache directory is writable")

	if err := ensureDirectory(config.ThumbnailDir, "thumbnails"); err != nil {
		return nil, fmt.Errorf("thumbnail directory error: %w", err)
	}

	logging.Info("")
	logging.Info("  Search backend: %s", config.SearchEngine)
	if config.SearchEngine == EngineBleve {
		logging.Info("  Index path:     %s", config.IndexDir)
	} else {
		logging.Info("  Index URL:      %s", config.ElasticsearchURL)
	}

	return config, nil
}

// parseExtensions turns a comma-separated extension list into a lookup
// set, falling back to the built-in image extensions when empty.
// Entries are lowercased and stripped of any leading dot.
func parseExtensions(s string) map[string]bool {
	exts := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
		if part != "" {
			exts[part] = true
		}
	}
	if len(exts) == 0 {
		return mediatypes.DefaultAllowedExtensions()
	}
	return exts
}

func displayExtensions(s string) string {
	if s == "" {
		return "(defaults)"
	}
	return s
}

// LogSearcherInit logs search backend initialization
func LogSearcherInit(engine string, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SEARCH BACKEND INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] %s backend ready in %v", engine, duration)
}

// LogMemoryConfig logs how the Go memory limit was configured
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if !result.Configured {
		logging.Info("  GOMEMLIMIT not configured (no container limit detected)")
		return
	}
	logging.Info("  Source:     %s", result.Source)
	logging.Info("  GOMEMLIMIT: %d bytes", result.GoMemLimit)
	if result.ContainerLimit > 0 {
		logging.Info("  Container:  %d bytes (ratio %.2f)", result.ContainerLimit, result.Ratio)
	}
}

// LogIndexerInit logs indexer initialization
func LogIndexerInit(numWorkers int, incremental bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("INDEXER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Extraction workers: %d", numWorkers)
	logging.Info("  Incremental scans:  %v", incremental)
	logging.Info("  Starting initial scan...")
}

// LogIndexerStarted logs successful indexer start
func LogIndexerStarted() {
	logging.Info("  [OK] Indexer started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	// Special handling for API routes
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ____                             ____          __
   /  _/___ ___  ____ _____ ____    /  _/___  ____/ /__  _  __
   / // __ '__ \/ __ '/ __ '/ _ \   / // __ \/ __  / _ \| |/_/
 _/ // / / / / / /_/ / /_/ /  __/ _/ // / / / /_/ /  __/>  <
/___/_/ /_/ /_/\__,_/\__, /\___/ /___/_/ /_/\__,_/\___/_/|_|
                    /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "scan" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
