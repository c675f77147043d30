// Package config centralizes every environment-variable driven tunable
// the node reads at startup, so they are declared in one place instead
// of scattered across main.go.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable the node reads from the environment.
type Config struct {
	// Identity and storage.
	ListenPort    string // PORT
	DBPath        string // AXIOM_DB_PATH, defaults to axiom_<port>.db
	AdvertisedURL string // AXIOM_ADVERTISED_URL
	BootstrapPeer string // AXIOM_BOOTSTRAP_PEER, optional

	// Corroboration.
	TCorroborate int // AXIOM_T_CORROBORATE, default 100, minimum practical 2

	// Reputation.
	InitialReputation float64 // AXIOM_R0, default 0.2
	PenaltyFail       float64 // AXIOM_P_FAIL, default 0.05
	RewardUptime      float64 // AXIOM_R_UPTIME, default 0.001
	RewardDataFactor  float64 // AXIOM_R_DATA, default 0.01

	// Scheduler.
	MainCycleInterval time.Duration // AXIOM_MAIN_CYCLE_SECONDS, default 900s
	IdleSuiteInterval time.Duration // AXIOM_IDLE_SUITE_SECONDS, default 150s
	IdleTickInterval  time.Duration // AXIOM_IDLE_TICK_SECONDS, default 1s
	UncorroboratedTTL time.Duration // AXIOM_UNCORROBORATED_TTL_HOURS, default 24h
	MetaPruneTTL      time.Duration // AXIOM_META_PRUNE_TTL_HOURS, default 2160h (90d)

	// Idle suite per-task minimum re-run intervals.
	RelationshipRediscoveryInterval time.Duration // default 300s
	EndpointRegistryRefreshInterval time.Duration // default 3600s
	DataQualityScanInterval         time.Duration // default 900s
	FragmentAuditInterval           time.Duration // default 300s
	HealthSnapshotInterval          time.Duration // default 600s
	SelfCheckInterval               time.Duration // default 10800s

	// Trending-topic rotation and article sources.
	Topics      []string            // AXIOM_TOPICS, comma separated
	FeedSources map[string][]string // AXIOM_FEED_SOURCES, "topic:url1|url2;topic2:url3"

	// HTTP surface.
	MeshAuthToken string // AXIOM_MESH_TOKEN, optional

	// Outbound HTTP deadlines.
	ControlTimeout time.Duration // 5s
	BulkTimeout    time.Duration // 10-20s, default 15s
	ArticleTimeout time.Duration // 12s
}

// Load reads every tunable from the environment, applying defaults.
// It never fails on a missing optional variable; it fails only if a
// present variable can't be parsed, which is fatal at startup.
func Load() (*Config, error) {
	port := getEnvOrDefault("PORT", "8420")

	tCorroborate, err := getEnvIntOrDefault("AXIOM_T_CORROBORATE", 100)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_T_CORROBORATE: %w", err)
	}

	r0, err := getEnvFloatOrDefault("AXIOM_R0", 0.2)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_R0: %w", err)
	}
	pFail, err := getEnvFloatOrDefault("AXIOM_P_FAIL", 0.05)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_P_FAIL: %w", err)
	}
	rUptime, err := getEnvFloatOrDefault("AXIOM_R_UPTIME", 0.001)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_R_UPTIME: %w", err)
	}
	rData, err := getEnvFloatOrDefault("AXIOM_R_DATA", 0.01)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_R_DATA: %w", err)
	}

	mainCycle, err := getEnvSecondsOrDefault("AXIOM_MAIN_CYCLE_SECONDS", 900)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_MAIN_CYCLE_SECONDS: %w", err)
	}
	idleSuite, err := getEnvSecondsOrDefault("AXIOM_IDLE_SUITE_SECONDS", 150)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_IDLE_SUITE_SECONDS: %w", err)
	}
	idleTick, err := getEnvSecondsOrDefault("AXIOM_IDLE_TICK_SECONDS", 1)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_IDLE_TICK_SECONDS: %w", err)
	}
	uncorroboratedTTL, err := getEnvHoursOrDefault("AXIOM_UNCORROBORATED_TTL_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_UNCORROBORATED_TTL_HOURS: %w", err)
	}
	metaPruneTTL, err := getEnvHoursOrDefault("AXIOM_META_PRUNE_TTL_HOURS", 90*24)
	if err != nil {
		return nil, fmt.Errorf("config: AXIOM_META_PRUNE_TTL_HOURS: %w", err)
	}

	relRediscovery, _ := getEnvSecondsOrDefault("AXIOM_RELATIONSHIP_REDISCOVERY_SECONDS", 300)
	endpointRefresh, _ := getEnvSecondsOrDefault("AXIOM_ENDPOINT_REGISTRY_REFRESH_SECONDS", 3600)
	dataQuality, _ := getEnvSecondsOrDefault("AXIOM_DATA_QUALITY_SCAN_SECONDS", 900)
	fragmentAudit, _ := getEnvSecondsOrDefault("AXIOM_FRAGMENT_AUDIT_SECONDS", 300)
	healthSnapshot, _ := getEnvSecondsOrDefault("AXIOM_HEALTH_SNAPSHOT_SECONDS", 600)
	selfCheck, _ := getEnvSecondsOrDefault("AXIOM_SELF_CHECK_SECONDS", 10800)

	dbPath := getEnvOrDefault("AXIOM_DB_PATH", fmt.Sprintf("axiom_%s.db", port))
	advertisedURL := getEnvOrDefault("AXIOM_ADVERTISED_URL", fmt.Sprintf("http://localhost:%s", port))

	topics := splitNonEmpty(getEnvOrDefault("AXIOM_TOPICS", "technology,economy,politics"))
	feedSources := parseFeedSources(os.Getenv("AXIOM_FEED_SOURCES"))

	return &Config{
		ListenPort:    port,
		DBPath:        dbPath,
		AdvertisedURL: advertisedURL,
		BootstrapPeer: os.Getenv("AXIOM_BOOTSTRAP_PEER"),

		TCorroborate: tCorroborate,

		InitialReputation: r0,
		PenaltyFail:       pFail,
		RewardUptime:      rUptime,
		RewardDataFactor:  rData,

		MainCycleInterval: mainCycle,
		IdleSuiteInterval: idleSuite,
		IdleTickInterval:  idleTick,
		UncorroboratedTTL: uncorroboratedTTL,
		MetaPruneTTL:      metaPruneTTL,

		RelationshipRediscoveryInterval: relRediscovery,
		EndpointRegistryRefreshInterval: endpointRefresh,
		DataQualityScanInterval:         dataQuality,
		FragmentAuditInterval:           fragmentAudit,
		HealthSnapshotInterval:          healthSnapshot,
		SelfCheckInterval:               selfCheck,

		Topics:      topics,
		FeedSources: feedSources,

		MeshAuthToken: os.Getenv("AXIOM_MESH_TOKEN"),

		ControlTimeout: 5 * time.Second,
		BulkTimeout:    15 * time.Second,
		ArticleTimeout: 12 * time.Second,
	}, nil
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	return strconv.Atoi(val)
}

func getEnvFloatOrDefault(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(val, 64)
}

func getEnvSecondsOrDefault(key string, fallbackSeconds int) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return time.Duration(fallbackSeconds) * time.Second, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func getEnvHoursOrDefault(key string, fallbackHours int) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return time.Duration(fallbackHours) * time.Hour, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Hour, nil
}

// parseFeedSources reads AXIOM_FEED_SOURCES in the form
// "topic:url1|url2;topic2:url3" into the map internal/feed.Fetcher
// consumes. Sources are operator-configured, not discovered: there is
// no RSS/NER-driven topic discovery in the node itself.
func parseFeedSources(raw string) map[string][]string {
	out := make(map[string][]string)
	if raw == "" {
		return out
	}
	for _, group := range strings.Split(raw, ";") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		parts := strings.SplitN(group, ":", 2)
		if len(parts) != 2 {
			continue
		}
		topic := strings.TrimSpace(parts[0])
		urls := splitNonEmpty(strings.ReplaceAll(parts[1], "|", ","))
		if topic == "" || len(urls) == 0 {
			continue
		}
		out[topic] = urls
	}
	return out
}

func splitNonEmpty(csv string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}
