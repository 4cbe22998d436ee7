package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const staticConfigParserTestConfig = `
MongoDB:
    ConnectionString: mongodb://localhost:27017
    AuthenticationMechanism: null
    SocketTimeout: 2
    Database: snitch
    TLS:
        Enable: false
        VerifyCertificate: false
        CAFile: aaaaa
LogConfig:
    LogLevel: 2
    SnitchLogPath: /var/lib/snitch/logs
    LogToFile: true
    LogToDB: true
Blocklist:
    UseDatabase: true
    CustomFiles: [test1, test2]
Scan:
    IntervalSeconds: 10
    SeverityThreshold: High
    SquelchSeconds: 60
    BaselineLogging: true
    DedupeBaseline: true
    EstablishedOnly: true
    ExternalOnly: true
    IncludeUDP: false
    Workers: 4
Filtering:
    NeverInclude: ["8.8.4.4/32"]
    NeverIncludeDomain: ["good.com", "*.mydomain.com"]
DNS:
    ForwardTTLSeconds: 3600
    ReverseTimeoutMillis: 250
    WarmLimit: 600
Notify:
    Enable: true
    MinSeverity: High
GeoIP:
    Enable: false
    DatabasePath: null
UserConfig:
    UpdateCheckFrequency: 14
`

var testConfigFullExp = StaticCfg{
	MongoDB: MongoDBStaticCfg{
		ConnectionString: "mongodb://localhost:27017",
		AuthMechanism:    "",
		SocketTimeout:    2 * time.Hour,
		Database:         "snitch",
		TLS: TLSStaticCfg{
			Enabled:           false,
			VerifyCertificate: false,
			CAFile:            "aaaaa",
		},
	},
	Log: LogStaticCfg{
		LogLevel:      2,
		SnitchLogPath: "/var/lib/snitch/logs",
		LogToFile:     true,
		LogToDB:       true,
	},
	Blocklist: BlocklistStaticCfg{
		UseDatabase: true,
		CustomFiles: []string{"test1", "test2"},
	},
	Scan: ScanStaticCfg{
		IntervalSeconds:   10,
		SeverityThreshold: "High",
		SquelchSeconds:    60,
		BaselineLogging:   true,
		DedupeBaseline:    true,
		EstablishedOnly:   true,
		ExternalOnly:      true,
		IncludeUDP:        false,
		Workers:           4,
	},
	Filtering: FilteringStaticCfg{
		NeverInclude:       []string{"8.8.4.4/32"},
		NeverIncludeDomain: []string{"good.com", "*.mydomain.com"},
	},
	DNS: DNSStaticCfg{
		ForwardTTLSeconds:    3600,
		ReverseTimeoutMillis: 250,
		WarmLimit:            600,
	},
	Notify: NotifyStaticCfg{
		Enabled:     true,
		MinSeverity: "High",
	},
	GeoIP: GeoIPStaticCfg{
		Enabled:      false,
		DatabasePath: "",
	},
	UserConfig: UserCfgStaticCfg{
		UpdateCheckFrequency: 14,
	},
}

// TestParseStaticConfig ensures that a yaml config
// string is correctly converted into a StaticCfg struct.
func TestParseStaticConfig(t *testing.T) {
	config := &StaticCfg{}
	err := parseStaticConfig([]byte(staticConfigParserTestConfig), config)

	// We are not testing the version setting ensure they are equal
	testConfigFullExp.Version = config.Version
	testConfigFullExp.ExactVersion = config.ExactVersion

	assert.Nil(t, err)
	assert.Equal(t, *config, testConfigFullExp)
}

// TestStaticConfigDefaults ensures that an empty yaml document
// produces the documented defaults.
func TestStaticConfigDefaults(t *testing.T) {
	config := &StaticCfg{}
	err := parseStaticConfig([]byte(""), config)

	assert.Nil(t, err)
	assert.Equal(t, "mongodb://localhost:27017", config.MongoDB.ConnectionString)
	assert.Equal(t, 2*time.Hour, config.MongoDB.SocketTimeout)
	assert.Equal(t, "High", config.Scan.SeverityThreshold)
	assert.Equal(t, 10, config.Scan.IntervalSeconds)
	assert.Equal(t, 60, config.Scan.SquelchSeconds)
	assert.Equal(t, 3600, config.DNS.ForwardTTLSeconds)
	assert.Equal(t, 250, config.DNS.ReverseTimeoutMillis)
	assert.False(t, config.Scan.BaselineLogging)
	assert.True(t, config.Scan.EstablishedOnly)
}

// TestFilePathCleaning ensures that paths specified
// in a config file are cleaned up correctly.
func TestFilePathCleaning(t *testing.T) {
	testPathConfig := `
LogConfig:
    SnitchLogPath: /var/lib/snitch/incorrect/./../logs/
`
	config := &StaticCfg{}
	err := parseStaticConfig([]byte(testPathConfig), config)

	assert.Nil(t, err)
	assert.Equal(t, "/var/lib/snitch/logs", config.Log.SnitchLogPath)
}

// TestLoadTestingConfig ensures the testing config parses and
// the running durations are derived from the static values.
func TestLoadTestingConfig(t *testing.T) {
	conf, err := LoadTestingConfig("mongodb://localhost:27017")
	assert.Nil(t, err)
	assert.Equal(t, time.Second, conf.R.Scan.Interval)
	assert.Equal(t, time.Minute, conf.R.Scan.SquelchWindow)
	assert.Equal(t, time.Hour, conf.R.DNS.ForwardTTL)
	assert.Equal(t, 250*time.Millisecond, conf.R.DNS.ReverseTimeout)
	assert.Equal(t, "detections", conf.T.Detection.DetectionsTable)
	assert.Equal(t, "blocklist", conf.T.Blocklist.BlocklistTable)

	// never-include subnets are parsed into usable form
	assert.Len(t, conf.R.Filtering.NeverInclude, 1)
	assert.Equal(t, "8.8.4.4/32", conf.R.Filtering.NeverInclude[0].String())
}

// TestRunningConfigRejectsBadNeverInclude ensures a malformed
// Filtering entry surfaces as a config load error instead of a
// silently missing exclusion.
func TestRunningConfigRejectsBadNeverInclude(t *testing.T) {
	static := &StaticCfg{}
	err := parseStaticConfig([]byte("Filtering:\n    NeverInclude: [\"not-a-subnet\"]\n"), static)
	assert.Nil(t, err)

	running := &RunningCfg{}
	err = initRunningConfig(static, running)
	assert.NotNil(t, err)
}
