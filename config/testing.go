package config

import (
	"github.com/creasty/defaults"
)

const testConfig = `
MongoDB:
    ConnectionString: null
    AuthenticationMechanism: null
    SocketTimeout: 2
    Database: snitch-test
    TLS:
        Enable: false
        VerifyCertificate: false
        CAFile: null
LogConfig:
    LogLevel: 3
    SnitchLogPath: null
    LogToFile: false
    LogToDB: false
Blocklist:
    UseDatabase: true
    CustomFiles: []
Scan:
    IntervalSeconds: 1
    SeverityThreshold: Low
    SquelchSeconds: 60
    BaselineLogging: true
    DedupeBaseline: true
    EstablishedOnly: true
    ExternalOnly: true
    IncludeUDP: false
    Workers: 1
Filtering:
    NeverInclude: ["8.8.4.4/32"]
    NeverIncludeDomain: ["good.com", "*.mydomain.com"]
DNS:
    ForwardTTLSeconds: 3600
    ReverseTimeoutMillis: 250
    WarmLimit: 10
Notify:
    Enable: false
    MinSeverity: High
GeoIP:
    Enable: false
    DatabasePath: null
UserConfig:
    UpdateCheckFrequency: 14
`

// LoadTestingConfig loads the hard coded testing config
func LoadTestingConfig(mongoURI string) (*Config, error) {
	config := &Config{}

	// Initialize table config to the default values
	if err := defaults.Set(&config.T); err != nil {
		return nil, err
	}

	// Deserialize the yaml file contents into the static config
	if err := parseStaticConfig([]byte(testConfig), &config.S); err != nil {
		return nil, err
	}

	config.S.MongoDB.ConnectionString = mongoURI
	config.S.Version = "v0.0.0+testing"
	config.S.ExactVersion = "v0.0.0+testing"

	// Use the static config to initialize the running config
	if err := initRunningConfig(&config.S, &config.R); err != nil {
		return nil, err
	}

	return config, nil
}
