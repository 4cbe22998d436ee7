package config

import (
	"io/ioutil"
	"path/filepath"
	"reflect"
	"time"

	"github.com/creasty/defaults"
	yaml "gopkg.in/yaml.v2"
)

type (
	//StaticCfg is the container for other static config sections
	StaticCfg struct {
		MongoDB      MongoDBStaticCfg   `yaml:"MongoDB"`
		Log          LogStaticCfg       `yaml:"LogConfig"`
		Blocklist    BlocklistStaticCfg `yaml:"Blocklist"`
		Scan         ScanStaticCfg      `yaml:"Scan"`
		Filtering    FilteringStaticCfg `yaml:"Filtering"`
		DNS          DNSStaticCfg       `yaml:"DNS"`
		Notify       NotifyStaticCfg    `yaml:"Notify"`
		GeoIP        GeoIPStaticCfg     `yaml:"GeoIP"`
		UserConfig   UserCfgStaticCfg   `yaml:"UserConfig"`
		Version      string
		ExactVersion string
	}

	//MongoDBStaticCfg contains the means for connecting to MongoDB
	MongoDBStaticCfg struct {
		ConnectionString string        `yaml:"ConnectionString" default:"mongodb://localhost:27017"`
		AuthMechanism    string        `yaml:"AuthenticationMechanism" default:""`
		SocketTimeout    time.Duration `yaml:"SocketTimeout" default:"2"`
		Database         string        `yaml:"Database" default:"snitch"`
		TLS              TLSStaticCfg  `yaml:"TLS"`
	}

	//TLSStaticCfg contains the means for connecting to MongoDB over TLS
	TLSStaticCfg struct {
		Enabled           bool   `yaml:"Enable" default:"false"`
		VerifyCertificate bool   `yaml:"VerifyCertificate" default:"false"`
		CAFile            string `yaml:"CAFile" default:""`
	}

	//LogStaticCfg contains the configuration for logging
	LogStaticCfg struct {
		LogLevel      int    `yaml:"LogLevel" default:"2"`
		SnitchLogPath string `yaml:"SnitchLogPath" default:"/var/lib/snitch/logs"`
		LogToFile     bool   `yaml:"LogToFile" default:"true"`
		LogToDB       bool   `yaml:"LogToDB" default:"true"`
	}

	//BlocklistStaticCfg controls where blocklist entries are loaded from.
	//Files may be local paths or http(s) URLs; each row is
	//"pattern,category,severity".
	BlocklistStaticCfg struct {
		UseDatabase bool     `yaml:"UseDatabase" default:"true"`
		CustomFiles []string `yaml:"CustomFiles"`
	}

	//ScanStaticCfg is used to control the scan cycle
	ScanStaticCfg struct {
		IntervalSeconds   int    `yaml:"IntervalSeconds" default:"10"`
		SeverityThreshold string `yaml:"SeverityThreshold" default:"High"`
		SquelchSeconds    int    `yaml:"SquelchSeconds" default:"60"`
		BaselineLogging   bool   `yaml:"BaselineLogging" default:"false"`
		DedupeBaseline    bool   `yaml:"DedupeBaseline" default:"true"`
		EstablishedOnly   bool   `yaml:"EstablishedOnly" default:"true"`
		ExternalOnly      bool   `yaml:"ExternalOnly" default:"true"`
		IncludeUDP        bool   `yaml:"IncludeUDP" default:"false"`
		Workers           int    `yaml:"Workers" default:"0"`
	}

	//FilteringStaticCfg lists destinations excluded from every scan.
	//NeverInclude holds IPs or CIDR ranges; NeverIncludeDomain holds
	//exact or wildcard (*.example.com) domains checked against rDNS.
	FilteringStaticCfg struct {
		NeverInclude       []string `yaml:"NeverInclude"`
		NeverIncludeDomain []string `yaml:"NeverIncludeDomain"`
	}

	//DNSStaticCfg is used to control the resolution cache
	DNSStaticCfg struct {
		ForwardTTLSeconds    int `yaml:"ForwardTTLSeconds" default:"3600"`
		ReverseTimeoutMillis int `yaml:"ReverseTimeoutMillis" default:"250"`
		WarmLimit            int `yaml:"WarmLimit" default:"600"`
	}

	//NotifyStaticCfg is used to control desktop notifications
	NotifyStaticCfg struct {
		Enabled     bool   `yaml:"Enable" default:"false"`
		MinSeverity string `yaml:"MinSeverity" default:"High"`
	}

	//GeoIPStaticCfg points at an optional MaxMind database used to
	//annotate detections with the destination country
	GeoIPStaticCfg struct {
		Enabled      bool   `yaml:"Enable" default:"false"`
		DatabasePath string `yaml:"DatabasePath" default:""`
	}

	//UserCfgStaticCfg contains
	UserCfgStaticCfg struct {
		UpdateCheckFrequency int `yaml:"UpdateCheckFrequency" default:"14"`
	}
)

// loadStaticConfig attempts to parse a config file
func loadStaticConfig(cfgPath string) (*StaticCfg, error) {
	var config = new(StaticCfg)

	cfgFile, err := ioutil.ReadFile(cfgPath)
	if err != nil {
		return config, err
	}

	err = parseStaticConfig(cfgFile, config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// parseStaticConfig loads the yaml from cfgFile into the provided config struct.
// It also fixes up misc values that need tweaking into the right data types.
func parseStaticConfig(cfgFile []byte, config *StaticCfg) error {

	// Initialize to the default values before applying the file
	err := defaults.Set(config)
	if err != nil {
		return err
	}

	err = yaml.Unmarshal(cfgFile, config)
	if err != nil {
		return err
	}

	// expand env variables, config is a pointer
	// so we have to call elem on the reflect value
	expandConfig(reflect.ValueOf(config).Elem())

	// set the socket time out in hours
	config.MongoDB.SocketTimeout *= time.Hour

	// clean all filepaths
	config.Log.SnitchLogPath = filepath.Clean(config.Log.SnitchLogPath)
	if config.GeoIP.DatabasePath != "" {
		config.GeoIP.DatabasePath = filepath.Clean(config.GeoIP.DatabasePath)
	}

	// grab the version constants set by the build process
	config.Version = Version
	config.ExactVersion = ExactVersion

	return nil
}
