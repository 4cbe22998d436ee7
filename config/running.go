package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"net"
	"time"

	"github.com/activecm/mgosec"
	"github.com/activecm/snitch/util"
	"github.com/blang/semver"
)

type (
	//RunningCfg holds configuration options that are parsed at run time
	RunningCfg struct {
		MongoDB   MongoDBRunningCfg
		Scan      ScanRunningCfg
		Filtering FilteringRunningCfg
		DNS       DNSRunningCfg
		Version   semver.Version
	}

	//MongoDBRunningCfg holds parsed information for connecting to MongoDB
	MongoDBRunningCfg struct {
		AuthMechanismParsed mgosec.AuthMechanism
		TLS                 struct {
			TLSConfig *tls.Config
		}
	}

	//ScanRunningCfg holds the scan durations in usable form
	ScanRunningCfg struct {
		Interval      time.Duration
		SquelchWindow time.Duration
	}

	//FilteringRunningCfg holds the never-include subnets in usable form
	FilteringRunningCfg struct {
		NeverInclude []*net.IPNet
	}

	//DNSRunningCfg holds the resolver durations in usable form
	DNSRunningCfg struct {
		ForwardTTL     time.Duration
		ReverseTimeout time.Duration
	}
)

// initRunningConfig uses data in the static config initialize
// the passed in running config
func initRunningConfig(config *StaticCfg, running *RunningCfg) error {
	var err error

	//parse the tls configuration
	if config.MongoDB.TLS.Enabled {
		tlsConf := &tls.Config{}
		if !config.MongoDB.TLS.VerifyCertificate {
			tlsConf.InsecureSkipVerify = true
		}
		if len(config.MongoDB.TLS.CAFile) > 0 {
			pem, err2 := ioutil.ReadFile(config.MongoDB.TLS.CAFile)
			err = err2
			if err != nil {
				fmt.Println("[!] Could not read MongoDB CA file")
			} else {
				tlsConf.RootCAs = x509.NewCertPool()
				tlsConf.RootCAs.AppendCertsFromPEM(pem)
			}
		}
		running.MongoDB.TLS.TLSConfig = tlsConf
	}

	//parse out the mongo authentication mechanism
	authMechanism, err := mgosec.ParseAuthMechanism(
		config.MongoDB.AuthMechanism,
	)
	if err != nil {
		authMechanism = mgosec.None
		fmt.Println("[!] Could not parse MongoDB authentication mechanism")
	}
	running.MongoDB.AuthMechanismParsed = authMechanism

	running.Filtering.NeverInclude, err = util.ParseSubnets(config.Filtering.NeverInclude)
	if err != nil {
		return fmt.Errorf("parsing Filtering: NeverInclude: %w", err)
	}

	running.Scan.Interval = time.Duration(config.Scan.IntervalSeconds) * time.Second
	running.Scan.SquelchWindow = time.Duration(config.Scan.SquelchSeconds) * time.Second
	running.DNS.ForwardTTL = time.Duration(config.DNS.ForwardTTLSeconds) * time.Second
	running.DNS.ReverseTimeout = time.Duration(config.DNS.ReverseTimeoutMillis) * time.Millisecond

	// dev builds ship without a stamped version; leave the zero version
	if parsed, err := semver.ParseTolerant(config.Version); err == nil {
		running.Version = parsed
	}
	return nil
}
