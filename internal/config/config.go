// Package config loads the YAML configuration file into a Config
// struct exposing every key spec.md §6 names. Per spec.md §1,
// configuration loading correctness (precedence, secrets, hot-reload)
// is an external collaborator; Load only parses the file and applies
// defaults matching the original daemon's own config.py.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config mirrors the key set enumerated in spec.md §6.
type Config struct {
	WorkDir     string `yaml:"work_dir"`
	HostsDeny   string `yaml:"hosts_deny"`
	AllowedFile string `yaml:"allowed_hosts_file"`

	BlockService string `yaml:"block_service"`
	BSDStyle     bool   `yaml:"bsd_style"`

	PurgeDeny   time.Duration `yaml:"purge_deny"`
	DaemonSleep time.Duration `yaml:"daemon_sleep"`
	DaemonPurge time.Duration `yaml:"daemon_purge"`

	SyncServer   string        `yaml:"sync_server"`
	SyncUpload   bool          `yaml:"sync_upload"`
	SyncDownload bool          `yaml:"sync_download"`
	SyncInterval time.Duration `yaml:"sync_interval"`

	FirewallBackend string `yaml:"firewall_backend"` // "ipset", "iptables", "pf", "pf_table_file"
	Iptables        string `yaml:"iptables"`
	IpsetCommand    string `yaml:"ipset_command"`
	IpsetName       string `yaml:"ipset_name"`
	BlockPort       int    `yaml:"blockport"`
	PfctlPath       string `yaml:"pfctl_path"`
	PfTable         string `yaml:"pf_table"`
	PfTableFile     string `yaml:"pf_table_file"`

	HostnameLookup bool `yaml:"hostname_lookup"`
	SyslogReport   bool `yaml:"syslog_report"`

	DetectDovecotLoginAttempts        bool `yaml:"detect_dovecot_login_attempts"`
	SuspiciousLoginReportAllowedHosts bool `yaml:"suspicious_login_report_allowed_hosts"`

	SSHDFormatRegex         string   `yaml:"sshd_format_regex"`
	SuccessfulEntryRegex    string   `yaml:"successful_entry_regex"`
	FailedEntryRegexes      []string `yaml:"failed_entry_regexes"`
	FailedDovecotEntryRegex string   `yaml:"failed_dovecot_entry_regex"`
	UserdefFailedEntryRegex []string `yaml:"userdef_failed_entry_regex"`

	DenyThresholdInvalid    int `yaml:"deny_threshold_invalid"`
	DenyThresholdValid      int `yaml:"deny_threshold_valid"`
	DenyThresholdRoot       int `yaml:"deny_threshold_root"`
	DenyThresholdRestricted int `yaml:"deny_threshold_restricted"`

	RestrictedUsernames []string `yaml:"restricted_usernames"`

	PluginDeny string `yaml:"plugin_deny"`
}

// Load reads and parses the YAML file at path, applying defaults for
// any field left zero-valued.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a Config with the same baseline values the original
// daemon ships in its sample denyhosts.conf.
func Default() *Config {
	return &Config{
		WorkDir:      "/var/lib/denyhosts-go",
		HostsDeny:    "/etc/hosts.deny",
		AllowedFile:  "/etc/hosts.allow.denyhosts",
		BlockService: "ALL",
		BSDStyle:     false,

		PurgeDeny:   0,
		DaemonSleep: 30 * time.Second,
		DaemonPurge: time.Hour,

		SyncInterval: 1 * time.Hour,

		FirewallBackend: "iptables",
		Iptables:        "iptables",
		IpsetCommand:    "ipset",
		IpsetName:       "denyhosts",
		PfctlPath:       "pfctl",
		PfTable:         "denyhosts",

		HostnameLookup: false,
		SyslogReport:   false,

		DetectDovecotLoginAttempts: false,

		SSHDFormatRegex:      `sshd\[\d+\]:\s*(?P<message>.*)`,
		SuccessfulEntryRegex: `Accepted \S+ for (?P<user>\S+) from (?P<host>\S+)`,
		FailedEntryRegexes: []string{
			`Failed \S+ for (?P<invalid>invalid user )?(?P<user>\S+) from (?P<host>\S+)`,
		},
		FailedDovecotEntryRegex: `\(auth failed, \d+ attempts.*?, rip=(?P<host>\S+?),`,

		DenyThresholdInvalid:    5,
		DenyThresholdValid:      10,
		DenyThresholdRoot:       1,
		DenyThresholdRestricted: 1,

		RestrictedUsernames: []string{"root", "admin"},
	}
}
