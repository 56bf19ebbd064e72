package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/veripass/veripass/pkg/gateway"
)

const (
	DefaultConfigPath = "/etc/veripass/config"
	ConfigFileName    = "veripass.yml"
)

// VeripassConfig holds all Veripass server configuration settings
type VeripassConfig struct {
	// FaceMatchThreshold is the accept boundary for face comparison
	FaceMatchThreshold float64 `yaml:"face_match_threshold" json:"face_match_threshold"`

	// DocumentConfidenceFloor is the minimum per-field extraction confidence
	DocumentConfidenceFloor float64 `yaml:"document_confidence_floor" json:"document_confidence_floor"`

	// LivenessFloor is the minimum liveness confidence
	LivenessFloor float64 `yaml:"liveness_floor" json:"liveness_floor"`

	// MinLivenessFrames is the minimum frame-sequence length for liveness
	MinLivenessFrames int `yaml:"min_liveness_frames" json:"min_liveness_frames"`

	// EnrollmentValidityDays is the lifetime of a new enrollment in days
	EnrollmentValidityDays int `yaml:"enrollment_validity_days" json:"enrollment_validity_days"`

	// BoardingPassTTL is the lifetime of an issued boarding pass in seconds
	BoardingPassTTL int `yaml:"boarding_pass_ttl" json:"boarding_pass_ttl"`

	// ProviderTimeout bounds each verification provider call, in seconds
	ProviderTimeout int `yaml:"provider_timeout" json:"provider_timeout"`

	// ProviderRetries bounds retries for idempotent provider read paths
	ProviderRetries int `yaml:"provider_retries" json:"provider_retries"`

	// SweepInterval is the expiry sweep period in seconds
	SweepInterval int `yaml:"sweep_interval" json:"sweep_interval"`

	// TrustedProxies is a list of CIDR ranges for trusted proxies
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// AuditEnabled enables the audit log
	AuditEnabled bool `yaml:"audit_enabled" json:"audit_enabled"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *VeripassConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *VeripassConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment. The loaded
// values are copied into the existing singleton so holders of the pointer
// observe the new settings.
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	if globalConfig == nil {
		globalConfig = cfg
	} else {
		*globalConfig = *cfg
	}
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *VeripassConfig {
	return &VeripassConfig{
		FaceMatchThreshold:      gateway.FaceMatchThreshold,
		DocumentConfidenceFloor: 80,
		LivenessFloor:           80,
		MinLivenessFrames:       gateway.MinLivenessFrames,
		EnrollmentValidityDays:  365,
		BoardingPassTTL:         86400,
		ProviderTimeout:         10,
		ProviderRetries:         2,
		SweepInterval:           300,
		TrustedProxies:          []string{},
		AuditEnabled:            true,
		sources:                 make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*VeripassConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("VERIPASS_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig VeripassConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"face_match_threshold", "document_confidence_floor", "liveness_floor",
		"min_liveness_frames", "enrollment_validity_days", "boarding_pass_ttl",
		"provider_timeout", "provider_retries", "sweep_interval",
		"trusted_proxies", "audit_enabled",
	}
}

func (c *VeripassConfig) applyFileConfig(file *VeripassConfig) {
	if file.FaceMatchThreshold != 0 {
		c.FaceMatchThreshold = file.FaceMatchThreshold
		c.sources["face_match_threshold"] = "file"
	}
	if file.DocumentConfidenceFloor != 0 {
		c.DocumentConfidenceFloor = file.DocumentConfidenceFloor
		c.sources["document_confidence_floor"] = "file"
	}
	if file.LivenessFloor != 0 {
		c.LivenessFloor = file.LivenessFloor
		c.sources["liveness_floor"] = "file"
	}
	if file.MinLivenessFrames != 0 {
		c.MinLivenessFrames = file.MinLivenessFrames
		c.sources["min_liveness_frames"] = "file"
	}
	if file.EnrollmentValidityDays != 0 {
		c.EnrollmentValidityDays = file.EnrollmentValidityDays
		c.sources["enrollment_validity_days"] = "file"
	}
	if file.BoardingPassTTL != 0 {
		c.BoardingPassTTL = file.BoardingPassTTL
		c.sources["boarding_pass_ttl"] = "file"
	}
	if file.ProviderTimeout != 0 {
		c.ProviderTimeout = file.ProviderTimeout
		c.sources["provider_timeout"] = "file"
	}
	if file.ProviderRetries != 0 {
		c.ProviderRetries = file.ProviderRetries
		c.sources["provider_retries"] = "file"
	}
	if file.SweepInterval != 0 {
		c.SweepInterval = file.SweepInterval
		c.sources["sweep_interval"] = "file"
	}
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
}

func (c *VeripassConfig) applyEnvConfig() {
	if val := os.Getenv("VERIPASS_FACE_MATCH_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.FaceMatchThreshold = f
			c.sources["face_match_threshold"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_DOCUMENT_CONFIDENCE_FLOOR"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.DocumentConfidenceFloor = f
			c.sources["document_confidence_floor"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_LIVENESS_FLOOR"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.LivenessFloor = f
			c.sources["liveness_floor"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_MIN_LIVENESS_FRAMES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.MinLivenessFrames = i
			c.sources["min_liveness_frames"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_ENROLLMENT_VALIDITY_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.EnrollmentValidityDays = i
			c.sources["enrollment_validity_days"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_BOARDING_PASS_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.BoardingPassTTL = i
			c.sources["boarding_pass_ttl"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_PROVIDER_TIMEOUT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.ProviderTimeout = i
			c.sources["provider_timeout"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_PROVIDER_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.ProviderRetries = i
			c.sources["provider_retries"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_SWEEP_INTERVAL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SweepInterval = i
			c.sources["sweep_interval"] = "environment"
		}
	}
	if val := os.Getenv("VERIPASS_TRUSTED_PROXIES"); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	if val := os.Getenv("VERIPASS_AUDIT_ENABLED"); val != "" {
		c.AuditEnabled = val == "true" || val == "1"
		c.sources["audit_enabled"] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (c *VeripassConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *VeripassConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// ProviderTimeoutDuration returns the provider timeout as a duration
func (c *VeripassConfig) ProviderTimeoutDuration() time.Duration {
	return time.Duration(c.ProviderTimeout) * time.Second
}

// EnrollmentValidity returns the enrollment lifetime as a duration
func (c *VeripassConfig) EnrollmentValidity() time.Duration {
	return time.Duration(c.EnrollmentValidityDays) * 24 * time.Hour
}

// BoardingPassValidity returns the boarding pass lifetime as a duration
func (c *VeripassConfig) BoardingPassValidity() time.Duration {
	return time.Duration(c.BoardingPassTTL) * time.Second
}

// SweepIntervalDuration returns the expiry sweep period as a duration
func (c *VeripassConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *VeripassConfig) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if net.ParseIP(cidr) != nil && cidr == ip {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *VeripassConfig) Validate() error {
	for name, score := range map[string]float64{
		"face_match_threshold":      c.FaceMatchThreshold,
		"document_confidence_floor": c.DocumentConfidenceFloor,
		"liveness_floor":            c.LivenessFloor,
	} {
		if score < 0 || score > 100 {
			return fmt.Errorf("invalid %s: %v is outside the 0-100 score range", name, score)
		}
	}

	if c.MinLivenessFrames < 1 {
		return fmt.Errorf("invalid min_liveness_frames: %d", c.MinLivenessFrames)
	}
	if c.EnrollmentValidityDays < 1 {
		return fmt.Errorf("invalid enrollment_validity_days: %d", c.EnrollmentValidityDays)
	}
	if c.ProviderRetries < 0 {
		return fmt.Errorf("invalid provider_retries: %d", c.ProviderRetries)
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *VeripassConfig) Attributes() []Attribute {
	formatScore := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	return []Attribute{
		{Name: "face_match_threshold", Value: formatScore(c.FaceMatchThreshold), Source: c.Source("face_match_threshold")},
		{Name: "document_confidence_floor", Value: formatScore(c.DocumentConfidenceFloor), Source: c.Source("document_confidence_floor")},
		{Name: "liveness_floor", Value: formatScore(c.LivenessFloor), Source: c.Source("liveness_floor")},
		{Name: "min_liveness_frames", Value: strconv.Itoa(c.MinLivenessFrames), Source: c.Source("min_liveness_frames")},
		{Name: "enrollment_validity_days", Value: strconv.Itoa(c.EnrollmentValidityDays), Source: c.Source("enrollment_validity_days")},
		{Name: "boarding_pass_ttl", Value: strconv.Itoa(c.BoardingPassTTL), Source: c.Source("boarding_pass_ttl")},
		{Name: "provider_timeout", Value: strconv.Itoa(c.ProviderTimeout), Source: c.Source("provider_timeout")},
		{Name: "provider_retries", Value: strconv.Itoa(c.ProviderRetries), Source: c.Source("provider_retries")},
		{Name: "sweep_interval", Value: strconv.Itoa(c.SweepInterval), Source: c.Source("sweep_interval")},
		{Name: "trusted_proxies", Value: strings.Join(c.TrustedProxies, ","), Source: c.Source("trusted_proxies")},
		{Name: "audit_enabled", Value: strconv.FormatBool(c.AuditEnabled), Source: c.Source("audit_enabled")},
	}
}

// FormatText returns a text representation of the configuration
func (c *VeripassConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-30s %-20s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-30s %-20s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-30s %-20s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *VeripassConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
