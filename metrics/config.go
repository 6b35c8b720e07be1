package metrics

// Config 指标配置
//
// YAML 示例：
//
//	metrics:
//	  enabled: true
//	  service_name: flaked
//	  version: v0.3.0
//	  path: /metrics
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 写入 OTel Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 写入 OTel Resource 的 service.version
	Version string `mapstructure:"version"`

	// Path HTTP 服务暴露 Handler 的路径，默认 /metrics
	Path string `mapstructure:"path"`
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "flake"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
