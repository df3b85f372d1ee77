package model

import (
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "TSICLIENT"

// StdStream is the file name which stands for stdin or stdout.
const StdStream = "-"

type Configs struct {
	LogFile          string `json:"log_file" mapstructure:"log_file"`
	LogLevel         string `json:"log_level" mapstructure:"log_level"`
	LogFormat        string `json:"log_format" mapstructure:"log_format"`
	InputFile        string `json:"input_file" mapstructure:"input_file"`
	OutputFile       string `json:"output_file" mapstructure:"output_file"`
	CsvDir           string `json:"csv_dir" mapstructure:"csv_dir"` // optional grid export , one file per events request
	TimezoneOffsetMs int64  `json:"timezone_offset_ms" mapstructure:"timezone_offset_ms"`
	RollUpMultiplier int    `json:"rollup_multiplier" mapstructure:"rollup_multiplier"` // 0 or 1 disables roll-up of availability buckets
	RollUpOffset     int    `json:"rollup_offset" mapstructure:"rollup_offset"`
	LatestKey        string `json:"latest_key" mapstructure:"latest_key"`
	Workers          int    `json:"workers" mapstructure:"workers"` // number of requests of one batch transformed in parallel
}

// NewConfigLoader returns viper instance with defaults set. Every parameter can be overridden
// by TSICLIENT_<PARAMETER> environment variable.
func NewConfigLoader() *viper.Viper {
	v := viper.New()
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("input_file", StdStream)
	v.SetDefault("output_file", StdStream)
	v.SetDefault("csv_dir", "")
	v.SetDefault("timezone_offset_ms", 0)
	v.SetDefault("rollup_multiplier", 0)
	v.SetDefault("rollup_offset", 0)
	v.SetDefault("latest_key", "latest")
	v.SetDefault("workers", 4)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfigs reads json config file into Configs. Empty configFile means defaults , env and bound flags only.
func LoadConfigs(v *viper.Viper, configFile string) (*Configs, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	conf := &Configs{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, err
	}
	return conf, nil
}
