package config

import (
	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	In        string
	Out       string
	Errors    string
	LogLevel  string
	Topic0Map map[string]string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":       "./data/typed_events.jsonl",
		"errors":    "./data/decode_errors.jsonl",
		"log-level": "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	return DecodeConfig{
		In:        v.GetString("in"),
		Out:       v.GetString("out"),
		Errors:    v.GetString("errors"),
		LogLevel:  v.GetString("log-level"),
		Topic0Map: getStringMap(v, "topic0-map"),
	}, nil
}
