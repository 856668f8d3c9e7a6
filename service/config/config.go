package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/ghoul-sol/treasure-marketplace/logger/xzap"
	"github.com/ghoul-sol/treasure-marketplace/model"
)

// Config is the full daemon configuration.
type Config struct {
	Monitor    *Monitor        `toml:"monitor" mapstructure:"monitor" json:"monitor"`
	Log        *xzap.Conf      `toml:"log" mapstructure:"log" json:"log"`
	Kv         *KvConf         `toml:"kv" mapstructure:"kv" json:"kv"`
	DB         *model.DBConfig `toml:"db" mapstructure:"db" json:"db"`
	Api        ApiCfg          `toml:"api" mapstructure:"api" json:"api"`
	Market     MarketCfg       `toml:"market" mapstructure:"market" json:"market"`
	ProjectCfg ProjectCfg      `toml:"project_cfg" mapstructure:"project_cfg" json:"project_cfg"`
}

// ApiCfg configures the HTTP read/admin API.
type ApiCfg struct {
	Port int `toml:"port" mapstructure:"port" json:"port"`
}

// MarketCfg seeds the settlement engine.
type MarketCfg struct {
	Operator                  string `toml:"operator" mapstructure:"operator" json:"operator"`
	Owner                     string `toml:"owner" mapstructure:"owner" json:"owner"`
	FeeRecipient              string `toml:"fee_recipient" mapstructure:"fee_recipient" json:"fee_recipient"`
	FeeBps                    uint64 `toml:"fee_bps" mapstructure:"fee_bps" json:"fee_bps"`
	FeeWithCollectionOwnerBps uint64 `toml:"fee_with_collection_owner_bps" mapstructure:"fee_with_collection_owner_bps" json:"fee_with_collection_owner_bps"`
	DefaultPaymentToken       string `toml:"default_payment_token" mapstructure:"default_payment_token" json:"default_payment_token"`
	WrappedNativeToken        string `toml:"wrapped_native_token" mapstructure:"wrapped_native_token" json:"wrapped_native_token"`
	FloorPriceInterval        int64  `toml:"floor_price_interval" mapstructure:"floor_price_interval" json:"floor_price_interval"`
}

// Monitor configures pprof.
type Monitor struct {
	PprofEnable bool  `toml:"pprof_enable" mapstructure:"pprof_enable" json:"pprof_enable"`
	PprofPort   int64 `toml:"pprof_port" mapstructure:"pprof_port" json:"pprof_port"`
}

type ProjectCfg struct {
	Name string `toml:"name" mapstructure:"name" json:"name"`
}

type KvConf struct {
	Redis []*Redis `toml:"redis" mapstructure:"redis" json:"redis"`
}

type Redis struct {
	Host string `toml:"host" mapstructure:"host" json:"host"`
	Type string `toml:"type" mapstructure:"type" json:"type"`
	Pass string `toml:"pass" mapstructure:"pass" json:"pass"`
}

// UnmarshalConfig loads and parses the config file at the given path.
func UnmarshalConfig(configFilePath string) (*Config, error) {
	viper.SetConfigFile(configFilePath)
	viper.SetConfigType("toml")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("TMKT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UnmarshalCmdConfig parses the config file already registered with viper by
// the command layer.
func UnmarshalCmdConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
