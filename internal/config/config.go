package config

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	LogZapMode               string `mapstructure:"LOG_ZAP_MODE"`
	PrintConfigurationToLogs string `mapstructure:"PRINT_CONFIGURATION_TO_LOGS"`

	DiscordToken     string `mapstructure:"DISCORD_TOKEN"`
	SaleChannelID    string `mapstructure:"SALE_CHANNEL_ID"`
	MintChannelID    string `mapstructure:"MINT_CHANNEL_ID"`
	BurnChannelID    string `mapstructure:"BURN_CHANNEL_ID"`
	ListingChannelID string `mapstructure:"LISTING_CHANNEL_ID"`
	CageChannelID    string `mapstructure:"CAGE_CHANNEL_ID"`

	OpenseaAPIKey  string `mapstructure:"OPENSEA_API_KEY"`
	OpenseaBaseURL string `mapstructure:"OPENSEA_BASE_URL"`
	CollectionSlug string `mapstructure:"COLLECTION_SLUG"`

	ContractAddress     string `mapstructure:"CONTRACT_ADDRESS"`
	CageContractAddress string `mapstructure:"CAGE_CONTRACT_ADDRESS"`
	EthereumNodeUrl     string `mapstructure:"ETHEREUM_NODE_URL"`
	EnsNodeUrl          string `mapstructure:"ENS_NODE_URL"`

	AuthorName      string `mapstructure:"AUTHOR_NAME"`
	AuthorThumbnail string `mapstructure:"AUTHOR_THUMBNAIL"`
	AuthorURL       string `mapstructure:"AUTHOR_URL"`

	MakerDenylist string `mapstructure:"MAKER_DENYLIST"`

	ListingPollIntervalSeconds     uint64 `mapstructure:"LISTING_POLL_INTERVAL_SECONDS"`
	CorrelationInitialDelaySeconds uint64 `mapstructure:"CORRELATION_INITIAL_DELAY_SECONDS"`
	CorrelationBackoffBaseMs       uint64 `mapstructure:"CORRELATION_BACKOFF_BASE_MS"`
	CorrelationMaxAttempts         uint64 `mapstructure:"CORRELATION_MAX_ATTEMPTS"`
	MetadataRetryDelayMs           uint64 `mapstructure:"METADATA_RETRY_DELAY_MS"`
	MetadataMaxAttempts            uint64 `mapstructure:"METADATA_MAX_ATTEMPTS"`

	BadgerPath string `mapstructure:"BADGER_PATH"`
	SqlitePath string `mapstructure:"SQLITE_PATH"`
}

var lock = &sync.Mutex{}
var config *Config

var Get = get

func get() Config {
	if config == nil {
		lock.Lock()
		defer lock.Unlock()
		if config == nil {
			c := loadConfig()
			config = &c
		}
	}
	return *config
}

func loadConfig() Config {
	viperAddConfigFile()
	viperAddEnv()
	cfg := initializeCfg()
	debugConfig(cfg)
	return cfg
}

func viperAddConfigFile() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("env")
}

func viperAddEnv() {
	viper.AutomaticEnv()
	// This makes sure that all envs are binded even if they are not represented in config file (https://github.com/spf13/viper/issues/584)
	valueOfConfig := reflect.ValueOf(&Config{}).Elem()
	fieldsOfConfig := reflect.TypeOf(&Config{}).Elem()
	for i := 0; i < valueOfConfig.NumField(); i++ {
		field, _ := fieldsOfConfig.FieldByName(valueOfConfig.Type().Field(i).Name)
		mapStructureVal := field.Tag.Get("mapstructure")
		err := viper.BindEnv(mapStructureVal)
		if err != nil {
			panic(fmt.Sprintf("Error binding env val '%v': %v", mapStructureVal, err))
		}
	}
}

func initializeCfg() Config {
	var cfg Config
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		} else {
			panic(fmt.Sprintf("fatal error reading config file: %v", err))
		}
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		panic(fmt.Sprintf("error unmarshaling config: %v", err))
	}
	return cfg
}

func debugConfig(cfg Config) {
	if cfg.PrintConfigurationToLogs == "true" {
		b, err := json.Marshal(cfg)
		var result string
		if err != nil {
			result = "[FAILED TO CONVERT CONF TO STRING]"
		} else {
			result = string(b)
		}
		log.Printf("[APP CONFIGURATION]: %v\n", result)
	}
}
