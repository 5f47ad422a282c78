package config

type Settings struct {
	// MonitoringPort is the port on which we serve Prometheus metrics.
	MonitoringPort string `yaml:"MONITORING_PORT"`

	// APIPort is the port of the operator HTTP API.
	APIPort string `yaml:"API_PORT"`

	// EthereumRPCURL is the URL of the JSON-RPC endpoint used to ask the node
	// for its suggested gas price.
	EthereumRPCURL string `yaml:"ETHEREUM_RPC_URL"`

	// KafkaServers is a comma-seperated list of Kafka bootstrap servers. Leave
	// it empty to disable the override consumer.
	KafkaServers string `yaml:"KAFKA_SERVERS"`

	// OverrideTopic carries operator gas price overrides.
	OverrideTopic string `yaml:"OVERRIDE_TOPIC"`

	// ConsumerGroupName is the name of the consumer group.
	ConsumerGroupName string `yaml:"CONSUMER_GROUP_NAME"`

	// At most one feed is used. They are checked in the order listed here.
	EthGasStationAPIKey string `yaml:"ETHGASSTATION_API_KEY"`
	EtherchainGas       bool   `yaml:"ETHERCHAIN_GAS"`
	POANetworkGas       bool   `yaml:"POANETWORK_GAS"`
	POANetworkURL       string `yaml:"POANETWORK_URL"`
	EtherscanGas        bool   `yaml:"ETHERSCAN_GAS"`
	EtherscanKey        string `yaml:"ETHERSCAN_KEY"`
	GasNowGas           bool   `yaml:"GASNOW_GAS"`
	GasNowAppName       string `yaml:"GASNOW_APP_NAME"`

	// FixedGasPrice is a starting price in Gwei, used only when no feed is
	// selected.
	FixedGasPrice string `yaml:"FIXED_GAS_PRICE"`

	// GasInitialMultiplier is multiplied by the node's price when the feed
	// has a reading.
	GasInitialMultiplier string `yaml:"GAS_INITIAL_MULTIPLIER"`

	// GasReactiveMultiplier is applied every escalation step while the
	// transaction is pending.
	GasReactiveMultiplier string `yaml:"GAS_REACTIVE_MULTIPLIER"`

	// GasMaximum is the highest price, in Gwei, that will ever be bid.
	GasMaximum string `yaml:"GAS_MAXIMUM"`

	// EpisodeTTL is how long an unfinished episode is kept, as a Go
	// duration. Defaults to 24h.
	EpisodeTTL string `yaml:"EPISODE_TTL"`
}
