package chains

// builtinSpecs is the static chain table, keyed by lowercase symbol.
// Built-ins are defined at process start and never change; runtime
// registrations can never shadow them.
//
//nolint:gochecknoglobals // Static chain table shared by all registries
var builtinSpecs = map[string]Spec{
	// Non-EVM chains.
	"btc": {
		Name:           "Bitcoin",
		Symbol:         "BTC",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatP2PKH,
		DerivationPath: "m/44'/0'/0'/0/0",
	},
	"ltc": {
		Name:           "Litecoin",
		Symbol:         "LTC",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatLitecoin,
		DerivationPath: "m/44'/2'/0'/0/0",
	},
	"doge": {
		Name:           "Dogecoin",
		Symbol:         "DOGE",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatDogecoin,
		DerivationPath: "m/44'/3'/0'/0/0",
	},
	"sol": {
		Name:           "Solana",
		Symbol:         "SOL",
		Curve:          CurveED25519,
		AddressFormat:  AddressFormatSolana,
		DerivationPath: "m/44'/501'/0'/0'",
	},
	"trx": {
		Name:           "TRON",
		Symbol:         "TRX",
		SymbolAliases:  []string{"TRON"},
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatTron,
		DerivationPath: "m/44'/195'/0'/0/0",
	},
	"atom": {
		Name:           "Cosmos",
		Symbol:         "ATOM",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatCosmos,
		DerivationPath: "m/44'/118'/0'/0/0",
	},
	"apt": {
		Name:           "Aptos",
		Symbol:         "APT",
		Curve:          CurveED25519,
		AddressFormat:  AddressFormatAptos,
		DerivationPath: "m/44'/637'/0'/0'/0'",
	},

	// EVM chains. All share Ethereum's curve, path, and address format.
	"eth": {
		ChainID:        chainIDOf(1),
		Name:           "Ethereum",
		Symbol:         "ETH",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"op": {
		ChainID:        chainIDOf(10),
		Name:           "Optimism",
		Symbol:         "OP",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"bnb": {
		ChainID:        chainIDOf(56),
		Name:           "BNB Smart Chain",
		Symbol:         "BNB",
		SymbolAliases:  []string{"BSC"},
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"gno": {
		ChainID:        chainIDOf(100),
		Name:           "Gnosis",
		Symbol:         "GNO",
		SymbolAliases:  []string{"XDAI"},
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"pol": {
		ChainID:        chainIDOf(137),
		Name:           "Polygon",
		Symbol:         "POL",
		SymbolAliases:  []string{"MATIC"},
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"ftm": {
		ChainID:        chainIDOf(250),
		Name:           "Fantom",
		Symbol:         "FTM",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"zksync": {
		ChainID:        chainIDOf(324),
		Name:           "zkSync Era",
		Symbol:         "ZKSYNC",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"mnt": {
		ChainID:        chainIDOf(5000),
		Name:           "Mantle",
		Symbol:         "MNT",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"base": {
		ChainID:        chainIDOf(8453),
		Name:           "Base",
		Symbol:         "BASE",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"arb": {
		ChainID:        chainIDOf(42161),
		Name:           "Arbitrum One",
		Symbol:         "ARB",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"celo": {
		ChainID:        chainIDOf(42220),
		Name:           "Celo",
		Symbol:         "CELO",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"avax": {
		ChainID:        chainIDOf(43114),
		Name:           "Avalanche C-Chain",
		Symbol:         "AVAX",
		SymbolAliases:  []string{"AVAXC"},
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"linea": {
		ChainID:        chainIDOf(59144),
		Name:           "Linea",
		Symbol:         "LINEA",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"blast": {
		ChainID:        chainIDOf(81457),
		Name:           "Blast",
		Symbol:         "BLAST",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
	"scroll": {
		ChainID:        chainIDOf(534352),
		Name:           "Scroll",
		Symbol:         "SCROLL",
		Curve:          CurveSECP256K1,
		AddressFormat:  AddressFormatEthereum,
		DerivationPath: EthereumDerivationPath,
		EVMCompatible:  true,
	},
}
