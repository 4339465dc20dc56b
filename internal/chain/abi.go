package chain

// 合约名称，对应 config.chain.contracts 中的键
const (
	FactoryContract  = "factory"
	RoundContract    = "round"
	MACIContract     = "maci"
	ERC20Contract    = "erc20"
	RegistryContract = "registry"
	TCRContract      = "tcr"
)

// 内置的最小ABI，只包含对账需要的方法和事件

const factoryABI = `[
	{"anonymous": false, "inputs": [{"indexed": false, "name": "_round", "type": "address"}], "name": "RoundStarted", "type": "event"},
	{"anonymous": false, "inputs": [{"indexed": false, "name": "_source", "type": "address"}], "name": "FundingSourceAdded", "type": "event"},
	{"anonymous": false, "inputs": [{"indexed": false, "name": "_source", "type": "address"}], "name": "FundingSourceRemoved", "type": "event"},
	{"inputs": [], "name": "getCurrentRound", "outputs": [{"name": "_currentRound", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "nativeToken", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

const roundABI = `[
	{"anonymous": false, "inputs": [{"indexed": true, "name": "_sender", "type": "address"}, {"indexed": false, "name": "_amount", "type": "uint256"}], "name": "Contribution", "type": "event"},
	{"anonymous": false, "inputs": [{"indexed": false, "name": "_tallyHash", "type": "string"}], "name": "TallyPublished", "type": "event"},
	{"inputs": [], "name": "maci", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "nativeToken", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "recipientRegistry", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "userRegistry", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "voiceCreditFactor", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "isFinalized", "outputs": [{"name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "isCancelled", "outputs": [{"name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "totalSpent", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "matchingPoolSize", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "tallyHash", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"name": "_tallyHash", "type": "string"}], "name": "publishTallyHash", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

const maciABI = `[
	{"inputs": [], "name": "treeDepths", "outputs": [{"name": "stateTreeDepth", "type": "uint8"}, {"name": "messageTreeDepth", "type": "uint8"}, {"name": "voteOptionTreeDepth", "type": "uint8"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "signUpTimestamp", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "signUpDurationSeconds", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "votingDurationSeconds", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "numMessages", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABI = `[
	{"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"}
]`

const registryABI = `[
	{"anonymous": false, "inputs": [{"indexed": true, "name": "_recipientId", "type": "bytes32"}, {"indexed": false, "name": "_metadata", "type": "bytes"}, {"indexed": false, "name": "_index", "type": "uint256"}, {"indexed": false, "name": "_timestamp", "type": "uint256"}], "name": "RecipientAdded", "type": "event"},
	{"anonymous": false, "inputs": [{"indexed": true, "name": "_recipientId", "type": "bytes32"}, {"indexed": false, "name": "_timestamp", "type": "uint256"}], "name": "RecipientRemoved", "type": "event"},
	{"inputs": [], "name": "tcr", "outputs": [{"name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

const tcrABI = `[
	{"anonymous": false, "inputs": [{"indexed": true, "name": "_metaEvidenceID", "type": "uint256"}, {"indexed": false, "name": "_evidence", "type": "string"}], "name": "MetaEvidence", "type": "event"},
	{"anonymous": false, "inputs": [{"indexed": true, "name": "_itemID", "type": "bytes32"}, {"indexed": true, "name": "_submitter", "type": "address"}, {"indexed": true, "name": "_evidenceGroupID", "type": "uint256"}, {"indexed": false, "name": "_data", "type": "bytes"}], "name": "ItemSubmitted", "type": "event"},
	{"inputs": [{"name": "_itemID", "type": "bytes32"}], "name": "getItemInfo", "outputs": [{"name": "data", "type": "bytes"}, {"name": "status", "type": "uint8"}, {"name": "numberOfRequests", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var builtinABIs = map[string]string{
	FactoryContract:  factoryABI,
	RoundContract:    roundABI,
	MACIContract:     maciABI,
	ERC20Contract:    erc20ABI,
	RegistryContract: registryABI,
	TCRContract:      tcrABI,
}
