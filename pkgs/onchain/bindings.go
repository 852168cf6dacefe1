package onchain

import (
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
)

// All contract-family interfaces, event topics, and selectors the verifier
// probes live here as named constants. Probes go through these bindings,
// never inline hex literals.

// ERC20IntrospectionABI covers the four canonical read calls every ERC-20
// token answers.
const ERC20IntrospectionABI = `[
	{"inputs": [], "name": "name", "outputs": [{"internalType": "string", "name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "symbol", "outputs": [{"internalType": "string", "name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

// ClaimantABI is the accessor a manually deployed exercise contract exposes
// to prove authorship without a factory-emitted event.
const ClaimantABI = `[
	{"inputs": [], "name": "claimant", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

// StakingABI covers the staking exercise contract family.
const StakingABI = `[
	{"inputs": [], "name": "stakingToken", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "totalStaked", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

// NFTCollectionABI covers the NFT collection exercise contract family.
const NFTCollectionABI = `[
	{"inputs": [], "name": "maxSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"inputs": [], "name": "totalMinted", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

// RNGABI covers the commit-reveal RNG exercise contract family. The reveal
// function is state-changing, so its presence is probed in the deployed
// bytecode instead (see RevealSelector).
const RNGABI = `[
	{"inputs": [{"internalType": "address", "name": "", "type": "address"}], "name": "commitments", "outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI    = mustParseABI("erc20", ERC20IntrospectionABI)
	claimantABI = mustParseABI("claimant", ClaimantABI)
	stakingABI  = mustParseABI("staking", StakingABI)
	nftABI      = mustParseABI("nft_collection", NFTCollectionABI)
	rngABI      = mustParseABI("rng", RNGABI)

	// TokenCreatedTopic is the factory's creation event signature:
	// TokenCreated(address indexed creator, address indexed token, string name, string symbol)
	TokenCreatedTopic = crypto.Keccak256Hash([]byte("TokenCreated(address,address,string,string)"))

	// RevealSelector is the 4-byte dispatch selector for reveal(bytes32),
	// scanned for in deployed RNG bytecode.
	RevealSelector = crypto.Keccak256([]byte("reveal(bytes32)"))[:4]

	// EIP1967ImplementationSlot is keccak256("eip1967.proxy.implementation") - 1.
	// A non-zero value at this slot marks an upgradeable proxy.
	EIP1967ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
)

func mustParseABI(name, raw string) ethabi.ABI {
	parsed, err := ethabi.JSON(strings.NewReader(raw))
	if err != nil {
		log.WithError(err).Fatalf("Failed to parse built-in ABI: %s", name)
	}
	return parsed
}
