// Package onchain verifies transaction and contract submissions against a
// blockchain JSON-RPC endpoint. Every RPC failure or malformed response
// converts to a retryable ValidationResult - errors never escape to the
// router - so the caller can resubmit once the real transaction is mined or
// corrected.
package onchain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/catalog"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/metrics"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/submissions"
)

const (
	// Declared token-creation methods.
	MethodFactory    = "factory"
	MethodDeployment = "deployment"
)

// VerifyInput is the chain context resolved by the router.
type VerifyInput struct {
	Wallet  common.Address
	RPCURL  string
	ChainID int64
}

// Verifier runs achievement-specific on-chain checks.
type Verifier struct {
	callTimeout time.Duration

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

// NewVerifier creates a verifier with the given per-call timeout.
func NewVerifier(callTimeout time.Duration) *Verifier {
	return &Verifier{
		callTimeout: callTimeout,
		clients:     make(map[string]*ethclient.Client),
	}
}

// Close releases all cached RPC connections.
func (v *Verifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.clients {
		c.Close()
	}
	v.clients = make(map[string]*ethclient.Client)
}

func (v *Verifier) client(url string) (*ethclient.Client, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.clients[url]; ok {
		return c, nil
	}
	c, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	v.clients[url] = c
	return c, nil
}

// VerifyTransaction dispatches a transaction submission to the achievement's
// check family.
func (v *Verifier) VerifyTransaction(ctx context.Context, ach *catalog.Achievement, in *VerifyInput, payload *submissions.TransactionPayload) *submissions.ValidationResult {
	if !submissions.TxHashPattern.MatchString(payload.TransactionHash) {
		return submissions.Retryable(
			"That doesn't look like a transaction hash.",
			"Submit the full 0x-prefixed 64-character transaction hash.",
		)
	}
	txHash := common.HexToHash(payload.TransactionHash)

	client, err := v.client(in.RPCURL)
	if err != nil {
		return v.rpcFailure(ach.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()

	switch ach.Check {
	case catalog.CheckTokenCreation:
		return v.verifyTokenCreation(ctx, client, ach, in, payload, txHash)
	case catalog.CheckStaking:
		return v.verifyFamilyDeployment(ctx, client, ach, in, txHash, stakingABI,
			[]string{"stakingToken", "totalStaked"}, "a staking contract")
	case catalog.CheckNFTCollection:
		return v.verifyFamilyDeployment(ctx, client, ach, in, txHash, nftABI,
			[]string{"maxSupply", "totalMinted"}, "an NFT collection")
	case catalog.CheckRNG:
		return v.verifyRNG(ctx, client, ach, in, txHash)
	default:
		return v.verifyGeneric(ctx, client, ach, in, txHash)
	}
}

// VerifyContract handles achievements whose submission is a deployed
// contract address rather than a transaction hash.
func (v *Verifier) VerifyContract(ctx context.Context, ach *catalog.Achievement, in *VerifyInput, payload *submissions.ContractPayload) *submissions.ValidationResult {
	if !common.IsHexAddress(payload.ContractAddress) {
		return submissions.Retryable(
			"That doesn't look like a contract address.",
			"Submit the 0x-prefixed address of your deployed proxy.",
		)
	}
	addr := common.HexToAddress(payload.ContractAddress)

	client, err := v.client(in.RPCURL)
	if err != nil {
		return v.rpcFailure(ach.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.callTimeout)
	defer cancel()

	switch ach.Check {
	case catalog.CheckUpgradeableProxy:
		return v.verifyUpgradeableProxy(ctx, client, ach, addr)
	default:
		return submissions.Terminal("This achievement does not accept contract-address submissions.")
	}
}

// verifyTokenCreation checks ERC-20 token creation through the known factory
// or as a manual deployment proving authorship via claimant().
func (v *Verifier) verifyTokenCreation(ctx context.Context, client *ethclient.Client, ach *catalog.Achievement, in *VerifyInput, payload *submissions.TransactionPayload, txHash common.Hash) *submissions.ValidationResult {
	method := strings.ToLower(strings.TrimSpace(payload.CreationMethod))
	if method != MethodFactory && method != MethodDeployment {
		return submissions.Retryable(
			"Token creation requires a declared method.",
			`Set creationMethod to "factory" or "deployment" and resubmit.`,
		)
	}

	if !common.IsHexAddress(payload.Claimant) || common.HexToAddress(payload.Claimant) != in.Wallet {
		return submissions.Retryable(
			"The claimant address must match the submitting wallet.",
		)
	}

	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return v.rpcFailure(ach.ID, fmt.Errorf("receipt fetch failed: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return submissions.Retryable(
			"The transaction reverted on-chain.",
			"Retry the token creation and submit the new transaction hash.",
		)
	}

	switch method {
	case MethodFactory:
		return v.verifyFactoryCreation(ctx, client, ach, in, receipt)
	default:
		return v.verifyManualDeployment(ctx, client, ach, in, receipt)
	}
}

func (v *Verifier) verifyFactoryCreation(ctx context.Context, client *ethclient.Client, ach *catalog.Achievement, in *VerifyInput, receipt *types.Receipt) *submissions.ValidationResult {
	factory, ok := ach.FactoryAddresses[in.ChainID]
	if !ok {
		return submissions.Terminal(
			fmt.Sprintf("The token factory is not deployed on chain %d.", in.ChainID),
			"Use one of the supported networks.",
		)
	}

	tx, _, err := client.TransactionByHash(ctx, receipt.TxHash)
	if err != nil {
		return v.rpcFailure(ach.ID, fmt.Errorf("transaction fetch failed: %w", err))
	}
	if tx.To() == nil || *tx.To() != factory {
		return submissions.Retryable(
			"The transaction did not target the academy token factory.",
			fmt.Sprintf("Create your token through the factory at %s.", factory.Hex()),
		)
	}

	// Locate the creation event and decode creator/token from indexed topics
	var tokenAddr common.Address
	found := false
	for _, lg := range receipt.Logs {
		if lg.Address != factory || len(lg.Topics) < 3 || lg.Topics[0] != TokenCreatedTopic {
			continue
		}
		creator := common.BytesToAddress(lg.Topics[1].Bytes())
		if creator != in.Wallet {
			return submissions.Retryable(
				"The token was created by a different wallet.",
				"Submit from the wallet that called the factory.",
			)
		}
		tokenAddr = common.BytesToAddress(lg.Topics[2].Bytes())
		found = true
		break
	}
	if !found {
		return submissions.Retryable(
			"No token creation event found in that transaction.",
			"Submit the hash of the factory call that created your token.",
		)
	}

	if err := v.introspectERC20(ctx, client, tokenAddr); err != nil {
		log.WithError(err).WithField("token", tokenAddr.Hex()).Debug("ERC-20 introspection failed")
		return submissions.Retryable(
			"The created contract does not answer the standard ERC-20 calls.",
		)
	}

	result := submissions.Pass(
		"Token creation verified through the factory!",
		"Submit your voucher on-chain to mint the badge.",
	)
	result.TokenAddress = tokenAddr.Hex()
	result.ContractAddress = tokenAddr.Hex()
	result.CreationMethod = MethodFactory
	result.BlockNumber = receipt.BlockNumber.Uint64()
	return result
}

func (v *Verifier) verifyManualDeployment(ctx context.Context, client *ethclient.Client, ach *catalog.Achievement, in *VerifyInput, receipt *types.Receipt) *submissions.ValidationResult {
	if receipt.ContractAddress == (common.Address{}) {
		return submissions.Retryable(
			"That transaction did not deploy a contract.",
			"Submit the deployment transaction hash, not a later interaction.",
		)
	}
	token := receipt.ContractAddress

	if err := v.introspectERC20(ctx, client, token); err != nil {
		log.WithError(err).WithField("token", token.Hex()).Debug("ERC-20 introspection failed")
		return submissions.Retryable(
			"The deployed contract does not answer the standard ERC-20 calls.",
		)
	}

	if res := v.checkClaimant(ctx, client, token, in.Wallet); res != nil {
		return res
	}

	result := submissions.Pass(
		"Manual token deployment verified!",
		"Submit your voucher on-chain to mint the badge.",
	)
	result.TokenAddress = token.Hex()
	result.ContractAddress = token.Hex()
	result.CreationMethod = MethodDeployment
	result.BlockNumber = receipt.BlockNumber.Uint64()
	return result
}

// verifyFamilyDeployment covers the repeated pattern: receipt shows a
// successful contract creation, claimant() matches the wallet, and the
// contract answers the family's probe calls.
func (v *Verifier) verifyFamilyDeployment(ctx context.Context, client *ethclient.Client, ach *catalog.Achievement, in *VerifyInput, txHash common.Hash, familyABI ethabi.ABI, probes []string, familyName string) *submissions.ValidationResult {
	receipt, res := v.creationReceipt(ctx, client, ach, txHash)
	if res != nil {
		return res
	}
	addr := receipt.ContractAddress

	if res := v.checkClaimant(ctx, client, addr, in.Wallet); res != nil {
		return res
	}

	contract := bind.NewBoundContract(addr, familyABI, client, client, client)
	opts := &bind.CallOpts{Context: ctx}
	for _, probe := range probes {
		var out []interface{}
		if err := contract.Call(opts, &out, probe); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"contract": addr.Hex(),
				"probe":    probe,
			}).Debug("Family probe failed")
			return submissions.Retryable(
				fmt.Sprintf("The deployed contract does not look like %s: %s() did not answer.", familyName, probe),
			)
		}
	}

	result := submissions.Pass(
		fmt.Sprintf("Verified %s deployed by your wallet!", familyName),
		"Submit your voucher on-chain to mint the badge.",
	)
	result.ContractAddress = addr.Hex()
	result.BlockNumber = receipt.BlockNumber.Uint64()
	return result
}

func (v *Verifier) verifyRNG(ctx context.Context, client *ethclient.Client, ach *catalog.Achievement, in *VerifyInput, txHash common.Hash) *submissions.ValidationResult {
	receipt, res := v.creationReceipt(ctx, client, ach, txHash)
	if res != nil {
		return res
	}
	addr := receipt.ContractAddress

	if res := v.checkClaimant(ctx, client, addr, in.Wallet); res != nil {
		return res
	}

	// Per-address commitment mapping must answer
	contract := bind.NewBoundContract(addr, rngABI, client, client, client)
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "commitments", in.Wallet); err != nil {
		log.WithError(err).WithField("contract", addr.Hex()).Debug("RNG commitments probe failed")
		return submissions.Retryable(
			"The deployed contract does not expose a commitments(address) mapping.",
		)
	}

	// reveal(bytes32) is state-changing; probe the dispatch selector in the
	// deployed bytecode instead of calling it
	code, err := client.CodeAt(ctx, addr, nil)
	if err != nil {
		return v.rpcFailure(ach.ID, fmt.Errorf("code fetch failed: %w", err))
	}
	if !bytes.Contains(code, RevealSelector) {
		return submissions.Retryable(
			"The deployed contract has no reveal function.",
			"Deploy the commit-reveal RNG contract from the lesson and resubmit.",
		)
	}

	result := submissions.Pass(
		"Commit-reveal RNG contract verified!",
		"Submit your voucher on-chain to mint the badge.",
	)
	result.ContractAddress = addr.Hex()
	result.BlockNumber = receipt.BlockNumber.Uint64()
	return result
}

func (v *Verifier) verifyUpgradeableProxy(ctx context.Context, client *ethclient.Client, ach *catalog.Achievement, addr common.Address) *submissions.ValidationResult {
	// Raw storage read of the EIP-1967 implementation slot; proxies are
	// detected without any ABI call
	slot, err := client.StorageAt(ctx, addr, EIP1967ImplementationSlot, nil)
	if err != nil {
		return v.rpcFailure(ach.ID, fmt.Errorf("storage read failed: %w", err))
	}

	impl := common.BytesToAddress(slot)
	if impl == (common.Address{}) {
		return submissions.Retryable(
			"That contract has no EIP-1967 implementation slot set.",
			"Submit the proxy address, not the implementation.",
		)
	}

	result := submissions.Pass(
		"Upgradeable proxy verified!",
		"Submit your voucher on-chain to mint the badge.",
	)
	result.ContractAddress = addr.Hex()
	return result
}

// verifyGeneric is the weak fallback for achievements without a bespoke
// check: the transaction must be mined and originate from the wallet.
func (v *Verifier) verifyGeneric(ctx context.Context, client *ethclient.Client, ach *catalog.Achievement, in *VerifyInput, txHash common.Hash) *submissions.ValidationResult {
	tx, isPending, err := client.TransactionByHash(ctx, txHash)
	if err != nil {
		return v.rpcFailure(ach.ID, fmt.Errorf("transaction fetch failed: %w", err))
	}
	if isPending {
		return submissions.Retryable(
			"The transaction is not mined yet.",
			"Wait for confirmation and resubmit.",
		)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(in.ChainID)), tx)
	if err != nil {
		return v.rpcFailure(ach.ID, fmt.Errorf("sender recovery failed: %w", err))
	}
	if sender != in.Wallet {
		return submissions.Retryable(
			"The transaction was sent by a different wallet.",
			"Submit a transaction sent from your connected wallet.",
		)
	}

	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return v.rpcFailure(ach.ID, fmt.Errorf("receipt fetch failed: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return submissions.Retryable("The transaction reverted on-chain.")
	}

	result := submissions.Pass(
		"Transaction verified!",
		"Submit your voucher on-chain to mint the badge.",
	)
	result.BlockNumber = receipt.BlockNumber.Uint64()
	return result
}

// creationReceipt fetches a receipt and requires a successful contract
// creation. The second return value is non-nil when verification should stop.
func (v *Verifier) creationReceipt(ctx context.Context, client *ethclient.Client, ach *catalog.Achievement, txHash common.Hash) (*types.Receipt, *submissions.ValidationResult) {
	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, v.rpcFailure(ach.ID, fmt.Errorf("receipt fetch failed: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, submissions.Retryable(
			"The transaction reverted on-chain.",
			"Retry the deployment and submit the new transaction hash.",
		)
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, submissions.Retryable(
			"That transaction did not deploy a contract.",
			"Submit the deployment transaction hash, not a later interaction.",
		)
	}
	return receipt, nil
}

// checkClaimant requires the contract's claimant() accessor to return the
// submitting wallet. Returns nil when the check passes.
func (v *Verifier) checkClaimant(ctx context.Context, client *ethclient.Client, addr, wallet common.Address) *submissions.ValidationResult {
	contract := bind.NewBoundContract(addr, claimantABI, client, client, client)
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "claimant"); err != nil {
		log.WithError(err).WithField("contract", addr.Hex()).Debug("claimant() probe failed")
		return submissions.Retryable(
			"The deployed contract does not expose a claimant() accessor.",
			"Deploy the contract from the lesson template, which records your wallet as claimant.",
		)
	}
	if len(out) == 0 {
		return submissions.Retryable("The claimant() call returned no value.")
	}
	claimant, ok := out[0].(common.Address)
	if !ok || claimant != wallet {
		return submissions.Retryable(
			"The contract's claimant does not match your wallet.",
			"Deploy from the wallet you're submitting with.",
		)
	}
	return nil
}

// introspectERC20 confirms the token answers the four canonical ERC-20 read
// calls with plausible values.
func (v *Verifier) introspectERC20(ctx context.Context, client *ethclient.Client, token common.Address) error {
	contract := bind.NewBoundContract(token, erc20ABI, client, client, client)
	opts := &bind.CallOpts{Context: ctx}

	var nameOut []interface{}
	if err := contract.Call(opts, &nameOut, "name"); err != nil {
		return fmt.Errorf("name() call failed: %w", err)
	}
	name, ok := first[string](nameOut)
	if !ok || name == "" {
		return fmt.Errorf("name() returned an implausible value")
	}

	var symbolOut []interface{}
	if err := contract.Call(opts, &symbolOut, "symbol"); err != nil {
		return fmt.Errorf("symbol() call failed: %w", err)
	}
	symbol, ok := first[string](symbolOut)
	if !ok || symbol == "" {
		return fmt.Errorf("symbol() returned an implausible value")
	}

	var decimalsOut []interface{}
	if err := contract.Call(opts, &decimalsOut, "decimals"); err != nil {
		return fmt.Errorf("decimals() call failed: %w", err)
	}
	if _, ok := first[uint8](decimalsOut); !ok {
		return fmt.Errorf("decimals() returned an implausible value")
	}

	var supplyOut []interface{}
	if err := contract.Call(opts, &supplyOut, "totalSupply"); err != nil {
		return fmt.Errorf("totalSupply() call failed: %w", err)
	}
	supply, ok := first[*big.Int](supplyOut)
	if !ok || supply == nil {
		return fmt.Errorf("totalSupply() returned an implausible value")
	}

	return nil
}

func first[T any](out []interface{}) (T, bool) {
	var zero T
	if len(out) == 0 {
		return zero, false
	}
	v, ok := out[0].(T)
	return v, ok
}

func (v *Verifier) rpcFailure(achievementID string, err error) *submissions.ValidationResult {
	log.WithError(err).WithField("achievement", achievementID).Warn("RPC verification failure")
	metrics.ExternalFetchErrors.WithLabelValues("rpc").Inc()
	result := submissions.Retryable(
		"We couldn't verify the transaction right now.",
		"Make sure the transaction is mined and try again.",
	)
	result.Error = "rpc verification unavailable"
	return result
}
