package catalog

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Kind is the expected submission kind for an achievement.
type Kind string

const (
	KindQuiz        Kind = "quiz"
	KindTransaction Kind = "transaction"
	KindContract    Kind = "contract"
	KindSecret      Kind = "secret"
)

// CheckFamily selects the on-chain verification strategy for transaction
// and contract achievements.
type CheckFamily string

const (
	CheckGeneric          CheckFamily = "generic"
	CheckTokenCreation    CheckFamily = "token_creation"
	CheckStaking          CheckFamily = "staking"
	CheckNFTCollection    CheckFamily = "nft_collection"
	CheckRNG              CheckFamily = "rng"
	CheckUpgradeableProxy CheckFamily = "upgradeable_proxy"
)

// Achievement describes one entry in the static registry. The task code is
// both the on-chain badge token id and the EIP-712 voucher field.
type Achievement struct {
	ID           string
	Title        string
	TaskCode     int64
	Kind         Kind
	PassingScore float64 // quiz only; percent, used when the bank entry carries none

	// transaction/contract achievements
	Check            CheckFamily
	FactoryAddresses map[int64]common.Address // token_creation: known factory per chain
}

// Registry is the static achievement catalog. Achievements are immutable and
// keyed by their zero-padded numeric id.
type Registry struct {
	achievements map[string]*Achievement
}

// NewRegistry builds the registry with the built-in achievement set.
func NewRegistry() *Registry {
	r := &Registry{achievements: make(map[string]*Achievement)}

	for _, a := range builtin {
		r.achievements[a.ID] = a
	}

	return r
}

// Get returns the achievement for an id, or an error if unknown.
func (r *Registry) Get(id string) (*Achievement, error) {
	a, ok := r.achievements[id]
	if !ok {
		return nil, fmt.Errorf("unknown achievement: %s", id)
	}
	return a, nil
}

// All returns every achievement ordered by id.
func (r *Registry) All() []*Achievement {
	out := make([]*Achievement, 0, len(r.achievements))
	for _, a := range r.achievements {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TaskCode derives the numeric task code from a zero-padded achievement id.
func TaskCode(id string) (int64, error) {
	code, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("achievement id %q is not numeric: %w", id, err)
	}
	return code, nil
}

var builtin = []*Achievement{
	{
		ID:           "0001",
		Title:        "Blockchain Fundamentals",
		TaskCode:     1,
		Kind:         KindQuiz,
		PassingScore: 80,
	},
	{
		ID:           "0002",
		Title:        "Smart Contract Basics",
		TaskCode:     2,
		Kind:         KindQuiz,
		PassingScore: 70,
	},
	{
		ID:       "0003",
		Title:    "First Transaction",
		TaskCode: 3,
		Kind:     KindTransaction,
		Check:    CheckGeneric,
	},
	{
		ID:       "0004",
		Title:    "Launch Your Token",
		TaskCode: 4,
		Kind:     KindTransaction,
		Check:    CheckTokenCreation,
		FactoryAddresses: map[int64]common.Address{
			11155111: common.HexToAddress("0x3f84E3a4B8f1b6B9D1c7a2E5D9F0c4A6B7E8D9F0"),
			84532:    common.HexToAddress("0x9aC2d5F1E3B4c6D8A0b1C2d3E4F5a6B7c8D9E0F1"),
		},
	},
	{
		ID:       "0005",
		Title:    "Stake Your Claim",
		TaskCode: 5,
		Kind:     KindTransaction,
		Check:    CheckStaking,
	},
	{
		ID:       "0006",
		Title:    "Mint a Collection",
		TaskCode: 6,
		Kind:     KindTransaction,
		Check:    CheckNFTCollection,
	},
	{
		ID:       "0007",
		Title:    "Provably Random",
		TaskCode: 7,
		Kind:     KindTransaction,
		Check:    CheckRNG,
	},
	{
		ID:       "0008",
		Title:    "Upgrade Path",
		TaskCode: 8,
		Kind:     KindContract,
		Check:    CheckUpgradeableProxy,
	},
	{
		ID:       "1001",
		Title:    "Hidden Treasure",
		TaskCode: 1001,
		Kind:     KindSecret,
	},
	{
		ID:       "1002",
		Title:    "Launch Week",
		TaskCode: 1002,
		Kind:     KindSecret,
	},
}
