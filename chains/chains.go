package chains

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

const (
	BaseChainId        = 8453
	SoneiumChainId     = 1868
	InkChainId         = 57073
	OptimismChainId    = 10
	LiskChainId        = 1135
	LineaChainId       = 59144
	BaseSepoliaChainId = 84532
)

// canonical Multicall3 deployment, same address on every supported network
var multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

var ErrUnknownChain = errors.New("unknown chain id")

type Currency struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Chain describes one supported network. Instances are immutable after init.
type Chain struct {
	Id               uint64
	Name             string
	LogoRef          string
	NativeCurrency   Currency
	RpcEndpoints     []string
	ExplorerUrl      string
	ContractAddress  common.Address
	MulticallAddress common.Address
	Testnet          bool
}

// PrimaryRpc returns the first configured endpoint.
// The remaining entries are fallbacks, in order of preference.
func (c Chain) PrimaryRpc() string {
	return c.RpcEndpoints[0]
}

// Enabled reports whether the check-in contract is deployed on this chain.
// Chains without a contract address are carried in the table but never
// listed or probed.
func (c Chain) Enabled() bool {
	return c.ContractAddress != (common.Address{}) && len(c.RpcEndpoints) > 0
}

var eth = Currency{Name: "Ethereum", Symbol: "ETH", Decimals: 18}

var supportedChains = map[uint64]Chain{
	BaseChainId: {
		Id:             BaseChainId,
		Name:           "Base",
		LogoRef:        "/assets/chains/base.png",
		NativeCurrency: eth,
		RpcEndpoints: []string{
			"https://mainnet.base.org",
			"https://base.llamarpc.com",
			"https://base-rpc.publicnode.com",
		},
		ExplorerUrl:      "https://basescan.org",
		ContractAddress:  contractAddress("BASE_CONTRACT_ADDRESS", "0x8A0043A965dF6683A71a87a4B8F33e64290eB3E7"),
		MulticallAddress: multicall3Address,
	},
	SoneiumChainId: {
		Id:             SoneiumChainId,
		Name:           "Soneium",
		LogoRef:        "/assets/chains/soneium.png",
		NativeCurrency: eth,
		RpcEndpoints: []string{
			"https://rpc.soneium.org",
			"https://soneium-mainnet.rpc.caldera.xyz/http",
		},
		ExplorerUrl:      "https://soneium.blockscout.com",
		ContractAddress:  contractAddress("SONEIUM_CONTRACT_ADDRESS", "0xc636516508f8798c1d5F019A2C73BD7442213D94"),
		MulticallAddress: multicall3Address,
	},
	InkChainId: {
		Id:             InkChainId,
		Name:           "Ink",
		LogoRef:        "/assets/chains/ink.png",
		NativeCurrency: eth,
		RpcEndpoints: []string{
			"https://rpc-gel.inkonchain.com",
			"https://rpc-qnd.inkonchain.com",
		},
		ExplorerUrl:      "https://explorer.inkonchain.com",
		ContractAddress:  contractAddress("INK_CONTRACT_ADDRESS", "0x02a9107Bf30a38fEddA30FB83cC01ff5b44dC935"),
		MulticallAddress: multicall3Address,
	},
	OptimismChainId: {
		Id:               OptimismChainId,
		Name:             "Optimism",
		LogoRef:          "/assets/chains/optimism.png",
		NativeCurrency:   eth,
		RpcEndpoints:     []string{"https://mainnet.optimism.io"},
		ExplorerUrl:      "https://optimistic.etherscan.io",
		ContractAddress:  contractAddress("OP_CONTRACT_ADDRESS", "0xa1Aa620CEb55448cd871c381457b87eFbFd34eA7"),
		MulticallAddress: multicall3Address,
	},
	LiskChainId: {
		Id:             LiskChainId,
		Name:           "Lisk",
		LogoRef:        "/assets/chains/lisk.png",
		NativeCurrency: eth,
		RpcEndpoints:   []string{"https://rpc.api.lisk.com"},
		ExplorerUrl:    "https://blockscout.lisk.com",
		// no public deployment yet, enabled via env override only
		ContractAddress:  contractAddress("LISK_CONTRACT_ADDRESS", ""),
		MulticallAddress: multicall3Address,
	},
	LineaChainId: {
		Id:               LineaChainId,
		Name:             "Linea",
		LogoRef:          "/assets/chains/linea.png",
		NativeCurrency:   eth,
		RpcEndpoints:     []string{"https://rpc.linea.build"},
		ExplorerUrl:      "https://lineascan.build",
		ContractAddress:  contractAddress("LINEA_CONTRACT_ADDRESS", ""),
		MulticallAddress: multicall3Address,
	},
	BaseSepoliaChainId: {
		Id:               BaseSepoliaChainId,
		Name:             "Base Sepolia",
		LogoRef:          "/assets/chains/base.png",
		NativeCurrency:   eth,
		RpcEndpoints:     []string{"https://sepolia.base.org"},
		ExplorerUrl:      "https://sepolia.basescan.org",
		ContractAddress:  contractAddress("BASE_SEPOLIA_CONTRACT_ADDRESS", "0xA55F30904bC3404AF50F652eAC686651E3dD9DF8"),
		MulticallAddress: multicall3Address,
		Testnet:          true,
	},
}

func contractAddress(envKey, fallback string) common.Address {
	if v := os.Getenv(envKey); v != "" {
		return common.HexToAddress(v)
	}
	if fallback == "" {
		return common.Address{}
	}
	return common.HexToAddress(fallback)
}

// Get returns the descriptor for a chain id.
func Get(chainId uint64) (Chain, error) {
	chain, ok := supportedChains[chainId]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %d", ErrUnknownChain, chainId)
	}
	return chain, nil
}

// List returns all enabled chains ordered by chain id.
// Testnets are excluded unless requested.
func List(includeTestnets bool) []Chain {
	out := make([]Chain, 0, len(supportedChains))
	for _, chain := range supportedChains {
		if !chain.Enabled() {
			continue
		}
		if chain.Testnet && !includeTestnets {
			continue
		}
		out = append(out, chain)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// Ids returns the enabled chain ids, ordered like List.
func Ids(includeTestnets bool) []uint64 {
	listed := List(includeTestnets)
	ids := make([]uint64, len(listed))
	for i, chain := range listed {
		ids[i] = chain.Id
	}
	return ids
}
