package decode

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const launchpadABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "tokenAddress", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "creator", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "name", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "symbol", "type": "string"},
      {"indexed": false, "internalType": "uint256", "name": "totalSupply", "type": "uint256"}
    ],
    "name": "TokenLaunched",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "tokenAddress", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "registrar", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "name", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "symbol", "type": "string"}
    ],
    "name": "ExternalTokenRegistered",
    "type": "event"
  }
]`

const poolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "buyer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokenAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "bnbAmount", "type": "uint256"}
    ],
    "name": "TokenPurchased",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "seller", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "tokenAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "bnbAmount", "type": "uint256"}
    ],
    "name": "TokenSold",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "reserveToken", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "reserveBNB", "type": "uint256"}
    ],
    "name": "ReservesSynced",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "token",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const erc20ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "spender", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Approval",
    "type": "event"
  }
]`

var (
	launchpadABI     abi.ABI
	launchpadABIOnce sync.Once
	launchpadABIErr  error

	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error

	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

// LaunchpadABI returns the parsed token launcher ABI.
func LaunchpadABI() (abi.ABI, error) {
	launchpadABIOnce.Do(func() {
		launchpadABI, launchpadABIErr = abi.JSON(strings.NewReader(launchpadABIJSON))
	})
	return launchpadABI, launchpadABIErr
}

// PoolABI returns the parsed bonding-curve pool ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}

// ERC20ABI returns the parsed ERC20 event ABI.
func ERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}
