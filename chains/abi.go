package chains

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// beacon contract interface shared by every deployment
const checkinAbiJson = `[
	{"inputs":[],"name":"activateBeacon","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"internalType":"address","name":"navigator","type":"address"}],"name":"canActivateToday","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"navigator","type":"address"}],"name":"getNavigatorMetrics","outputs":[{"internalType":"uint256","name":"totalBeacons","type":"uint256"},{"internalType":"uint256","name":"lastBeacon","type":"uint256"},{"internalType":"uint256","name":"currentStreak","type":"uint256"},{"internalType":"uint256","name":"nextResetTime","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getSystemMetrics","outputs":[{"internalType":"uint256","name":"totalActivations","type":"uint256"},{"internalType":"uint256","name":"totalNavigators","type":"uint256"},{"internalType":"uint256","name":"currentTax","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var checkinAbi abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(checkinAbiJson))
	if err != nil {
		panic("invalid check-in contract abi: " + err.Error())
	}
	checkinAbi = parsed
}

// CheckinAbi returns the parsed check-in contract interface.
func CheckinAbi() *abi.ABI {
	return &checkinAbi
}
