package multicall

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Multicall3 tryAggregate, deployed at the same address on every supported chain.
const multicall3AbiJson = `[
	{"inputs":[{"internalType":"bool","name":"requireSuccess","type":"bool"},{"components":[{"internalType":"address","name":"target","type":"address"},{"internalType":"bytes","name":"callData","type":"bytes"}],"internalType":"struct Multicall3.Call[]","name":"calls","type":"tuple[]"}],"name":"tryAggregate","outputs":[{"components":[{"internalType":"bool","name":"success","type":"bool"},{"internalType":"bytes","name":"returnData","type":"bytes"}],"internalType":"struct Multicall3.Result[]","name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"}
]`

var multicall3Abi abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(multicall3AbiJson))
	if err != nil {
		panic("invalid multicall3 abi: " + err.Error())
	}
	multicall3Abi = parsed
}

// Caller is the read-only connection the aggregate call is executed on.
// *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Call struct {
	Method   string         `json:"method"`
	Target   common.Address `json:"target"`
	CallData []byte         `json:"call_data"`
	ABI      *abi.ABI
	output   interface{}
}

type CallResponse struct {
	Success       bool
	ReturnDataRaw []byte `json:"returnData"`
}

type MultiCaller struct {
	caller            Caller
	aggregatorAddress common.Address
	calls             []Call
}

func NewMultiCaller(caller Caller, aggregatorAddress common.Address) *MultiCaller {
	return &MultiCaller{
		caller:            caller,
		aggregatorAddress: aggregatorAddress,
	}
}

func (caller *MultiCaller) AddCall(targetAddress common.Address, contractAbi *abi.ABI, output interface{}, method string, args ...interface{}) error {
	callData, err := contractAbi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("error adding call [%s]: %w", method, err)
	}

	caller.calls = append(caller.calls, Call{
		Method:   method,
		Target:   targetAddress,
		CallData: callData,
		ABI:      contractAbi,
		output:   output,
	})
	return nil
}

func (caller *MultiCaller) Execute(ctx context.Context, requireSuccess bool) ([]CallResponse, error) {
	type aggregateCall struct {
		Target   common.Address `json:"target"`
		CallData []byte         `json:"callData"`
	}

	aggregateCalls := make([]aggregateCall, 0, len(caller.calls))
	for _, call := range caller.calls {
		aggregateCalls = append(aggregateCalls, aggregateCall{Target: call.Target, CallData: call.CallData})
	}

	callData, err := multicall3Abi.Pack("tryAggregate", requireSuccess, aggregateCalls)
	if err != nil {
		return nil, errors.Join(errors.New("error packing tryAggregate call"), err)
	}

	resp, err := caller.caller.CallContract(ctx, ethereum.CallMsg{To: &caller.aggregatorAddress, Data: callData}, nil)
	if err != nil {
		return nil, err
	}

	responses, err := multicall3Abi.Unpack("tryAggregate", resp)
	if err != nil {
		return nil, err
	}

	results := make([]CallResponse, len(caller.calls))
	for i, response := range responses[0].([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	}) {
		results[i].ReturnDataRaw = response.ReturnData
		results[i].Success = response.Success && len(response.ReturnData) > 0
	}
	return results, nil
}

// ExecuteAndParseCalldata runs the queued calls and unpacks each successful
// result into the output the call was added with. The queue is cleared either way.
func (caller *MultiCaller) ExecuteAndParseCalldata(ctx context.Context, requireSuccess bool) ([]CallResponse, error) {
	results, err := caller.Execute(ctx, requireSuccess)
	if err != nil {
		caller.calls = []Call{}
		return results, err
	}

	for i, call := range caller.calls {
		if !results[i].Success {
			continue
		}
		err := call.ABI.UnpackIntoInterface(call.output, call.Method, results[i].ReturnDataRaw)
		if err != nil {
			caller.calls = []Call{}
			return results, err
		}
	}
	caller.calls = []Call{}
	return results, err
}
