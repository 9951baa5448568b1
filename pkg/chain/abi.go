package chain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Param is a single typed parameter of a contract method.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Function describes one callable contract method. The descriptor set is
// static for the process lifetime and doubles as the JSON ABI handed to the
// encoding layer.
type Function struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Inputs          []Param `json:"inputs"`
	Outputs         []Param `json:"outputs,omitempty"`
	StateMutability string  `json:"stateMutability,omitempty"`
}

// FindFunction returns the first descriptor whose name matches.
func FindFunction(fns []Function, name string) (*Function, bool) {
	for i := range fns {
		if fns[i].Name == name {
			return &fns[i], true
		}
	}
	return nil, false
}

// ParseABI converts the descriptor set into a go-ethereum ABI so calls can
// be packed.
func ParseABI(fns []Function) (abi.ABI, error) {
	raw, err := json.Marshal(fns)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to marshal ABI descriptors: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return parsed, nil
}

// OrderArgs maps the name-keyed argument values onto the method's input
// order and converts each to the Go type the encoder expects. Argument
// names must exactly match the ABI input names.
func OrderArgs(fn *Function, args map[string]string) ([]interface{}, error) {
	ordered := make([]interface{}, 0, len(fn.Inputs))
	for _, in := range fn.Inputs {
		raw, ok := args[in.Name]
		if !ok {
			return nil, fmt.Errorf("missing argument %q for method %q", in.Name, fn.Name)
		}
		val, err := convertArg(in.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", in.Name, err)
		}
		ordered = append(ordered, val)
	}
	return ordered, nil
}

func convertArg(abiType, raw string) (interface{}, error) {
	switch {
	case abiType == "address":
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(raw), nil
	case abiType == "string":
		return raw, nil
	case abiType == "bool":
		switch strings.ToLower(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool %q", raw)
	case strings.HasPrefix(abiType, "uint") || strings.HasPrefix(abiType, "int"):
		return convertInt(abiType, raw)
	default:
		return nil, fmt.Errorf("unsupported ABI type %q", abiType)
	}
}

// convertInt produces the Go value the encoder expects for the ABI integer
// width: native integers for the exact 8/16/32/64-bit widths, *big.Int for
// everything else (uint24, uint128, uint256, ...).
func convertInt(abiType, raw string) (interface{}, error) {
	signed := !strings.HasPrefix(abiType, "uint")
	widthStr := strings.TrimPrefix(abiType, "uint")
	if signed {
		widthStr = strings.TrimPrefix(abiType, "int")
	}

	width := 256 // bare uint/int is an alias for the 256-bit width
	if widthStr != "" {
		w, err := strconv.Atoi(widthStr)
		if err != nil || w <= 0 || w > 256 || w%8 != 0 {
			return nil, fmt.Errorf("unsupported ABI type %q", abiType)
		}
		width = w
	}

	switch width {
	case 8, 16, 32, 64:
	default:
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return v, nil
	}

	if signed {
		v, err := strconv.ParseInt(raw, 10, width)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", abiType, raw)
		}
		switch width {
		case 8:
			return int8(v), nil
		case 16:
			return int16(v), nil
		case 32:
			return int32(v), nil
		default:
			return v, nil
		}
	}

	v, err := strconv.ParseUint(raw, 10, width)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", abiType, raw)
	}
	switch width {
	case 8:
		return uint8(v), nil
	case 16:
		return uint16(v), nil
	case 32:
		return uint32(v), nil
	default:
		return v, nil
	}
}
