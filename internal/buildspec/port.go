// SPDX-License-Identifier: MPL-2.0

package buildspec

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidPort is wrapped by ParsePort failures.
var ErrInvalidPort = errors.New("invalid port")

// ParsePort accepts a bare port number or a "port/protocol" string.
// The protocol defaults to tcp.
func ParsePort(v any) (Port, error) {
	switch n := v.(type) {
	case string:
		return parsePortString(n)
	case *big.Int:
		if !n.IsInt64() {
			return Port{}, fmt.Errorf("%w: %s out of range 1-65535", ErrInvalidPort, n)
		}
		return newPort(n.Int64(), ProtocolTCP)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return newPort(rv.Int(), ProtocolTCP)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > 65535 {
			return Port{}, fmt.Errorf("%w: %d out of range 1-65535", ErrInvalidPort, rv.Uint())
		}
		return newPort(int64(rv.Uint()), ProtocolTCP)
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != float64(int64(f)) {
			return Port{}, fmt.Errorf("%w: %v is not an integer", ErrInvalidPort, f)
		}
		return newPort(int64(f), ProtocolTCP)
	default:
		return Port{}, fmt.Errorf("%w: unsupported value %v (%T)", ErrInvalidPort, v, v)
	}
}

func parsePortString(s string) (Port, error) {
	num, proto, hasProto := strings.Cut(strings.TrimSpace(s), "/")
	p := ProtocolTCP
	if hasProto {
		p = Protocol(strings.ToLower(proto))
		if p != ProtocolTCP && p != ProtocolUDP {
			return Port{}, fmt.Errorf("%w: protocol %q must be tcp or udp", ErrInvalidPort, proto)
		}
	}
	n, err := strconv.ParseInt(num, 10, 32)
	if err != nil {
		return Port{}, fmt.Errorf("%w: %q is not a number", ErrInvalidPort, num)
	}
	return newPort(n, p)
}

func newPort(n int64, p Protocol) (Port, error) {
	if n < 1 || n > 65535 {
		return Port{}, fmt.Errorf("%w: %d out of range 1-65535", ErrInvalidPort, n)
	}
	return Port{Number: uint16(n), Protocol: p}, nil
}

// portHook lets mapstructure decode exposed_ports entries into Port values.
func portHook() mapstructure.DecodeHookFuncType {
	portType := reflect.TypeFor[Port]()
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != portType {
			return data, nil
		}
		return ParsePort(data)
	}
}
