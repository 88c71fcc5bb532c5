package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ByteSize is a size expressed in a human-readable form like `100MB`.
type ByteSize float64

const (
	_           = iota
	KB ByteSize = 1 << (10 * iota)
	MB
	GB
	TB
)

var (
	bytesPattern   = regexp.MustCompile(`(?i)^(-?\d+(?:\.\d+)?)([KMGT]B?|B)$`)
	errInvalidSize = errors.New("wrong size format: must be a positive integer with a unit of measurement like M, MB, G, GB, T or TB")
)

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (ds *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	parts := bytesPattern.FindStringSubmatch(strings.TrimSpace(s))
	if len(parts) < 3 {
		return errInvalidSize
	}

	value, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || value <= 0 {
		return errInvalidSize
	}

	unit := strings.ToUpper(parts[2])
	switch unit[:1] {
	case "T":
		*ds = ByteSize(value) * TB
	case "G":
		*ds = ByteSize(value) * GB
	case "M":
		*ds = ByteSize(value) * MB
	case "K":
		*ds = ByteSize(value) * KB
	default:
		*ds = ByteSize(value)
	}

	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (ds ByteSize) MarshalYAML() (interface{}, error) {
	switch {
	case ds >= TB:
		return fmt.Sprintf("%gTB", float64(ds/TB)), nil
	case ds >= GB:
		return fmt.Sprintf("%gGB", float64(ds/GB)), nil
	case ds >= MB:
		return fmt.Sprintf("%gMB", float64(ds/MB)), nil
	case ds >= KB:
		return fmt.Sprintf("%gKB", float64(ds/KB)), nil
	}
	return fmt.Sprintf("%gB", float64(ds)), nil
}

// Duration wraps time.Duration for YAML parsing with `time.ParseDuration` syntax.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("wrong duration %q: %w", s, err)
	}
	if v < 0 {
		return fmt.Errorf("duration must be non-negative; got %q", s)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Networks is a list of IPNet entities
type Networks []*net.IPNet

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (n *Networks) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s []string
	if err := unmarshal(&s); err != nil {
		return err
	}
	networks := make(Networks, len(s))
	for i, s := range s {
		ipnet, err := stringToIPnet(s)
		if err != nil {
			return err
		}
		networks[i] = ipnet
	}
	*n = networks
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (n Networks) MarshalYAML() (interface{}, error) {
	s := make([]string, len(n))
	for i, ipnet := range n {
		s[i] = ipnet.String()
	}
	return s, nil
}

// Contains checks whether passed addr is in the range of networks.
// An empty list allows everything.
func (n Networks) Contains(addr string) bool {
	if len(n) == 0 {
		return true
	}

	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		h = addr
	}

	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}

	for _, ipnet := range n {
		if ipnet.Contains(ip) {
			return true
		}
	}

	return false
}
