// Package codes holds the session codes handed out by the lab portal and
// their codes.json representation.
package codes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// DefaultFile is where the extractor writes and the other tools read.
const DefaultFile = "codes.json"

// Keys lists the codes.json keys in the order they are written.
var Keys = []string{
	"clientPublicAddress",
	"clientListeningPort",
	"serverListeningPort",
	"echoRequestCode",
	"imageRequestCode",
	"soundRequestCode",
}

// Value is either an integer or a string, as found on the portal page.
type Value struct {
	str     string
	num     int64
	numeric bool
}

// ParseValue keeps s as a string unless it is made only of decimal digits.
func ParseValue(s string) Value {
	if !isDecimal(s) {
		return Value{str: s}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Too many digits for an int64.
		return Value{str: s}
	}
	return Value{num: n, numeric: true}
}

// Int returns a Value holding n.
func Int(n int64) Value { return Value{num: n, numeric: true} }

// String returns a Value holding s without any coercion.
func String(s string) Value { return Value{str: s} }

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (v Value) IsInt() bool { return v.numeric }

// Int reports the integer held by v.
func (v Value) Int() (int64, bool) { return v.num, v.numeric }

func (v Value) String() string {
	if v.numeric {
		return strconv.FormatInt(v.num, 10)
	}
	return v.str
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.numeric != o.numeric {
		return false
	}
	if v.numeric {
		return v.num == o.num
	}
	return v.str == o.str
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return []byte(strconv.FormatInt(v.num, 10)), nil
	}
	return json.Marshal(v.str)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{str: s}
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("code value %s is neither a string nor an integer", data)
	}
	*v = Value{num: n, numeric: true}
	return nil
}

// Codes is the content of codes.json.
type Codes struct {
	ClientPublicAddress Value `json:"clientPublicAddress"`
	ClientListeningPort Value `json:"clientListeningPort"`
	ServerListeningPort Value `json:"serverListeningPort"`
	EchoRequestCode     Value `json:"echoRequestCode"`
	ImageRequestCode    Value `json:"imageRequestCode"`
	SoundRequestCode    Value `json:"soundRequestCode"`
}

// FromFields builds Codes from the six positional values scraped from the
// portal, in the order of Keys.
func FromFields(fields []string) (Codes, error) {
	if len(fields) != len(Keys) {
		return Codes{}, fmt.Errorf("expected %d code fields, got %d", len(Keys), len(fields))
	}
	return Codes{
		ClientPublicAddress: ParseValue(fields[0]),
		ClientListeningPort: ParseValue(fields[1]),
		ServerListeningPort: ParseValue(fields[2]),
		EchoRequestCode:     ParseValue(fields[3]),
		ImageRequestCode:    ParseValue(fields[4]),
		SoundRequestCode:    ParseValue(fields[5]),
	}, nil
}

// Map returns the codes keyed by their codes.json names.
func (c Codes) Map() map[string]Value {
	return map[string]Value{
		"clientPublicAddress": c.ClientPublicAddress,
		"clientListeningPort": c.ClientListeningPort,
		"serverListeningPort": c.ServerListeningPort,
		"echoRequestCode":     c.EchoRequestCode,
		"imageRequestCode":    c.ImageRequestCode,
		"soundRequestCode":    c.SoundRequestCode,
	}
}

func (c Codes) ClientPort() (int, error) {
	return port("clientListeningPort", c.ClientListeningPort)
}

func (c Codes) ServerPort() (int, error) {
	return port("serverListeningPort", c.ServerListeningPort)
}

func port(name string, v Value) (int, error) {
	n, ok := v.Int()
	if !ok {
		parsed := ParseValue(v.String())
		if n, ok = parsed.Int(); !ok {
			return 0, fmt.Errorf("%s is not a port number: %q", name, v.String())
		}
	}
	if n <= 0 || n > 65535 {
		return 0, fmt.Errorf("%s out of range: %d", name, n)
	}
	return int(n), nil
}

func Decode(r io.Reader) (Codes, error) {
	var c Codes
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Codes{}, fmt.Errorf("decoding codes: %w", err)
	}
	return c, nil
}

func Encode(w io.Writer, c Codes) error {
	return json.NewEncoder(w).Encode(c)
}

// Load reads a codes.json file.
func Load(path string) (Codes, error) {
	f, err := os.Open(path)
	if err != nil {
		return Codes{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Save writes c to path, replacing any previous content.
func Save(path string, c Codes) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, c); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
