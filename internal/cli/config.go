package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/waterline/internal/compiler"
)

// configFile is the YAML form of the compiler options. Unset fields keep
// their defaults.
type configFile struct {
	BalanceReductions *bool   `yaml:"balance_reductions"`
	Rescaler          *string `yaml:"rescaler"`
	LazyRelinearize   *bool   `yaml:"lazy_relinearize"`
	SecurityLevel     *int    `yaml:"security_level"`
	QuantumSafe       *bool   `yaml:"quantum_safe"`
	WarnVecSize       *bool   `yaml:"warn_vec_size"`
	MaxChainLength    *int    `yaml:"max_chain_length"`
}

func (f configFile) options() map[string]string {
	m := make(map[string]string)
	setBool := func(key string, v *bool) {
		if v != nil {
			m[key] = strconv.FormatBool(*v)
		}
	}
	setInt := func(key string, v *int) {
		if v != nil {
			m[key] = strconv.Itoa(*v)
		}
	}
	setBool(compiler.KeyBalanceReductions, f.BalanceReductions)
	if f.Rescaler != nil {
		m[compiler.KeyRescaler] = *f.Rescaler
	}
	setBool(compiler.KeyLazyRelinearize, f.LazyRelinearize)
	setInt(compiler.KeySecurityLevel, f.SecurityLevel)
	setBool(compiler.KeyQuantumSafe, f.QuantumSafe)
	setBool(compiler.KeyWarnVecSize, f.WarnVecSize)
	setInt(compiler.KeyMaxChainLength, f.MaxChainLength)
	return m
}

// ParseConfigYAML decodes a YAML options document into an option map.
// Unknown fields are rejected.
func ParseConfigYAML(data []byte) (map[string]string, error) {
	var f configFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		// An empty document is an empty config.
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, &LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("parsing config: %v", err)}
	}
	return f.options(), nil
}

// LoadConfig builds the compiler config from an optional YAML file and
// key=value overrides applied on top of it.
func LoadConfig(path string, overrides []string) (compiler.Config, error) {
	options := map[string]string{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return compiler.Config{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading config: %v", err)}
		}
		if options, err = ParseConfigYAML(data); err != nil {
			return compiler.Config{}, err
		}
	}
	for _, kv := range overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return compiler.Config{}, &LoadError{Code: ErrCodeBadInput, Message: fmt.Sprintf("--set %q: expected key=value", kv)}
		}
		options[strings.TrimSpace(key)] = value
	}
	return compiler.ParseConfig(options)
}
