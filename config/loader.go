package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configurable represents a type that can be configured via flags and config files.
type Configurable interface {
	// AddFlags should add command-line flags to the provided FlagSet
	AddFlags(fs *pflag.FlagSet)
}

// ConfigLoader provides common configuration loading functionality.
type ConfigLoader struct {
	configFile   string
	defaults     map[string]any
	preserveFile bool
	strictMode   bool
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		defaults:     make(map[string]any),
		preserveFile: true,
		strictMode:   false,
	}
}

// SetConfigFile sets the configuration file path.
func (cl *ConfigLoader) SetConfigFile(configFile string) {
	cl.configFile = configFile
}

// SetDefault sets a default value for a configuration key.
func (cl *ConfigLoader) SetDefault(key string, value any) {
	cl.defaults[key] = value
}

// SetDefaults sets multiple default values at once.
func (cl *ConfigLoader) SetDefaults(defaults map[string]any) {
	for key, value := range defaults {
		cl.defaults[key] = value
	}
}

// SetStrictMode enables or disables strict mode for configuration validation.
// In strict mode, unknown configuration fields will cause an error.
func (cl *ConfigLoader) SetStrictMode(strict bool) {
	cl.strictMode = strict
}

// LoadConfig loads configuration using the flags registered on pflag.CommandLine.
func (cl *ConfigLoader) LoadConfig(config any) error {
	return cl.LoadConfigWithFlagSet(config, pflag.CommandLine)
}

// LoadConfigWithFlagSet loads configuration with proper precedence: defaults < config file < explicit flags.
// The config parameter should be a pointer to the configuration struct to populate.
func (cl *ConfigLoader) LoadConfigWithFlagSet(config any, fs *pflag.FlagSet) error {
	v := viper.New()

	for key, value := range cl.defaults {
		v.SetDefault(key, value)
	}

	if cl.configFile != "" {
		if err := cl.readConfigFile(v); err != nil {
			return err
		}
	}

	// Only flags the user actually set override the config file. Flag names
	// are used as keys unchanged, so --mqtt.client-id lands on the
	// client-id key of the [mqtt] table.
	if fs != nil {
		fs.Visit(func(flag *pflag.Flag) {
			v.Set(flag.Name, flagValue(flag))
		})
	}

	if cl.strictMode {
		if err := cl.decodeStrict(v, config); err != nil {
			return err
		}
	} else {
		if err := v.Unmarshal(config); err != nil {
			return fmt.Errorf("%w: %v", ErrConfigUnmarshal, err)
		}
	}

	// viper knows nothing about the file it was read from
	if cl.preserveFile && cl.configFile != "" {
		if err := cl.setConfigFileField(config, cl.configFile); err != nil {
			return err
		}
	}

	return nil
}

// readConfigFile reads the config file into v after expanding environment
// variable references. References to unset variables are left as written,
// and $$ stands for a literal $.
func (cl *ConfigLoader) readConfigFile(v *viper.Viper) error {
	content, err := os.ReadFile(cl.configFile)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrConfigFileRead, cl.configFile, err)
	}

	configType := strings.TrimPrefix(filepath.Ext(cl.configFile), ".")
	if configType == "" {
		configType = "toml"
	}
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(expandEnv(content))); err != nil {
		return fmt.Errorf("%w %s: %v", ErrConfigFileRead, cl.configFile, err)
	}
	return nil
}

var envReference = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnv(content []byte) []byte {
	return envReference.ReplaceAllFunc(content, func(ref []byte) []byte {
		if string(ref) == "$$" {
			return []byte("$")
		}
		name := strings.Trim(string(ref), "${}")
		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		return ref
	})
}

func (cl *ConfigLoader) decodeStrict(v *viper.Viper, config any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		ErrorUnused:      true,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create decoder: %v", ErrConfigUnmarshal, err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		if cl.configFile != "" {
			// Unused key errors name the top level as ''; name the file instead
			errStr := err.Error()
			if strings.Contains(errStr, "has invalid keys:") {
				enhancedErr := strings.Replace(errStr, "* ''", fmt.Sprintf("* '%s'", cl.configFile), 1)
				return fmt.Errorf("%w: %s", ErrConfigUnmarshal, enhancedErr)
			}
		}
		return fmt.Errorf("%w: %v", ErrConfigUnmarshal, err)
	}
	return nil
}

// flagValue returns the typed value of a flag, so that viper sees an int
// for --relay=2 rather than the string "2".
func flagValue(flag *pflag.Flag) any {
	str := flag.Value.String()

	switch flag.Value.Type() {
	case "uint", "uint8", "uint16", "uint32", "uint64":
		if val, err := strconv.ParseUint(str, 10, 64); err == nil {
			return val
		}
	case "int", "int8", "int16", "int32", "int64":
		if val, err := strconv.ParseInt(str, 10, 64); err == nil {
			return val
		}
	case "bool":
		if val, err := strconv.ParseBool(str); err == nil {
			return val
		}
	case "float32", "float64":
		if val, err := strconv.ParseFloat(str, 64); err == nil {
			return val
		}
	case "stringSlice", "stringArray":
		if sliceFlag, ok := flag.Value.(pflag.SliceValue); ok {
			return sliceFlag.GetSlice()
		}
	}

	return str
}

// setConfigFileField sets a ConfigFile field on the config struct, if it has one.
func (cl *ConfigLoader) setConfigFileField(config any, configFile string) error {
	v := reflect.ValueOf(config)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("%w: got %T", ErrConfigNotPointer, config)
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %s", ErrConfigNotStruct, v.Kind())
	}

	field := v.FieldByName("ConfigFile")
	if !field.IsValid() {
		return nil
	}

	if !field.CanSet() {
		return fmt.Errorf("%w: ConfigFile", ErrConfigFieldNotSet)
	}

	if field.Kind() != reflect.String {
		return fmt.Errorf("%w: ConfigFile is %s", ErrConfigFieldNotString, field.Kind())
	}

	field.SetString(configFile)
	return nil
}
