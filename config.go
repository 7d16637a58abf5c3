package wasm2rs

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultMaxPages is the page ceiling used for a module whose memory
// declares no maximum, matching herkos's CLI default (16 MiB).
const DefaultMaxPages = 256

// Options configures a Transpile call. It mirrors the YAML shape the CLI's
// --config flag loads via viper: max_pages, mode.
type Options struct {
	// MaxPages is the page ceiling assumed for a memory with no declared
	// maximum. Zero means DefaultMaxPages.
	MaxPages int

	// Mode selects the code generation backend. Only "safe" exists today
	// (RustBackend); the field exists because herkos's own CLI exposes an
	// equivalent switch for a verified/unsafe backend this repository does
	// not implement.
	Mode string
}

// withDefaults returns a copy of o with zero-valued fields replaced by
// their defaults.
func (o Options) withDefaults() Options {
	if o.MaxPages == 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Mode == "" {
		o.Mode = "safe"
	}
	return o
}

// LoadOptions reads Options from a YAML config file at path using viper,
// the config stack open-policy-agent-opa uses for exactly this "YAML file,
// flags override" shape.
func LoadOptions(path string) (Options, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Options{}, errors.Wrapf(err, "reading config %s", path)
	}

	opts := Options{
		MaxPages: v.GetInt("max_pages"),
		Mode:     v.GetString("mode"),
	}
	return opts, nil
}

// validMode reports whether mode names a supported codegen backend.
func validMode(mode string) bool {
	return strings.EqualFold(mode, "safe")
}
