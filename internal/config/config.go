// Package config loads config.yaml from the playat config dir.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playat/playat/common"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/spotify"
	"github.com/spf13/afero"
	yaml "go.yaml.in/yaml/v3"
)

const (
	FileName        = "config.yaml"
	appDirName      = "playat"
	defaultMaxConns = 64
)

// File is the on-disk shape of config.yaml. Unknown keys are rejected.
type File struct {
	// Device is the default device name; empty means active, else first.
	Device string `json:"device,omitempty"`
	// Activate is a shell line run before scheduled invocations.
	Activate string `json:"activate,omitempty"`
	// ToolTimeout bounds schtasks/at calls, e.g. "15s".
	ToolTimeout string `json:"tool_timeout,omitempty"`
	// SchtasksDateFormat is the locale's short date, e.g. "dd/MM/yyyy".
	SchtasksDateFormat string `json:"schtasks_date_format,omitempty"`
	APIBase            string `json:"api_base,omitempty"`
	Web                Web    `json:"web"`
}

type Web struct {
	Port      int  `json:"port,omitempty"`
	ListenAll bool `json:"listen_all,omitempty"`
	MaxConns  int  `json:"max_conns,omitempty"`
}

// Settings is File with defaults applied and values parsed.
type Settings struct {
	Dir                string
	Device             string
	Activate           string
	ToolTimeout        time.Duration
	SchtasksDateLayout string
	APIBase            string
	Port               int
	ListenAll          bool
	MaxConns           int
}

// JobsDir holds the schtasks wrapper scripts.
func (s *Settings) JobsDir() string {
	return filepath.Join(s.Dir, "jobs")
}

// Dir returns the config dir: $PLAYAT_CONFIG_DIR, else <user config dir>/playat.
func Dir() (string, error) {
	if d := strings.TrimSpace(os.Getenv(common.ConfigDirEnv)); d != "" {
		return filepath.Abs(d)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// Load reads dir/config.yaml from fsys. A missing file yields the defaults.
func Load(fsys afero.Fs, dir string) (*Settings, error) {
	path := filepath.Join(dir, FileName)
	var f File
	data, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := decode(data, &f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return f.settings(dir)
}

// decode unmarshals YAML through JSON so unknown keys can be refused.
func decode(data []byte, out *File) error {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("yaml unmarshal: %w", err)
	}
	if v == nil {
		return nil
	}
	j, err := json.Marshal(normalizeYAML(v))
	if err != nil {
		return fmt.Errorf("yaml->json marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(j))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = normalizeYAML(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}

func (f File) settings(dir string) (*Settings, error) {
	timeout, err := parseDurationOrDefault("tool_timeout", f.ToolTimeout, osched.DefaultToolTimeout)
	if err != nil {
		return nil, err
	}
	layout := osched.DefaultSchtasksDateLayout
	if f.SchtasksDateFormat != "" {
		if layout, err = DateLayout(f.SchtasksDateFormat); err != nil {
			return nil, err
		}
	}
	s := &Settings{
		Dir:                dir,
		Device:             strings.TrimSpace(f.Device),
		Activate:           strings.TrimSpace(f.Activate),
		ToolTimeout:        timeout,
		SchtasksDateLayout: layout,
		APIBase:            f.APIBase,
		Port:               f.Web.Port,
		ListenAll:          f.Web.ListenAll,
		MaxConns:           f.Web.MaxConns,
	}
	if s.APIBase == "" {
		s.APIBase = spotify.DefaultBaseURL
	}
	if s.Port == 0 {
		s.Port = common.DefaultPort
	}
	if s.Port < 1 || s.Port > 65535 {
		return nil, fmt.Errorf("web.port: %d out of range", s.Port)
	}
	if s.MaxConns <= 0 {
		s.MaxConns = defaultMaxConns
	}
	return s, nil
}

func parseDurationOrDefault(key, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be > 0", key)
	}
	return d, nil
}

// DateLayout converts a schtasks-style date pattern (yyyy, MM, dd and
// separators) into a Go time layout.
func DateLayout(pattern string) (string, error) {
	r := strings.NewReplacer("yyyy", "2006", "MM", "01", "dd", "02")
	layout := r.Replace(pattern)
	if !strings.Contains(layout, "2006") || !strings.Contains(layout, "01") || !strings.Contains(layout, "02") {
		return "", fmt.Errorf("schtasks_date_format: %q needs yyyy, MM and dd", pattern)
	}
	if strings.ContainsAny(strings.NewReplacer("2006", "", "01", "", "02", "").Replace(layout), "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return "", fmt.Errorf("schtasks_date_format: unsupported token in %q", pattern)
	}
	return layout, nil
}
