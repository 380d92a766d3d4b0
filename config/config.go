// Package config loads application and depth of field settings from a yaml file and
// BOKEH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bokeh-gl/dof"

	"github.com/spf13/viper"
)

const EnvPrefix = "BOKEH"

type Config struct {
	Window  WindowConfig  `mapstructure:"window"`
	Log     LogConfig     `mapstructure:"log"`
	DoF     DoFConfig     `mapstructure:"dof"`
	Shape   ShapeConfig   `mapstructure:"shape"`
	Shaders ShadersConfig `mapstructure:"shaders"`
	Tonemap TonemapConfig `mapstructure:"tonemap"`
	// Backend of the offline renderer: sw, gl or cl
	Backend string `mapstructure:"backend"`
}

type WindowConfig struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	VSync  bool   `mapstructure:"vsync"`
	// Scale of the synthetic scene resolution relative to the window
	SceneScale float32 `mapstructure:"scene_scale"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DoFConfig mirrors dof.Params with the blur strategy by name.
type DoFConfig struct {
	NearStart        float32 `mapstructure:"near_start"`
	NearEnd          float32 `mapstructure:"near_end"`
	FarStart         float32 `mapstructure:"far_start"`
	FarEnd           float32 `mapstructure:"far_end"`
	MaxCoCRadius     float32 `mapstructure:"max_coc_radius"`
	MaxBokehRadius   float32 `mapstructure:"max_bokeh_radius"`
	NSamples         int     `mapstructure:"samples"`
	LumThreshold     float32 `mapstructure:"lum_threshold"`
	CoCThreshold     float32 `mapstructure:"coc_threshold"`
	BokehDepthCutoff float32 `mapstructure:"bokeh_depth_cutoff"`
	Blur             string  `mapstructure:"blur"`
}

type ShapeConfig struct {
	// Path of the bokeh mask image, empty uses the built in hexagon
	Path string `mapstructure:"path"`
	// Size rescales the mask to size x size, 0 keeps it
	Size int `mapstructure:"size"`
}

type ShadersConfig struct {
	// Dir overrides the embedded shaders, empty uses them
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

type TonemapConfig struct {
	Exposure float32 `mapstructure:"exposure"`
	Gamma    float32 `mapstructure:"gamma"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title:      "Bokeh Depth of Field",
			Width:      1280,
			Height:     720,
			VSync:      true,
			SceneScale: 0.5,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		DoF: FromParams(dof.DefaultParams()),
		Shape: ShapeConfig{
			Size: 64,
		},
		Tonemap: TonemapConfig{
			Exposure: 1,
			Gamma:    2.2,
		},
		Backend: "sw",
	}
}

func FromParams(p dof.Params) DoFConfig {
	return DoFConfig{
		NearStart:        p.NearStart,
		NearEnd:          p.NearEnd,
		FarStart:         p.FarStart,
		FarEnd:           p.FarEnd,
		MaxCoCRadius:     p.MaxCoCRadius,
		MaxBokehRadius:   p.MaxBokehRadius,
		NSamples:         p.NSamples,
		LumThreshold:     p.LumThreshold,
		CoCThreshold:     p.CoCThreshold,
		BokehDepthCutoff: p.BokehDepthCutoff,
		Blur:             p.Blur.String(),
	}
}

func (c DoFConfig) ToParams() (dof.Params, error) {
	blur, err := dof.ParseBlurStrategy(c.Blur)
	if err != nil {
		return dof.Params{}, err
	}
	return dof.Params{
		NearStart:        c.NearStart,
		NearEnd:          c.NearEnd,
		FarStart:         c.FarStart,
		FarEnd:           c.FarEnd,
		MaxCoCRadius:     c.MaxCoCRadius,
		MaxBokehRadius:   c.MaxBokehRadius,
		NSamples:         c.NSamples,
		LumThreshold:     c.LumThreshold,
		CoCThreshold:     c.CoCThreshold,
		BokehDepthCutoff: c.BokehDepthCutoff,
		Blur:             blur,
	}, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers every key, which also makes AutomaticEnv see them on Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
}

func flatten(cfg *Config) map[string]any {
	return map[string]any{
		"window.title":           cfg.Window.Title,
		"window.width":           cfg.Window.Width,
		"window.height":          cfg.Window.Height,
		"window.vsync":           cfg.Window.VSync,
		"window.scene_scale":     cfg.Window.SceneScale,
		"log.level":              cfg.Log.Level,
		"log.pretty":             cfg.Log.Pretty,
		"dof.near_start":         cfg.DoF.NearStart,
		"dof.near_end":           cfg.DoF.NearEnd,
		"dof.far_start":          cfg.DoF.FarStart,
		"dof.far_end":            cfg.DoF.FarEnd,
		"dof.max_coc_radius":     cfg.DoF.MaxCoCRadius,
		"dof.max_bokeh_radius":   cfg.DoF.MaxBokehRadius,
		"dof.samples":            cfg.DoF.NSamples,
		"dof.lum_threshold":      cfg.DoF.LumThreshold,
		"dof.coc_threshold":      cfg.DoF.CoCThreshold,
		"dof.bokeh_depth_cutoff": cfg.DoF.BokehDepthCutoff,
		"dof.blur":               cfg.DoF.Blur,
		"shape.path":             cfg.Shape.Path,
		"shape.size":             cfg.Shape.Size,
		"shaders.dir":            cfg.Shaders.Dir,
		"shaders.watch":          cfg.Shaders.Watch,
		"tonemap.exposure":       cfg.Tonemap.Exposure,
		"tonemap.gamma":          cfg.Tonemap.Gamma,
		"backend":                cfg.Backend,
	}
}

// Load reads the config file at path. An empty path searches bokeh.yaml in the working
// directory and the user config directory; not finding one there is not an error.
// Environment variables like BOKEH_DOF_FAR_START override the file.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bokeh")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "bokeh-gl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	if _, err := cfg.DoF.ToParams(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as yaml to path.
func Save(cfg *Config, path string) error {
	v := viper.New()
	for key, value := range flatten(cfg) {
		v.Set(key, value)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}
