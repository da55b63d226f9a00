package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dm-vev/canopy/sim"
	"github.com/dm-vev/canopy/sim/field"
	"github.com/dm-vev/canopy/sim/terrain"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml"
)

// UserConfig is the user configuration of a forest run. It is read from and
// written to a TOML file and converted to a sim.Config by calling
// UserConfig.Config().
type UserConfig struct {
	Simulation struct {
		// Seed seeds the run. Decimal numbers are used as is, any other text is
		// hashed. An empty seed means 0.
		Seed string
		// MaxSteps is the largest number of steps a run may take.
		MaxSteps int `validate:"gte=1"`
		// StepsPerTick is the number of forest ticks per step.
		StepsPerTick int `validate:"gte=1"`
		// StagnationLimit is the number of steps a tree may go without growing
		// before it is considered done.
		StagnationLimit int `validate:"gte=1"`
	}
	Terrain struct {
		// Scale is the horizontal wavelength divisor of the terrain. Larger
		// values give broader hills.
		Scale float64 `validate:"gt=0"`
		// HeightAmplitude is the vertical amplitude of the terrain.
		HeightAmplitude float64 `validate:"gt=0"`
		// Sun is the position of the sun as [x, y, z].
		Sun []float64 `validate:"len=3"`
	}
	Field struct {
		// Candidates is the number of grid cells sampled for attraction points.
		Candidates int `validate:"gte=4"`
		// AreaSize is the half-width of the square area points are spread over.
		AreaSize float64 `validate:"gt=0"`
		// TrunkHeight lifts every point above the ground.
		TrunkHeight float64 `validate:"gte=0"`
		// MinHeight and MaxHeight bound the extra height of points above ground
		// plus trunk height.
		MinHeight float64 `validate:"gte=0"`
		MaxHeight float64 `validate:"gtefield=MinHeight"`
		// Contrast sharpens the preference of points for well lit ground.
		Contrast float64 `validate:"gt=0"`
		// KeepRatio is the largest share of candidates kept as points.
		KeepRatio float64 `validate:"gt=0,lte=1"`
	}
	Trees struct {
		// Count is the number of trees planted on a square grid.
		Count int `validate:"gte=1,lte=4096"`
		// Spacing is the distance between neighbouring trees.
		Spacing float64 `validate:"gt=0"`
		// TrunkHeights are assigned to trees in turn.
		TrunkHeights []float64 `validate:"min=1,dive,gt=0"`
		// InfluenceRadius is the distance within which a point pulls on a node.
		InfluenceRadius float64 `validate:"gt=0"`
		// KillRadius is the distance within which a node claims a point.
		KillRadius float64 `validate:"gt=0"`
		// StepSize is the length of every new branch segment.
		StepSize float64 `validate:"gt=0"`
	}
	Store struct {
		// Save controls whether finished runs are written to the run database.
		Save bool
		// Folder is the folder the run database resides in.
		Folder string `validate:"required_if=Save true"`
	}
	Log struct {
		// Level is the minimum level of log messages printed. Valid values are
		// "debug", "info", "warn" and "error".
		Level string `validate:"oneof=debug info warn error"`
	}
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	f := field.DefaultParams()

	c := UserConfig{}
	c.Simulation.MaxSteps = 3000
	c.Simulation.StepsPerTick = 1
	c.Simulation.StagnationLimit = 500
	c.Terrain.Scale = 8
	c.Terrain.HeightAmplitude = 2
	c.Terrain.Sun = []float64{30, 0, 30}
	c.Field.Candidates = f.Candidates
	c.Field.AreaSize = f.AreaSize
	c.Field.TrunkHeight = f.TrunkHeight
	c.Field.MinHeight = f.ZMin
	c.Field.MaxHeight = f.ZMax
	c.Field.Contrast = f.Contrast
	c.Field.KeepRatio = f.KeepRatio
	c.Trees.Count = 1
	c.Trees.Spacing = 1.5
	c.Trees.TrunkHeights = []float64{4}
	c.Trees.InfluenceRadius = 3
	c.Trees.KillRadius = 1
	c.Trees.StepSize = 0.5
	c.Store.Save = true
	c.Store.Folder = "runs"
	c.Log.Level = "info"
	return c
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field of the configuration against its constraints.
func (uc UserConfig) Validate() error {
	if err := validate.Struct(uc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (%s)", strings.TrimPrefix(e.Namespace(), "UserConfig."), e.Tag(), e.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Config converts a UserConfig to a sim.Config. An error is returned if the
// configuration is invalid.
func (uc UserConfig) Config(log *slog.Logger) (sim.Config, error) {
	if err := uc.Validate(); err != nil {
		return sim.Config{}, err
	}
	sun := uc.Terrain.Sun
	return sim.Config{
		Log:     log,
		Seed:    sim.SeedFromString(uc.Simulation.Seed),
		Terrain: terrain.NewProcedural(uc.Terrain.Scale, uc.Terrain.HeightAmplitude),
		Sun:     terrain.Sun{Position: mgl64.Vec3{sun[0], sun[1], sun[2]}},
		Field: field.Params{
			Candidates:  uc.Field.Candidates,
			AreaSize:    uc.Field.AreaSize,
			TrunkHeight: uc.Field.TrunkHeight,
			ZMin:        uc.Field.MinHeight,
			ZMax:        uc.Field.MaxHeight,
			Contrast:    uc.Field.Contrast,
			KeepRatio:   uc.Field.KeepRatio,
		},
		Placement: sim.Placement{
			Count:        uc.Trees.Count,
			Spacing:      uc.Trees.Spacing,
			TrunkHeights: uc.Trees.TrunkHeights,
		},
		InfluenceRadius: uc.Trees.InfluenceRadius,
		KillRadius:      uc.Trees.KillRadius,
		StepSize:        uc.Trees.StepSize,
		StepsPerTick:    uc.Simulation.StepsPerTick,
		MaxSteps:        uc.Simulation.MaxSteps,
		StagnationLimit: uc.Simulation.StagnationLimit,
	}, nil
}

// LogLevel returns the slog level named by the configuration.
func (uc UserConfig) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(uc.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// readConfig reads the configuration at path, writing the default
// configuration to it first if the file does not yet exist.
func readConfig(path string) (UserConfig, error) {
	c := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return c, fmt.Errorf("encode default config: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return c, fmt.Errorf("create default config: %v", err)
		}
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %v", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode config: %v", err)
	}
	return c, nil
}
